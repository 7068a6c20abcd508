// Package seed loads demo and synthetic data through the service layer, so it
// works the same against every storage backend.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"time"

	"rau/internal/models"
	"rau/internal/repository"
	"rau/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Fixture is the shape of demo.yaml.
type Fixture struct {
	Password    string             `yaml:"password"`
	Users       []FixtureUser      `yaml:"users"`
	Communities []FixtureCommunity `yaml:"communities"`
	Posts       []FixturePost      `yaml:"posts"`
	Onboarding  []FixtureProfile   `yaml:"onboarding"`
}

type FixtureUser struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

type FixtureCommunity struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Creator     string   `yaml:"creator"`
	Members     []string `yaml:"members"`
}

type FixturePost struct {
	Community string           `yaml:"community"`
	Author    string           `yaml:"author"`
	Title     string           `yaml:"title"`
	Content   string           `yaml:"content"`
	Tag       string           `yaml:"tag"`
	Upvotes   []string         `yaml:"upvotes"`
	Downvotes []string         `yaml:"downvotes"`
	Comments  []FixtureComment `yaml:"comments"`
	// Best is the index of the top-level comment chosen as best answer.
	Best *int `yaml:"best"`
}

type FixtureComment struct {
	Author  string           `yaml:"author"`
	Content string           `yaml:"content"`
	Replies []FixtureComment `yaml:"replies"`
}

type FixtureProfile struct {
	User           string   `yaml:"user"`
	Careers        []string `yaml:"careers"`
	Year           *int     `yaml:"year"`
	GraduationYear *int     `yaml:"graduation_year"`
	Favorites      []string `yaml:"favorites"`
}

// Result counts what a seeding run created.
type Result struct {
	Users       int
	Communities int
	Posts       int
	Comments    int
	Votes       int
	Skipped     bool
}

func (r Result) String() string {
	if r.Skipped {
		return "already seeded, nothing to do"
	}
	return fmt.Sprintf("%d users, %d communities, %d posts, %d comments, %d votes",
		r.Users, r.Communities, r.Posts, r.Comments, r.Votes)
}

// LoadFixture parses raw YAML; nil loads the embedded demo fixture.
func LoadFixture(raw []byte) (*Fixture, error) {
	if raw == nil {
		raw = demoYAML
	}
	var f Fixture
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed fixture: %w", err)
	}
	if f.Password == "" {
		return nil, fmt.Errorf("seed fixture: password is required")
	}
	return &f, nil
}

// Seeder writes data through the services so validation and counters match
// what the API would produce.
type Seeder struct {
	stores      *repository.Stores
	auth        *service.AuthService
	communities *service.CommunityService
	posts       *service.PostService
	comments    *service.CommentService
	onboarding  *service.OnboardingService
}

func New(stores *repository.Stores) *Seeder {
	return &Seeder{
		stores:      stores,
		auth:        service.NewAuthService(stores.Users, nil, "seed", time.Hour),
		communities: service.NewCommunityService(stores.Communities),
		posts:       service.NewPostService(stores.Posts, stores.Communities, stores.Users, nil),
		comments:    service.NewCommentService(stores.Comments, stores.Posts, stores.Users, nil, nil),
		onboarding:  service.NewOnboardingService(stores.Onboarding, stores.Communities),
	}
}

// Demo loads the embedded fixture. It is skipped when the first fixture user
// already exists.
func (s *Seeder) Demo(ctx context.Context) (Result, error) {
	f, err := LoadFixture(nil)
	if err != nil {
		return Result{}, err
	}
	return s.Fixture(ctx, f)
}

func (s *Seeder) Fixture(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	if len(f.Users) > 0 {
		existing, err := s.stores.Users.GetByEmail(ctx, f.Users[0].Email)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped = true
			return res, nil
		}
	}

	users := make(map[string]uint, len(f.Users))
	for _, u := range f.Users {
		created, err := s.auth.Register(ctx, service.RegisterInput{
			Name: u.Name, Email: u.Email, Password: f.Password, Role: u.Role,
		})
		if err != nil {
			return res, fmt.Errorf("user %s: %w", u.Email, err)
		}
		users[u.Email] = created.ID
		res.Users++
	}
	lookup := func(email string) (uint, error) {
		id, ok := users[email]
		if !ok {
			return 0, fmt.Errorf("unknown fixture user %q", email)
		}
		return id, nil
	}

	communities := make(map[string]uint, len(f.Communities))
	for _, c := range f.Communities {
		creator, err := lookup(c.Creator)
		if err != nil {
			return res, err
		}
		desc := c.Description
		created, err := s.communities.Create(ctx, creator, c.Name, &desc)
		if err != nil {
			return res, fmt.Errorf("community %s: %w", c.Name, err)
		}
		communities[c.Name] = created.ID
		res.Communities++
		for _, m := range c.Members {
			uid, err := lookup(m)
			if err != nil {
				return res, err
			}
			if err := s.communities.Join(ctx, created.ID, uid); err != nil {
				return res, err
			}
		}
	}

	for _, p := range f.Posts {
		if err := s.fixturePost(ctx, p, lookup, communities, &res); err != nil {
			return res, fmt.Errorf("post %q: %w", p.Title, err)
		}
	}

	for _, o := range f.Onboarding {
		uid, err := lookup(o.User)
		if err != nil {
			return res, err
		}
		favorites := make([]uint, 0, len(o.Favorites))
		for _, name := range o.Favorites {
			if id, ok := communities[name]; ok {
				favorites = append(favorites, id)
			}
		}
		if _, err := s.onboarding.Save(ctx, uid, service.SaveOnboardingInput{
			Careers: o.Careers, Year: o.Year, GraduationYear: o.GraduationYear, FavoriteCommunities: favorites,
		}); err != nil {
			return res, fmt.Errorf("onboarding %s: %w", o.User, err)
		}
	}

	log.Printf("seed: %s", res)
	return res, nil
}

func (s *Seeder) fixturePost(ctx context.Context, p FixturePost, lookup func(string) (uint, error), communities map[string]uint, res *Result) error {
	author, err := lookup(p.Author)
	if err != nil {
		return err
	}
	communityID, ok := communities[p.Community]
	if !ok {
		return fmt.Errorf("unknown fixture community %q", p.Community)
	}
	var tag *string
	if p.Tag != "" {
		tag = &p.Tag
	}
	post, err := s.posts.Create(ctx, service.CreatePostInput{
		AuthorID: author, CommunityID: communityID, Title: p.Title, Content: p.Content, Tag: tag,
	})
	if err != nil {
		return err
	}
	res.Posts++

	for value, voters := range map[int][]string{models.VoteUp: p.Upvotes, models.VoteDown: p.Downvotes} {
		for _, v := range voters {
			uid, err := lookup(v)
			if err != nil {
				return err
			}
			if _, err := s.posts.Vote(ctx, post.ID, uid, value); err != nil {
				return err
			}
			res.Votes++
		}
	}

	topLevel := make([]uint, 0, len(p.Comments))
	for _, c := range p.Comments {
		id, err := s.fixtureComment(ctx, post.ID, nil, c, lookup, res)
		if err != nil {
			return err
		}
		topLevel = append(topLevel, id)
	}
	if p.Best != nil {
		if *p.Best < 0 || *p.Best >= len(topLevel) {
			return fmt.Errorf("best comment index %d out of range", *p.Best)
		}
		if _, err := s.posts.SetBestComment(ctx, post.ID, topLevel[*p.Best], author); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) fixtureComment(ctx context.Context, postID uint, parentID *uint, c FixtureComment, lookup func(string) (uint, error), res *Result) (uint, error) {
	author, err := lookup(c.Author)
	if err != nil {
		return 0, err
	}
	created, err := s.comments.Create(ctx, service.CreateCommentInput{
		PostID: postID, AuthorID: author, ParentID: parentID, Content: c.Content,
	})
	if err != nil {
		return 0, err
	}
	res.Comments++
	id := created.Comment.ID
	for _, r := range c.Replies {
		if _, err := s.fixtureComment(ctx, postID, &id, r, lookup, res); err != nil {
			return 0, err
		}
	}
	return id, nil
}
