package seed

import (
	"context"
	"fmt"
	"strings"

	"rau/internal/models"
	"rau/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

const fakePassword = "password123"

// FakeOptions sizes a synthetic data set.
type FakeOptions struct {
	Users             int
	Communities       int
	PostsPerCommunity int
	CommentsPerPost   int
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
}

func (o FakeOptions) withDefaults() FakeOptions {
	if o.Users <= 0 {
		o.Users = 20
	}
	if o.Communities <= 0 {
		o.Communities = 5
	}
	if o.PostsPerCommunity < 0 {
		o.PostsPerCommunity = 0
	}
	if o.CommentsPerPost < 0 {
		o.CommentsPerPost = 0
	}
	return o
}

// Fake generates random users, communities, posts, comments and votes.
func (s *Seeder) Fake(ctx context.Context, opts FakeOptions) (Result, error) {
	opts = opts.withDefaults()
	faker := gofakeit.New(opts.Seed)
	var res Result

	userIDs := make([]uint, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		role := string(models.RoleStudent)
		if i%10 == 0 {
			role = string(models.RoleInstructor)
		}
		u, err := s.auth.Register(ctx, service.RegisterInput{
			Name:     faker.Name(),
			Email:    fakeEmail(faker, i),
			Password: fakePassword,
			Role:     role,
		})
		if err != nil {
			return res, fmt.Errorf("fake user %d: %w", i, err)
		}
		userIDs = append(userIDs, u.ID)
		res.Users++
	}
	pick := func() uint { return userIDs[faker.Number(0, len(userIDs)-1)] }

	for i := 0; i < opts.Communities; i++ {
		desc := faker.Sentence(12)
		c, err := s.communities.Create(ctx, pick(), fakeCommunityName(faker), &desc)
		if err != nil {
			return res, fmt.Errorf("fake community %d: %w", i, err)
		}
		res.Communities++

		for _, uid := range userIDs {
			if faker.Bool() {
				if err := s.communities.Join(ctx, c.ID, uid); err != nil {
					return res, err
				}
			}
		}

		for j := 0; j < opts.PostsPerCommunity; j++ {
			if err := s.fakePost(ctx, faker, c.ID, pick, opts.CommentsPerPost, &res); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

func (s *Seeder) fakePost(ctx context.Context, faker *gofakeit.Faker, communityID uint, pick func() uint, comments int, res *Result) error {
	var tag *string
	if faker.Bool() {
		t := strings.ToLower(faker.Word())
		tag = &t
	}
	post, err := s.posts.Create(ctx, service.CreatePostInput{
		AuthorID:    pick(),
		CommunityID: communityID,
		Title:       strings.TrimSuffix(faker.Sentence(faker.Number(3, 9)), "."),
		Content:     faker.Paragraph(1, 3, 12, "\n\n"),
		Tag:         tag,
	})
	if err != nil {
		return fmt.Errorf("fake post: %w", err)
	}
	res.Posts++

	for v := faker.Number(0, 6); v > 0; v-- {
		value := models.VoteUp
		if faker.Number(1, 4) == 1 {
			value = models.VoteDown
		}
		if _, err := s.posts.Vote(ctx, post.ID, pick(), value); err != nil {
			return err
		}
		res.Votes++
	}

	var last uint
	for k := 0; k < comments; k++ {
		var parent *uint
		if last != 0 && faker.Number(1, 3) == 1 {
			p := last
			parent = &p
		}
		created, err := s.comments.Create(ctx, service.CreateCommentInput{
			PostID: post.ID, AuthorID: pick(), ParentID: parent, Content: faker.Sentence(faker.Number(4, 20)),
		})
		if err != nil {
			return fmt.Errorf("fake comment: %w", err)
		}
		last = created.Comment.ID
		res.Comments++
	}
	return nil
}

// fakeEmail keeps generated addresses unique within a run.
func fakeEmail(faker *gofakeit.Faker, i int) string {
	local := strings.ToLower(faker.FirstName() + "." + faker.LastName())
	local = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || r == '.' {
			return r
		}
		return -1
	}, local)
	return fmt.Sprintf("%s%d@example.edu", local, i)
}

func fakeCommunityName(faker *gofakeit.Faker) string {
	name := faker.Company()
	if len(name) > 60 {
		name = name[:60]
	}
	return name
}
