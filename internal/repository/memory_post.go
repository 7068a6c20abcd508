package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"rau/internal/models"
)

type memoryPostRepository struct {
	mu        sync.RWMutex
	nextID    uint
	posts     map[uint]*models.Post
	votes     map[uint]map[uint]int
	bookmarks map[uint]map[uint]time.Time

	users       *memoryUserRepository
	communities *memoryCommunityRepository
	// comments is wired after construction; lock order is posts then comments.
	comments *memoryCommentRepository
}

func newMemoryPostRepository(users *memoryUserRepository, communities *memoryCommunityRepository) *memoryPostRepository {
	return &memoryPostRepository{
		posts:       make(map[uint]*models.Post),
		votes:       make(map[uint]map[uint]int),
		bookmarks:   make(map[uint]map[uint]time.Time),
		users:       users,
		communities: communities,
	}
}

// view builds the public record for callerID; r.mu must be held.
func (r *memoryPostRepository) view(p *models.Post, callerID uint) *models.Post {
	out := *p
	out.VoteTally = tally(r.votes[p.ID], callerID)
	if r.comments != nil {
		out.CommentsCount = r.comments.countForPost(p.ID)
	}
	out.CommunityName = r.communities.name(p.CommunityID)
	return &out
}

func tally(votes map[uint]int, callerID uint) models.VoteTally {
	var t models.VoteTally
	for voter, v := range votes {
		switch v {
		case models.VoteUp:
			t.Upvotes++
		case models.VoteDown:
			t.Downvotes++
		}
		if voter == callerID {
			t.MyVote = v
		}
	}
	t.Settle()
	return t
}

func (r *memoryPostRepository) exists(id uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.posts[id]
	return ok
}

func (r *memoryPostRepository) Create(_ context.Context, post *models.Post) error {
	if err := r.users.requireUser(post.AuthorID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	now := time.Now().UTC()
	post.ID = r.nextID
	post.Status = models.PostStatusActive
	post.CreatedAt = now
	post.UpdatedAt = now
	post.VoteTally = models.VoteTally{}
	post.CommentsCount = 0
	post.Settle()

	stored := *post
	stored.Author = nil
	r.posts[stored.ID] = &stored
	return nil
}

func (r *memoryPostRepository) Get(_ context.Context, id, callerID uint) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, nil
	}
	return r.view(p, callerID), nil
}

// newestFirst orders by created_at DESC, id DESC.
func newestFirst(posts []*models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
}

func (r *memoryPostRepository) List(_ context.Context, filter PostFilter, callerID uint) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.TrimSpace(filter.Query)
	matched := make([]*models.Post, 0)
	for _, p := range r.posts {
		if p.Status != models.PostStatusActive {
			continue
		}
		if filter.CommunityID != nil && p.CommunityID != *filter.CommunityID {
			continue
		}
		if query != "" && !containsFold(p.Title, query) && !containsFold(p.Content, query) {
			continue
		}
		matched = append(matched, p)
	}
	newestFirst(matched)
	matched = matched[:clampLimit(filter.Limit, len(matched))]

	out := make([]*models.Post, len(matched))
	for i, p := range matched {
		out[i] = r.view(p, callerID)
	}
	return out, nil
}

func (r *memoryPostRepository) Vote(_ context.Context, postID, voterID uint, value int) (*models.Post, error) {
	if !models.ValidVote(value) {
		return nil, models.NewValidationError("Vote value must be 1 or -1")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if err := r.users.requireUser(voterID); err != nil {
		return nil, err
	}
	if r.votes[postID] == nil {
		r.votes[postID] = make(map[uint]int)
	}
	r.votes[postID][voterID] = value
	return r.view(p, voterID), nil
}

func (r *memoryPostRepository) ToggleBookmark(_ context.Context, postID, userID uint) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[postID]; !ok {
		return "", models.NewNotFoundError("Post", postID)
	}
	if err := r.users.requireUser(userID); err != nil {
		return "", err
	}
	if _, saved := r.bookmarks[postID][userID]; saved {
		delete(r.bookmarks[postID], userID)
		return models.BookmarkRemoved, nil
	}
	if r.bookmarks[postID] == nil {
		r.bookmarks[postID] = make(map[uint]time.Time)
	}
	r.bookmarks[postID][userID] = time.Now().UTC()
	return models.BookmarkAdded, nil
}

func (r *memoryPostRepository) ListBookmarked(_ context.Context, userID uint, limit int) ([]*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type saved struct {
		post *models.Post
		at   time.Time
	}
	matched := make([]saved, 0)
	for postID, users := range r.bookmarks {
		at, ok := users[userID]
		if !ok {
			continue
		}
		p := r.posts[postID]
		if p == nil || p.Status != models.PostStatusActive {
			continue
		}
		matched = append(matched, saved{post: p, at: at})
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].at.Equal(matched[j].at) {
			return matched[i].at.After(matched[j].at)
		}
		return matched[i].post.ID > matched[j].post.ID
	})
	matched = matched[:clampLimit(limit, len(matched))]

	out := make([]*models.Post, len(matched))
	for i, s := range matched {
		out[i] = r.view(s.post, userID)
	}
	return out, nil
}

func (r *memoryPostRepository) UpdateStatus(_ context.Context, postID uint, next models.PostStatus) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if !p.Status.CanTransitionTo(next) {
		return nil, models.NewValidationError(fmt.Sprintf("Cannot change post status from %s to %s", p.Status, next))
	}
	p.Status = next
	p.UpdatedAt = time.Now().UTC()
	return r.view(p, 0), nil
}

func (r *memoryPostRepository) SetBestComment(_ context.Context, postID, commentID uint) error {
	// Resolve the comment before taking the post lock.
	commentPostID, found := r.comments.postOf(commentID)

	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return models.NewNotFoundError("Post", postID)
	}
	if !found {
		return models.NewNotFoundError("Comment", commentID)
	}
	if commentPostID != postID {
		return models.NewValidationError("Comment does not belong to this post")
	}
	id := commentID
	p.BestCommentID = &id
	p.UpdatedAt = time.Now().UTC()
	return nil
}
