package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rau/internal/models"
)

type memoryCommentRepository struct {
	mu       sync.RWMutex
	nextID   uint
	comments map[uint]*models.Comment
	byPost   map[uint][]uint
	votes    map[uint]map[uint]int

	users *memoryUserRepository
	posts *memoryPostRepository
}

func newMemoryCommentRepository(users *memoryUserRepository, posts *memoryPostRepository) *memoryCommentRepository {
	return &memoryCommentRepository{
		comments: make(map[uint]*models.Comment),
		byPost:   make(map[uint][]uint),
		votes:    make(map[uint]map[uint]int),
		users:    users,
		posts:    posts,
	}
}

func (r *memoryCommentRepository) view(c *models.Comment, callerID uint) *models.Comment {
	out := *c
	out.VoteTally = tally(r.votes[c.ID], callerID)
	return &out
}

func (r *memoryCommentRepository) countForPost(postID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPost[postID])
}

func (r *memoryCommentRepository) postOf(commentID uint) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[commentID]
	if !ok {
		return 0, false
	}
	return c.PostID, true
}

func (r *memoryCommentRepository) Create(_ context.Context, comment *models.Comment) error {
	// Posts are never removed, so the check stays valid after the lock is released.
	if !r.posts.exists(comment.PostID) {
		return models.NewNotFoundError("Post", comment.PostID)
	}
	if err := r.users.requireUser(comment.AuthorID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	comment.Depth = 0
	if comment.ParentID != nil {
		parent, ok := r.comments[*comment.ParentID]
		if !ok {
			return models.NewNotFoundError("Comment", *comment.ParentID)
		}
		depth, err := replyDepth(parent, comment.PostID)
		if err != nil {
			return err
		}
		comment.Depth = depth
	}

	r.nextID++
	now := time.Now().UTC()
	comment.ID = r.nextID
	comment.Content = strings.TrimSpace(comment.Content)
	comment.CreatedAt = now
	comment.UpdatedAt = now
	comment.VoteTally = models.VoteTally{}
	comment.Settle()

	stored := *comment
	stored.Author = nil
	r.comments[stored.ID] = &stored
	r.byPost[stored.PostID] = append(r.byPost[stored.PostID], stored.ID)
	return nil
}

func (r *memoryCommentRepository) Get(_ context.Context, id, callerID uint) (*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, nil
	}
	return r.view(c, callerID), nil
}

func (r *memoryCommentRepository) ListForPost(_ context.Context, postID uint, limit int, callerID uint) ([]*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byPost[postID]
	out := make([]*models.Comment, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.view(r.comments[id], callerID))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out[:clampLimit(limit, len(out))], nil
}

func (r *memoryCommentRepository) CountForPost(_ context.Context, postID uint) (int, error) {
	return r.countForPost(postID), nil
}

func (r *memoryCommentRepository) Vote(_ context.Context, commentID, voterID uint, value int) (*models.Comment, error) {
	if !models.ValidVote(value) {
		return nil, models.NewValidationError("Vote value must be 1 or -1")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[commentID]
	if !ok {
		return nil, models.NewNotFoundError("Comment", commentID)
	}
	if err := r.users.requireUser(voterID); err != nil {
		return nil, err
	}
	if r.votes[commentID] == nil {
		r.votes[commentID] = make(map[uint]int)
	}
	r.votes[commentID][voterID] = value
	return r.view(c, voterID), nil
}
