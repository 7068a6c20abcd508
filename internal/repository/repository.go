// Package repository provides data access layer implementations for the application.
//
// Every store has two interchangeable implementations: a GORM-backed one for
// Postgres and SQLite, and an in-memory one. Both satisfy the same interface
// and must produce identical public records for the same logical state.
package repository

import (
	"context"

	"rau/internal/models"

	"gorm.io/gorm"
)

// UserRepository owns user records and credential verification.
// Lookups return (nil, nil) when the user is absent.
type UserRepository interface {
	Create(ctx context.Context, user *models.User, password string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
	PublicView(ctx context.Context, id uint) (*models.User, error)
	PublicViews(ctx context.Context, ids []uint) (map[uint]*models.User, error)
	Update(ctx context.Context, id uint, patch models.UserPatch) (*models.User, error)
}

// CommunityRepository owns communities and their membership sets.
type CommunityRepository interface {
	Create(ctx context.Context, name string, description *string) (*models.Community, error)
	Get(ctx context.Context, id uint) (*models.Community, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Join(ctx context.Context, communityID, userID uint) error
	Leave(ctx context.Context, communityID, userID uint) error
	Search(ctx context.Context, query string, limit int) ([]*models.Community, error)
}

// PostFilter narrows a post listing.
type PostFilter struct {
	CommunityID *uint
	Query       string
	Limit       int
}

// PostRepository owns posts, post votes and bookmarks, and computes the
// vote and comment aggregates on every read.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	Get(ctx context.Context, id, callerID uint) (*models.Post, error)
	List(ctx context.Context, filter PostFilter, callerID uint) ([]*models.Post, error)
	Vote(ctx context.Context, postID, voterID uint, value int) (*models.Post, error)
	ToggleBookmark(ctx context.Context, postID, userID uint) (string, error)
	ListBookmarked(ctx context.Context, userID uint, limit int) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, postID uint, next models.PostStatus) (*models.Post, error)
	SetBestComment(ctx context.Context, postID, commentID uint) error
}

// CommentRepository owns comments and comment votes.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	Get(ctx context.Context, id, callerID uint) (*models.Comment, error)
	ListForPost(ctx context.Context, postID uint, limit int, callerID uint) ([]*models.Comment, error)
	CountForPost(ctx context.Context, postID uint) (int, error)
	Vote(ctx context.Context, commentID, voterID uint, value int) (*models.Comment, error)
}

// OnboardingRepository owns per-user onboarding preferences.
type OnboardingRepository interface {
	Get(ctx context.Context, userID uint) (*models.OnboardingPreference, error)
	Save(ctx context.Context, pref *models.OnboardingPreference) (*models.OnboardingPreference, error)
}

// Stores bundles one implementation of every repository.
type Stores struct {
	Users       UserRepository
	Communities CommunityRepository
	Posts       PostRepository
	Comments    CommentRepository
	Onboarding  OnboardingRepository
}

// NewGormStores builds the relational variant on top of an open GORM handle.
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:       NewUserRepository(db),
		Communities: NewCommunityRepository(db),
		Posts:       NewPostRepository(db),
		Comments:    NewCommentRepository(db),
		Onboarding:  NewOnboardingRepository(db),
	}
}

// NewMemoryStores builds a fresh, empty in-memory variant. Each call returns
// independent state.
func NewMemoryStores() *Stores {
	users := newMemoryUserRepository()
	communities := newMemoryCommunityRepository(users)
	posts := newMemoryPostRepository(users, communities)
	comments := newMemoryCommentRepository(users, posts)
	posts.comments = comments

	return &Stores{
		Users:       users,
		Communities: communities,
		Posts:       posts,
		Comments:    comments,
		Onboarding:  newMemoryOnboardingRepository(users),
	}
}
