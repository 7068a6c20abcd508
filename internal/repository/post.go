package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rau/internal/models"
	"rau/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// applyPostDetails selects the post row plus every read-time aggregate.
func (r *postRepository) applyPostDetails(db *gorm.DB, callerID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM post_votes WHERE post_votes.post_id = posts.id AND post_votes.value = 1) AS upvotes, " +
		"(SELECT COUNT(*) FROM post_votes WHERE post_votes.post_id = posts.id AND post_votes.value = -1) AS downvotes, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count, " +
		"(SELECT communities.name FROM communities WHERE communities.id = posts.community_id) AS community_name"

	db = db.Model(&models.Post{})
	if callerID != 0 {
		return db.Select(selectQuery+", COALESCE((SELECT post_votes.value FROM post_votes WHERE post_votes.post_id = posts.id AND post_votes.user_id = ?), 0) AS my_vote", callerID)
	}
	return db.Select(selectQuery + ", 0 AS my_vote")
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	post.Status = models.PostStatusActive
	post.VoteTally = models.VoteTally{}
	post.CommentsCount = 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, post.AuthorID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(post).Error
	})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	post.Settle()
	return nil
}

func (r *postRepository) Get(ctx context.Context, id, callerID uint) (*models.Post, error) {
	post, err := r.get(r.db.WithContext(ctx), id, callerID)
	if isNotFound(err) {
		return nil, nil
	}
	return post, err
}

func (r *postRepository) get(db *gorm.DB, id, callerID uint) (*models.Post, error) {
	var post models.Post
	if err := r.applyPostDetails(db, callerID).Where("posts.id = ?", id).Take(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter, callerID uint) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()

	q := r.applyPostDetails(r.db.WithContext(ctx), callerID).
		Where("posts.status = ?", models.PostStatusActive)
	if filter.CommunityID != nil {
		q = q.Where("posts.community_id = ?", *filter.CommunityID)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		pattern := containsPattern(query)
		q = q.Where(`(posts.title_fold LIKE ? ESCAPE '\' OR posts.content_fold LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var posts []*models.Post
	err := q.Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(filter.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) requireExists(tx *gorm.DB, postID uint) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

// Vote records or replaces the voter's vote and returns the recomputed view.
// The upsert and the re-read share one transaction.
func (r *postRepository) Vote(ctx context.Context, postID, voterID uint, value int) (*models.Post, error) {
	if !models.ValidVote(value) {
		return nil, models.NewValidationError("Vote value must be 1 or -1")
	}
	defer observability.TrackQuery("vote", "post_votes")()

	var post *models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireExists(tx, postID); err != nil {
			return err
		}
		if err := requireUser(tx, voterID); err != nil {
			return err
		}
		vote := &models.PostVote{PostID: postID, UserID: voterID, Value: value, VotedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "voted_at"}),
		}).Omit(clause.Associations).Create(vote).Error; err != nil {
			return err
		}
		var err error
		post, err = r.get(tx, postID, voterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) ToggleBookmark(ctx context.Context, postID, userID uint) (string, error) {
	action := models.BookmarkAdded
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireExists(tx, postID); err != nil {
			return err
		}
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostBookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			action = models.BookmarkRemoved
			return nil
		}
		bookmark := &models.PostBookmark{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(bookmark).Error
	})
	if err != nil {
		return "", err
	}
	return action, nil
}

func (r *postRepository) ListBookmarked(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), userID).
		Joins("JOIN post_bookmarks ON post_bookmarks.post_id = posts.id AND post_bookmarks.user_id = ?", userID).
		Where("posts.status = ?", models.PostStatusActive).
		Order("post_bookmarks.created_at DESC").
		Order("posts.id DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// UpdateStatus moves a post along the status state machine.
func (r *postRepository) UpdateStatus(ctx context.Context, postID uint, next models.PostStatus) (*models.Post, error) {
	var post *models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Post
		if err := tx.Select("id", "status").Where("id = ?", postID).Take(&current).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}
		if !current.Status.CanTransitionTo(next) {
			return models.NewValidationError(fmt.Sprintf("Cannot change post status from %s to %s", current.Status, next))
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
			"status":     next,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		var err error
		post, err = r.get(tx, postID, 0)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (r *postRepository) SetBestComment(ctx context.Context, postID, commentID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireExists(tx, postID); err != nil {
			return err
		}
		var comment models.Comment
		if err := tx.Select("id", "post_id").Where("id = ?", commentID).Take(&comment).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Comment", commentID)
			}
			return err
		}
		if comment.PostID != postID {
			return models.NewValidationError("Comment does not belong to this post")
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
			"best_comment_id": commentID,
			"updated_at":      time.Now().UTC(),
		}).Error
	})
}
