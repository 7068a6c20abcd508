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

// commentRepository implements CommentRepository
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) applyCommentDetails(db *gorm.DB, callerID uint) *gorm.DB {
	selectQuery := "comments.*, " +
		"(SELECT COUNT(*) FROM comment_votes WHERE comment_votes.comment_id = comments.id AND comment_votes.value = 1) AS upvotes, " +
		"(SELECT COUNT(*) FROM comment_votes WHERE comment_votes.comment_id = comments.id AND comment_votes.value = -1) AS downvotes"

	db = db.Model(&models.Comment{})
	if callerID != 0 {
		return db.Select(selectQuery+", COALESCE((SELECT comment_votes.value FROM comment_votes WHERE comment_votes.comment_id = comments.id AND comment_votes.user_id = ?), 0) AS my_vote", callerID)
	}
	return db.Select(selectQuery + ", 0 AS my_vote")
}

// Create inserts a comment after checking its post and, for replies, its
// parent. Depth is derived from the parent.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.Content = strings.TrimSpace(comment.Content)
	comment.VoteTally = models.VoteTally{}
	defer observability.TrackQuery("create", "comments")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts int64
		if err := tx.Model(&models.Post{}).Where("id = ?", comment.PostID).Count(&posts).Error; err != nil {
			return err
		}
		if posts == 0 {
			return models.NewNotFoundError("Post", comment.PostID)
		}
		if err := requireUser(tx, comment.AuthorID); err != nil {
			return err
		}

		comment.Depth = 0
		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.Select("id", "post_id", "depth").Where("id = ?", *comment.ParentID).Take(&parent).Error; err != nil {
				if isNotFound(err) {
					return models.NewNotFoundError("Comment", *comment.ParentID)
				}
				return err
			}
			depth, err := replyDepth(&parent, comment.PostID)
			if err != nil {
				return err
			}
			comment.Depth = depth
		}
		return tx.Omit(clause.Associations).Create(comment).Error
	})
	if err != nil {
		return err
	}
	comment.Settle()
	return nil
}

// replyDepth validates a parent for a new reply on postID.
func replyDepth(parent *models.Comment, postID uint) (int, error) {
	if parent.PostID != postID {
		return 0, models.NewValidationError("Parent comment belongs to a different post")
	}
	if parent.Depth+1 > models.MaxCommentDepth {
		return 0, models.NewValidationError(fmt.Sprintf("Replies cannot be nested deeper than %d levels", models.MaxCommentDepth))
	}
	return parent.Depth + 1, nil
}

func (r *commentRepository) Get(ctx context.Context, id, callerID uint) (*models.Comment, error) {
	comment, err := r.get(r.db.WithContext(ctx), id, callerID)
	if isNotFound(err) {
		return nil, nil
	}
	return comment, err
}

func (r *commentRepository) get(db *gorm.DB, id, callerID uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.applyCommentDetails(db, callerID).Where("comments.id = ?", id).Take(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) ListForPost(ctx context.Context, postID uint, limit int, callerID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx), callerID).
		Where("comments.post_id = ?", postID).
		Order("comments.created_at ASC").
		Order("comments.id ASC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) CountForPost(ctx context.Context, postID uint) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *commentRepository) Vote(ctx context.Context, commentID, voterID uint, value int) (*models.Comment, error) {
	if !models.ValidVote(value) {
		return nil, models.NewValidationError("Vote value must be 1 or -1")
	}
	defer observability.TrackQuery("vote", "comment_votes")()

	var comment *models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Comment{}).Where("id = ?", commentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return models.NewNotFoundError("Comment", commentID)
		}
		if err := requireUser(tx, voterID); err != nil {
			return err
		}
		vote := &models.CommentVote{CommentID: commentID, UserID: voterID, Value: value, VotedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "comment_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "voted_at"}),
		}).Omit(clause.Associations).Create(vote).Error; err != nil {
			return err
		}
		var err error
		comment, err = r.get(tx, commentID, voterID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}
