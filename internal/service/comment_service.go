package service

import (
	"context"

	"rau/internal/featureflags"
	"rau/internal/models"
	"rau/internal/notifications"
	"rau/internal/observability"
	"rau/internal/repository"
	"rau/internal/validation"
)

const (
	defaultCommentLimit = 50
	maxCommentLimit     = 200
)

type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	flags    FlagChecker
	activity ActivityPublisher
}

type CreateCommentInput struct {
	PostID   uint
	AuthorID uint
	ParentID *uint
	Content  string
}

// CommentResult pairs a new comment with the refreshed post it belongs to.
type CommentResult struct {
	Comment *models.Comment `json:"comment"`
	Post    *models.Post    `json:"post"`
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	flags FlagChecker,
	activity ActivityPublisher,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		flags:    flags,
		activity: activityOrNoop(activity),
	}
}

func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (res *CommentResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	content, err := validation.RequiredText("content", in.Content, validation.MaxCommentLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.ParentID != nil && s.flags != nil && !s.flags.Enabled(featureflags.ThreadedComments, in.AuthorID) {
		return nil, models.NewValidationError("Threaded replies are disabled")
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.AuthorID,
		ParentID: in.ParentID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	kind := "top_level"
	if comment.ParentID != nil {
		kind = "reply"
	}
	observability.CommentsCreatedTotal.WithLabelValues(kind).Inc()

	post, err := s.posts.Get(ctx, in.PostID, in.AuthorID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", in.PostID)
	}
	if err := attachCommentAuthors(ctx, s.users, comment); err != nil {
		return nil, err
	}
	if err := attachPostAuthors(ctx, s.users, post); err != nil {
		return nil, err
	}

	s.notifyComment(ctx, post, comment)
	return &CommentResult{Comment: comment, Post: post}, nil
}

// notifyComment tells the post author about a new comment and, for replies,
// the parent author. A recipient who is both gets only the reply event.
func (s *CommentService) notifyComment(ctx context.Context, post *models.Post, comment *models.Comment) {
	payload := map[string]any{
		"post_id":        post.ID,
		"comment_id":     comment.ID,
		"parent_id":      comment.ParentID,
		"comments_count": post.CommentsCount,
	}

	var parentAuthor uint
	if comment.ParentID != nil {
		parent, err := s.comments.Get(ctx, *comment.ParentID, 0)
		if err == nil && parent != nil {
			parentAuthor = parent.AuthorID
			s.activity.Publish(ctx, parentAuthor, comment.AuthorID, notifications.EventCommentReplied, payload)
		}
	}
	if post.AuthorID != parentAuthor {
		s.activity.Publish(ctx, post.AuthorID, comment.AuthorID, notifications.EventPostCommented, payload)
	}
}

// List returns a post's comments oldest first.
func (s *CommentService) List(ctx context.Context, postID uint, limit int, callerID uint) ([]*models.Comment, error) {
	post, err := s.posts.Get(ctx, postID, 0)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", postID)
	}
	comments, err := s.comments.ListForPost(ctx, postID, clampLimit(limit, defaultCommentLimit, maxCommentLimit), callerID)
	if err != nil {
		return nil, err
	}
	if err := attachCommentAuthors(ctx, s.users, comments...); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *CommentService) Vote(ctx context.Context, commentID, voterID uint, value int) (comment *models.Comment, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "Vote")
	defer func() { observability.EndSpan(span, err) }()

	comment, err = s.comments.Vote(ctx, commentID, voterID, value)
	if err != nil {
		return nil, err
	}
	observability.RecordVote("comment", value)
	if err := attachCommentAuthors(ctx, s.users, comment); err != nil {
		return nil, err
	}

	s.activity.Publish(ctx, comment.AuthorID, voterID, notifications.EventCommentVoted, map[string]any{
		"post_id":    comment.PostID,
		"comment_id": comment.ID,
		"value":      value,
		"score":      comment.Score,
	})
	return comment, nil
}
