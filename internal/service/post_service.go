package service

import (
	"context"

	"rau/internal/models"
	"rau/internal/notifications"
	"rau/internal/observability"
	"rau/internal/repository"
	"rau/internal/validation"
)

type PostService struct {
	posts       repository.PostRepository
	communities repository.CommunityRepository
	users       repository.UserRepository
	activity    ActivityPublisher
}

type CreatePostInput struct {
	AuthorID    uint
	CommunityID uint
	Title       string
	Content     string
	Tag         *string
}

type ListPostsInput struct {
	CommunityID *uint
	Query       string
	Limit       int
	CallerID    uint
}

func NewPostService(
	posts repository.PostRepository,
	communities repository.CommunityRepository,
	users repository.UserRepository,
	activity ActivityPublisher,
) *PostService {
	return &PostService{
		posts:       posts,
		communities: communities,
		users:       users,
		activity:    activityOrNoop(activity),
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	title, err := validation.RequiredText("title", in.Title, validation.MaxTitleLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	content, err := validation.RequiredText("content", in.Content, validation.MaxPostContentLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tag, err := validation.OptionalText("tag", in.Tag, validation.MaxTagLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ok, err := s.communities.Exists(ctx, in.CommunityID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("Community", in.CommunityID)
	}

	post = &models.Post{
		CommunityID: in.CommunityID,
		AuthorID:    in.AuthorID,
		Title:       title,
		Content:     content,
		Tag:         tag,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.Get(ctx, post.ID, in.AuthorID)
}

func (s *PostService) List(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx, repository.PostFilter{
		CommunityID: in.CommunityID,
		Query:       in.Query,
		Limit:       clampLimit(in.Limit, defaultListLimit, maxListLimit),
	}, in.CallerID)
	if err != nil {
		return nil, err
	}
	if err := attachPostAuthors(ctx, s.users, posts...); err != nil {
		return nil, err
	}
	return posts, nil
}

// Get returns a post in any status.
func (s *PostService) Get(ctx context.Context, id, callerID uint) (*models.Post, error) {
	post, err := s.posts.Get(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", id)
	}
	if err := attachPostAuthors(ctx, s.users, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Vote(ctx context.Context, postID, voterID uint, value int) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Vote")
	defer func() { observability.EndSpan(span, err) }()

	post, err = s.posts.Vote(ctx, postID, voterID, value)
	if err != nil {
		return nil, err
	}
	observability.RecordVote("post", value)
	if err := attachPostAuthors(ctx, s.users, post); err != nil {
		return nil, err
	}

	s.activity.Publish(ctx, post.AuthorID, voterID, notifications.EventPostVoted, map[string]any{
		"post_id":   post.ID,
		"value":     value,
		"upvotes":   post.Upvotes,
		"downvotes": post.Downvotes,
		"score":     post.Score,
	})
	return post, nil
}

// ToggleBookmark returns models.BookmarkAdded or models.BookmarkRemoved.
func (s *PostService) ToggleBookmark(ctx context.Context, postID, userID uint) (string, error) {
	action, err := s.posts.ToggleBookmark(ctx, postID, userID)
	if err != nil {
		return "", err
	}
	observability.BookmarkTogglesTotal.WithLabelValues(action).Inc()
	return action, nil
}

func (s *PostService) ListBookmarks(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	posts, err := s.posts.ListBookmarked(ctx, userID, clampLimit(limit, defaultListLimit, maxListLimit))
	if err != nil {
		return nil, err
	}
	if err := attachPostAuthors(ctx, s.users, posts...); err != nil {
		return nil, err
	}
	return posts, nil
}

// Delete soft-deletes a post. Only the author or an instructor may delete;
// deleting an already deleted post succeeds.
func (s *PostService) Delete(ctx context.Context, postID, actorID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "Delete")
	defer func() { observability.EndSpan(span, err) }()

	post, err := s.posts.Get(ctx, postID, 0)
	if err != nil {
		return err
	}
	if post == nil {
		return models.NewNotFoundError("Post", postID)
	}
	if post.AuthorID != actorID {
		instructor, err := s.isInstructor(ctx, actorID)
		if err != nil {
			return err
		}
		if !instructor {
			return models.NewForbiddenError("Only the author or an instructor can delete this post")
		}
	}
	if post.Status == models.PostStatusDeleted {
		return nil
	}
	_, err = s.posts.UpdateStatus(ctx, postID, models.PostStatusDeleted)
	return err
}

// ChangeStatus is the moderation path and is restricted to instructors.
func (s *PostService) ChangeStatus(ctx context.Context, postID, actorID uint, next models.PostStatus) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ChangeStatus")
	defer func() { observability.EndSpan(span, err) }()

	if !next.Valid() {
		return nil, models.NewValidationError("status must be active, hidden or deleted")
	}
	instructor, err := s.isInstructor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !instructor {
		return nil, models.NewForbiddenError("Only instructors can moderate posts")
	}
	if _, err := s.posts.UpdateStatus(ctx, postID, next); err != nil {
		return nil, err
	}
	return s.Get(ctx, postID, actorID)
}

// Hide pulls a post from listings. Instructors only.
func (s *PostService) Hide(ctx context.Context, postID, actorID uint) (*models.Post, error) {
	return s.ChangeStatus(ctx, postID, actorID, models.PostStatusHidden)
}

// SetBestComment marks an answer. Only the post author may choose it.
func (s *PostService) SetBestComment(ctx context.Context, postID, commentID, actorID uint) (*models.Post, error) {
	post, err := s.posts.Get(ctx, postID, actorID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if post.AuthorID != actorID {
		return nil, models.NewForbiddenError("Only the post author can choose the best comment")
	}
	if err := s.posts.SetBestComment(ctx, postID, commentID); err != nil {
		return nil, err
	}
	return s.Get(ctx, postID, actorID)
}

func (s *PostService) isInstructor(ctx context.Context, userID uint) (bool, error) {
	user, err := s.users.PublicView(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsInstructor(), nil
}
