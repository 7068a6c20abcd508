package service

import (
	"context"

	"rau/internal/models"
	"rau/internal/observability"
	"rau/internal/repository"
	"rau/internal/validation"
)

type CommunityService struct {
	communities repository.CommunityRepository
}

func NewCommunityService(communities repository.CommunityRepository) *CommunityService {
	return &CommunityService{communities: communities}
}

// Create makes a community and joins its creator to it.
func (s *CommunityService) Create(ctx context.Context, creatorID uint, name string, description *string) (c *models.Community, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CommunityService", "Create")
	defer func() { observability.EndSpan(span, err) }()

	name, err = validation.RequiredText("name", name, validation.MaxCommunityNameLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	description, err = validation.OptionalText("description", description, validation.MaxDescriptionLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	created, err := s.communities.Create(ctx, name, description)
	if err != nil {
		return nil, err
	}
	if err := s.communities.Join(ctx, created.ID, creatorID); err != nil {
		return nil, err
	}
	return s.Get(ctx, created.ID)
}

func (s *CommunityService) Get(ctx context.Context, id uint) (*models.Community, error) {
	c, err := s.communities.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, models.NewNotFoundError("Community", id)
	}
	return c, nil
}

func (s *CommunityService) Search(ctx context.Context, query string, limit int) ([]*models.Community, error) {
	return s.communities.Search(ctx, query, clampLimit(limit, defaultListLimit, maxListLimit))
}

func (s *CommunityService) Join(ctx context.Context, communityID, userID uint) error {
	return s.communities.Join(ctx, communityID, userID)
}

// Leave is idempotent for members and non-members alike, but the community must exist.
func (s *CommunityService) Leave(ctx context.Context, communityID, userID uint) error {
	ok, err := s.communities.Exists(ctx, communityID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Community", communityID)
	}
	return s.communities.Leave(ctx, communityID, userID)
}
