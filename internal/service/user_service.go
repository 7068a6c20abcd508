package service

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"rau/internal/models"
	"rau/internal/repository"
	"rau/internal/validation"
)

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetPublic(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.PublicView(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", id)
	}
	return user, nil
}

// UpdateProfile applies a partial update. A provided blank title, bio or
// avatar clears the field; a blank name is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, patch models.UserPatch) (*models.User, error) {
	if patch.Name != nil {
		name, err := validation.RequiredText("name", *patch.Name, validation.MaxNameLen)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		patch.Name = &name
	}
	var err error
	if patch.Title, err = trimmedMax("title", patch.Title, validation.MaxNameLen); err != nil {
		return nil, err
	}
	if patch.Bio, err = trimmedMax("bio", patch.Bio, validation.MaxBioLen); err != nil {
		return nil, err
	}
	if patch.AvatarURL, err = trimmedMax("avatar_url", patch.AvatarURL, validation.MaxURLLen); err != nil {
		return nil, err
	}
	if patch.AvatarURL != nil && *patch.AvatarURL != "" {
		u, err := url.ParseRequestURI(*patch.AvatarURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, models.NewValidationError("avatar_url must be an http(s) URL")
		}
	}

	user, err := s.users.Update(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}
	return user, nil
}

func trimmedMax(field string, value *string, max int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if utf8.RuneCountInString(trimmed) > max {
		return nil, models.NewValidationError(field + " too long")
	}
	return &trimmed, nil
}
