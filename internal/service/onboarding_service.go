package service

import (
	"context"
	"strings"

	"rau/internal/middleware"
	"rau/internal/models"
	"rau/internal/observability"
	"rau/internal/repository"
	"rau/internal/validation"
)

const (
	maxCareers   = 10
	maxFavorites = 50
	maxYear      = 10
	minGradYear  = 1950
	maxGradYear  = 2100
)

type OnboardingService struct {
	onboarding  repository.OnboardingRepository
	communities repository.CommunityRepository
}

// SaveOnboardingInput is the full replacement state a user submits.
type SaveOnboardingInput struct {
	Careers             []string `json:"careers"`
	Year                *int     `json:"year"`
	GraduationYear      *int     `json:"graduation_year"`
	FavoriteCommunities []uint   `json:"favorite_communities"`
}

func NewOnboardingService(onboarding repository.OnboardingRepository, communities repository.CommunityRepository) *OnboardingService {
	return &OnboardingService{onboarding: onboarding, communities: communities}
}

func (s *OnboardingService) Get(ctx context.Context, userID uint) (*models.OnboardingPreference, error) {
	return s.onboarding.Get(ctx, userID)
}

// Save replaces the user's preferences and joins every favorite community.
// Unknown community ids are skipped and left out of the stored favorites.
func (s *OnboardingService) Save(ctx context.Context, userID uint, in SaveOnboardingInput) (pref *models.OnboardingPreference, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "OnboardingService", "Save")
	defer func() { observability.EndSpan(span, err) }()

	careers, err := normalizeCareers(in.Careers)
	if err != nil {
		return nil, err
	}
	if in.Year != nil && (*in.Year < 1 || *in.Year > maxYear) {
		return nil, models.NewValidationError("year must be between 1 and 10")
	}
	if in.GraduationYear != nil && (*in.GraduationYear < minGradYear || *in.GraduationYear > maxGradYear) {
		return nil, models.NewValidationError("graduation_year is out of range")
	}
	if len(in.FavoriteCommunities) > maxFavorites {
		return nil, models.NewValidationError("too many favorite communities")
	}

	favorites := make([]uint, 0, len(in.FavoriteCommunities))
	seen := make(map[uint]struct{}, len(in.FavoriteCommunities))
	for _, id := range in.FavoriteCommunities {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		ok, err := s.communities.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			middleware.Logger.DebugContext(ctx, "onboarding skipped unknown community", "community_id", id)
			continue
		}
		if err := s.communities.Join(ctx, id, userID); err != nil {
			return nil, err
		}
		favorites = append(favorites, id)
	}

	return s.onboarding.Save(ctx, &models.OnboardingPreference{
		UserID:              userID,
		Careers:             careers,
		Year:                in.Year,
		GraduationYear:      in.GraduationYear,
		FavoriteCommunities: favorites,
	})
}

func normalizeCareers(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		if _, err := validation.RequiredText("career", c, validation.MaxNameLen); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) > maxCareers {
		return nil, models.NewValidationError("too many careers")
	}
	return out, nil
}
