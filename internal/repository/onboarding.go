package repository

import (
	"context"
	"fmt"
	"time"

	"rau/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// onboardingRepository implements OnboardingRepository
type onboardingRepository struct {
	db *gorm.DB
}

// NewOnboardingRepository creates a new onboarding repository
func NewOnboardingRepository(db *gorm.DB) OnboardingRepository {
	return &onboardingRepository{db: db}
}

func (r *onboardingRepository) Get(ctx context.Context, userID uint) (*models.OnboardingPreference, error) {
	var pref models.OnboardingPreference
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&pref).Error
	if isNotFound(err) {
		return models.DefaultOnboarding(userID), nil
	}
	if err != nil {
		return nil, err
	}
	pref.Normalize()
	return &pref, nil
}

// Save upserts the preferences; Done is always recomputed.
func (r *onboardingRepository) Save(ctx context.Context, pref *models.OnboardingPreference) (*models.OnboardingPreference, error) {
	out := *pref
	out.Normalize()
	out.UpdatedAt = time.Now().UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, out.UserID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"done", "careers", "year", "graduation_year", "favorite_communities", "updated_at"}),
		}).Omit(clause.Associations).Create(&out).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save onboarding for user %d: %w", pref.UserID, err)
	}
	return &out, nil
}
