package repository

import (
	"context"
	"sync"
	"time"

	"rau/internal/models"
)

type memoryOnboardingRepository struct {
	mu    sync.RWMutex
	prefs map[uint]models.OnboardingPreference
	users *memoryUserRepository
}

func newMemoryOnboardingRepository(users *memoryUserRepository) *memoryOnboardingRepository {
	return &memoryOnboardingRepository{prefs: make(map[uint]models.OnboardingPreference), users: users}
}

func clonePreference(p models.OnboardingPreference) *models.OnboardingPreference {
	p.Careers = append([]string{}, p.Careers...)
	p.FavoriteCommunities = append([]uint{}, p.FavoriteCommunities...)
	return &p
}

func (r *memoryOnboardingRepository) Get(_ context.Context, userID uint) (*models.OnboardingPreference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pref, ok := r.prefs[userID]
	if !ok {
		return models.DefaultOnboarding(userID), nil
	}
	return clonePreference(pref), nil
}

func (r *memoryOnboardingRepository) Save(_ context.Context, pref *models.OnboardingPreference) (*models.OnboardingPreference, error) {
	if err := r.users.requireUser(pref.UserID); err != nil {
		return nil, err
	}
	stored := *clonePreference(*pref)
	stored.User = nil
	stored.Normalize()
	stored.UpdatedAt = time.Now().UTC()

	r.mu.Lock()
	r.prefs[stored.UserID] = stored
	r.mu.Unlock()
	return clonePreference(stored), nil
}
