package repository

import (
	"context"
	"sync"
	"time"

	"rau/internal/models"
)

type memoryUserRepository struct {
	mu         sync.RWMutex
	nextID     uint
	users      map[uint]*models.User
	byEmail    map[string]uint
	byUsername map[string]uint
}

func newMemoryUserRepository() *memoryUserRepository {
	return &memoryUserRepository{
		users:      make(map[uint]*models.User),
		byEmail:    make(map[string]uint),
		byUsername: make(map[string]uint),
	}
}

// requireUser is the in-memory counterpart of the SQL user check. Users are
// never removed, so callers may release r.mu before acting on the answer.
func (r *memoryUserRepository) requireUser(id uint) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.users[id]; !ok {
		return models.NewNotFoundError("User", id)
	}
	return nil
}

func (r *memoryUserRepository) Create(_ context.Context, user *models.User, password string) (*models.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := normalizeEmail(user.Email)
	if _, taken := r.byEmail[email]; taken {
		return nil, models.NewConflictError("Email already registered")
	}
	if _, taken := r.byUsername[user.Username]; taken {
		return nil, models.NewConflictError("Username already taken")
	}

	r.nextID++
	now := time.Now().UTC()
	stored := user.Clone()
	stored.ID = r.nextID
	stored.Email = email
	stored.PasswordHash = hash
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Role == "" {
		stored.Role = models.RoleStudent
	}

	r.users[stored.ID] = stored
	r.byEmail[email] = stored.ID
	r.byUsername[stored.Username] = stored.ID

	*user = *stored.Clone()
	return stored.Public(), nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return r.users[id].Clone(), nil
}

func (r *memoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[username]
	if !ok {
		return nil, nil
	}
	return r.users[id].Clone(), nil
}

func (r *memoryUserRepository) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, _ := r.GetByEmail(ctx, email)
	if user == nil || !passwordMatches(user.PasswordHash, password) {
		return nil, nil
	}
	return user.Public(), nil
}

func (r *memoryUserRepository) PublicView(_ context.Context, id uint) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users[id].Public(), nil
}

func (r *memoryUserRepository) PublicViews(_ context.Context, ids []uint) (map[uint]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uint]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u.Public()
		}
	}
	return out, nil
}

func (r *memoryUserRepository) Update(_ context.Context, id uint, patch models.UserPatch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	if !patch.Empty() {
		patch.Apply(u)
		u.UpdatedAt = time.Now().UTC()
	}
	return u.Public(), nil
}
