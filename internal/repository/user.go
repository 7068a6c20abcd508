package repository

import (
	"context"
	"fmt"
	"strings"

	"rau/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// userRepository implements UserRepository
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// hashPassword is shared by both backends so stored hashes are interchangeable.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func conflictFor(err error) *models.AppError {
	if strings.Contains(strings.ToLower(err.Error()), "username") {
		return models.NewConflictError("Username already taken")
	}
	return models.NewConflictError("Email already registered")
}

func (r *userRepository) Create(ctx context.Context, user *models.User, password string) (*models.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	user.Email = normalizeEmail(user.Email)
	user.PasswordHash = hash
	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflictFor(err)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user.Public(), nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).Take(&user).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	user, err := r.GetByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}
	if !passwordMatches(user.PasswordHash, password) {
		return nil, nil
	}
	return user.Public(), nil
}

func (r *userRepository) PublicView(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

func (r *userRepository) PublicViews(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		out[users[i].ID] = users[i].Public()
	}
	return out, nil
}

func (r *userRepository) Update(ctx context.Context, id uint, patch models.UserPatch) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&user).Error; err != nil {
			return err
		}
		if patch.Empty() {
			return nil
		}
		patch.Apply(&user)
		return tx.Model(&user).Select("name", "title", "bio", "avatar_url", "updated_at").Updates(&user).Error
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return user.Public(), nil
}
