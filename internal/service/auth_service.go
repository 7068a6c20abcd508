package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rau/internal/cache"
	"rau/internal/middleware"
	"rau/internal/models"
	"rau/internal/observability"
	"rau/internal/repository"
	"rau/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	maxUsernameAttempts = 50
	maxCreateAttempts   = 3
)

// AuthService registers accounts and issues or revokes access tokens.
type AuthService struct {
	users    repository.UserRepository
	rdb      *redis.Client
	secret   string
	tokenTTL time.Duration
}

// RegisterInput is the registration payload. Username is optional and derived
// from the email when blank.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
}

// NewAuthService builds the service. rdb may be nil; logout is then a no-op.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{users: users, rdb: rdb, secret: secret, tokenTTL: tokenTTL}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register")
	defer func() { observability.EndSpan(span, err) }()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	name, err := validation.RequiredText("name", in.Name, validation.MaxNameLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	role, ok := models.ParseUserRole(in.Role)
	if !ok {
		return nil, models.NewValidationError("role must be instructor or student")
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Email already registered")
	}

	requested := strings.ToLower(strings.TrimSpace(in.Username))
	if requested != "" {
		if err := validation.ValidateUsername(requested); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		return s.users.Create(ctx, &models.User{Name: name, Username: requested, Email: email, Role: role}, in.Password)
	}

	// A derived username can lose a race with a concurrent registration; derive again.
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		username, err := s.deriveUsername(ctx, email)
		if err != nil {
			return nil, err
		}
		user, err = s.users.Create(ctx, &models.User{Name: name, Username: username, Email: email, Role: role}, in.Password)
		if err == nil || !isUsernameConflict(err) {
			return user, err
		}
	}
	return nil, models.NewConflictError("Username already taken")
}

// deriveUsername returns the email local part, or the first free "<base>N" for N >= 2.
func (s *AuthService) deriveUsername(ctx context.Context, email string) (string, error) {
	base := validation.UsernameBase(email)
	candidate := base
	for n := 2; n < maxUsernameAttempts+2; n++ {
		if !validation.IsReservedUsername(candidate) {
			taken, err := s.users.GetByUsername(ctx, candidate)
			if err != nil {
				return "", err
			}
			if taken == nil {
				return candidate, nil
			}
		}
		candidate = fmt.Sprintf("%s%d", base, n)
	}
	return base + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}

func isUsernameConflict(err error) bool {
	return models.IsCode(err, models.CodeConflict) && strings.Contains(err.Error(), "Username")
}

// Login verifies credentials and issues an access token. Unknown email and
// wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *LoginResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Login")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	token, err := middleware.IssueAccessToken(s.secret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &LoginResult{
		User:        user.Public(),
		AccessToken: token.Token,
		TokenType:   "bearer",
		ExpiresIn:   int(s.tokenTTL.Seconds()),
	}, nil
}

// Logout revokes the token's jti until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, claims *middleware.AccessClaims) error {
	if claims == nil {
		return nil
	}
	return cache.RevokeToken(ctx, s.rdb, claims.JTI, time.Until(claims.ExpiresAt))
}

// Me returns the caller's public profile.
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.PublicView(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", userID)
	}
	return user, nil
}
