package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rau/internal/models"
	"rau/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-entropy-0123456789"

type publishedEvent struct {
	RecipientID uint
	ActorID     uint
	Type        string
	Payload     any
}

// recordingActivity captures events the way the dispatcher would receive them.
type recordingActivity struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (r *recordingActivity) Publish(_ context.Context, recipientID, actorID uint, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, publishedEvent{RecipientID: recipientID, ActorID: actorID, Type: eventType, Payload: payload})
}

func (r *recordingActivity) ofType(eventType string) []publishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []publishedEvent
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	stores   *repository.Stores
	activity *recordingActivity
	auth     *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := repository.NewMemoryStores()
	return &fixture{
		stores:   stores,
		activity: &recordingActivity{},
		auth:     NewAuthService(stores.Users, nil, testSecret, time.Hour),
	}
}

func (f *fixture) register(t *testing.T, email, role string) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Name:     "Test User",
		Email:    email,
		Password: "secret123",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) community(t *testing.T, creatorID uint, name string) *models.Community {
	t.Helper()
	c, err := NewCommunityService(f.stores.Communities).Create(context.Background(), creatorID, name, nil)
	require.NoError(t, err)
	return c
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}
