package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostStatus_Transitions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from, to PostStatus
		allowed  bool
	}{
		{PostStatusActive, PostStatusHidden, true},
		{PostStatusActive, PostStatusDeleted, true},
		{PostStatusActive, PostStatusActive, false},
		{PostStatusHidden, PostStatusActive, false},
		{PostStatusHidden, PostStatusDeleted, false},
		{PostStatusDeleted, PostStatusActive, false},
		{PostStatusDeleted, PostStatusHidden, false},
		{PostStatusDeleted, PostStatusDeleted, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.False(t, PostStatus("archived").Valid())
}

func TestVoteTally_Settle(t *testing.T) {
	t.Parallel()
	tally := VoteTally{Upvotes: 3, Downvotes: 5, MyVote: VoteDown}
	tally.Settle()
	assert.Equal(t, -2, tally.Score)
	assert.Equal(t, VoteStatusDown, tally.VoteStatus)

	tally.MyVote = 0
	tally.Settle()
	assert.Equal(t, VoteStatusNone, tally.VoteStatus)

	assert.True(t, ValidVote(1))
	assert.True(t, ValidVote(-1))
	assert.False(t, ValidVote(0))
	assert.False(t, ValidVote(2))
}

func TestOnboarding_NormalizeDerivesDone(t *testing.T) {
	t.Parallel()
	empty := &OnboardingPreference{}
	empty.Normalize()
	assert.False(t, empty.Done)
	assert.NotNil(t, empty.Careers)
	assert.NotNil(t, empty.FavoriteCommunities)

	careers := &OnboardingPreference{Careers: []string{"Física"}}
	careers.Normalize()
	assert.True(t, careers.Done)

	favorites := &OnboardingPreference{Done: false, FavoriteCommunities: []uint{4}}
	favorites.Normalize()
	assert.True(t, favorites.Done)

	forced := &OnboardingPreference{Done: true}
	forced.Normalize()
	assert.False(t, forced.Done)
}

func TestParseUserRole(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want UserRole
		ok   bool
	}{
		{"Instructor", RoleInstructor, true},
		{"Profesor", RoleInstructor, true},
		{"student", RoleStudent, true},
		{"Estudiante", RoleStudent, true},
		{"", RoleStudent, true},
		{"admin", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseUserRole(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestUserPatch_Apply(t *testing.T) {
	t.Parallel()
	bio := "hello"
	name := "New Name"
	u := &User{Name: "Old", PasswordHash: "hash"}
	UserPatch{Name: &name, Bio: &bio}.Apply(u)

	assert.Equal(t, "New Name", u.Name)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "hello", *u.Bio)
	assert.Nil(t, u.Title)
	assert.Empty(t, u.Public().PasswordHash)
	assert.Equal(t, "hash", u.PasswordHash)

	bio = "changed by caller"
	assert.Equal(t, "hello", *u.Bio, "patch values are copied")

	public := u.Public()
	*public.Bio = "changed through view"
	assert.Equal(t, "hello", *u.Bio, "views do not alias the record")
}

func TestStatusFor(t *testing.T) {
	t.Parallel()
	assert.Equal(t, http.StatusNotFound, StatusFor(NewNotFoundError("Post", 1)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, http.StatusBadRequest, StatusFor(NewConflictError("taken")))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(NewUnauthorizedError("no")))
	assert.Equal(t, http.StatusForbidden, StatusFor(NewForbiddenError("no")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("boom")))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("wrapped: %w", NewNotFoundError("User", 2))))
}

func TestRespondWithError_HidesInternalDetails(t *testing.T) {
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("dial tcp: refused")))
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, errors.New("secret"))
	})

	for _, path := range []string{"/internal", "/plain"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		var body ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		_ = resp.Body.Close()
		assert.Equal(t, CodeInternal, body.Code)
		assert.Empty(t, body.Details)
		assert.Equal(t, "Internal server error", body.Error)
	}
}
