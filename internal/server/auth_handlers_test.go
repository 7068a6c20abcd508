package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rau/internal/middleware"
	"rau/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false)

	resp := env.do(t, http.MethodPost, "/api/auth/register", fiber.Map{
		"email": "Ana.Perez@Uni.edu", "password": "secret123", "name": "Ana", "role": "Profesor",
	}, "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	var user models.User
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "ana.perez@uni.edu", user.Email)
	assert.Equal(t, "ana.perez", user.Username)
	assert.Equal(t, models.RoleInstructor, user.Role)

	t.Run("duplicate email is a 400 conflict", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/register", fiber.Map{
			"email": "ana.perez@uni.edu", "password": "secret123", "name": "Otra",
		}, "", nil)
		assertErrorCode(t, resp, http.StatusBadRequest, models.CodeConflict)
	})

	t.Run("weak password", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/auth/register", fiber.Map{
			"email": "weak@uni.edu", "password": "short", "name": "Weak",
		}, "", nil)
		assertErrorCode(t, resp, http.StatusBadRequest, models.CodeValidation)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)
		req.Header.Set("Content-Type", "application/json")
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assertErrorCode(t, resp, http.StatusBadRequest, models.CodeValidation)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, false)
	env.signup(t, "ana@uni.edu", "")

	var res struct {
		User        models.User `json:"user"`
		AccessToken string      `json:"access_token"`
		TokenType   string      `json:"token_type"`
		ExpiresIn   int         `json:"expires_in"`
	}
	resp := env.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"email": "ANA@uni.edu", "password": "secret123"}, "", &res)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, 3600, res.ExpiresIn)
	assert.Equal(t, "ana@uni.edu", res.User.Email)

	claims, err := middleware.ParseAccessToken(testSecret, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)

	// Unknown email and wrong password are indistinguishable.
	var wrong, unknown models.ErrorResponse
	resp = env.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"email": "ana@uni.edu", "password": "wrong123"}, "", &wrong)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/auth/login", fiber.Map{"email": "ghost@uni.edu", "password": "secret123"}, "", &unknown)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, wrong, unknown)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, false)
	token, user := env.signup(t, "me@uni.edu", "")

	var me models.User
	resp := env.do(t, http.MethodGet, "/api/auth/me", nil, token, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.ID, me.ID)

	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + token},
		{"garbage", "Bearer not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
		})
	}

	t.Run("expired", func(t *testing.T) {
		expired, err := middleware.IssueAccessToken(testSecret, user.ID, -time.Minute)
		require.NoError(t, err)
		resp := env.do(t, http.MethodGet, "/api/auth/me", nil, expired.Token, nil)
		assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})

	t.Run("other secret", func(t *testing.T) {
		forged, err := middleware.IssueAccessToken("another-secret-another-secret-123", user.ID, time.Hour)
		require.NoError(t, err)
		resp := env.do(t, http.MethodGet, "/api/auth/me", nil, forged.Token, nil)
		assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
	})
}

func TestLogout_RevokesToken(t *testing.T) {
	env := newTestEnv(t, true)
	token, _ := env.signup(t, "bye@uni.edu", "")

	resp := env.do(t, http.MethodPost, "/api/auth/logout", nil, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, token, nil)
	assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)

	resp = env.do(t, http.MethodGet, "/api/posts", nil, token, nil)
	assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
}

func TestOptionalAuth(t *testing.T) {
	env := newTestEnv(t, false)
	token, _ := env.signup(t, "reader@uni.edu", "")

	resp := env.do(t, http.MethodGet, "/api/posts", nil, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "no header stays anonymous")
	resp = env.do(t, http.MethodGet, "/api/posts", nil, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	expired, err := middleware.IssueAccessToken(testSecret, 1, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"garbage", "Bearer garbage.token.value"},
		{"expired", "Bearer " + expired.Token},
		{"wrong scheme", "Basic " + token},
		{"empty bearer", "Bearer "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, path := range []string{"/api/posts", "/api/feature-flags"} {
				req := httptest.NewRequest(http.MethodGet, path, nil)
				req.Header.Set("Authorization", tt.header)
				resp, err := env.app.Test(req, -1)
				require.NoError(t, err)
				assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
				_ = resp.Body.Close()
			}
		})
	}
}

func TestUnknownUserToken(t *testing.T) {
	env := newTestEnv(t, false)
	token, _ := env.signup(t, "owner@uni.edu", "")
	community := env.createCommunity(t, token, "Matemática")
	post := env.createPost(t, token, community.ID, "Parcial")

	// A valid signature for an id the store has never seen, as after a
	// memory-backend restart with the same secret.
	ghost, err := middleware.IssueAccessToken(testSecret, 999, time.Hour)
	require.NoError(t, err)

	resp := env.do(t, http.MethodPost, "/api/communities/"+itoa(community.ID)+"/join", nil, ghost.Token, nil)
	assertErrorCode(t, resp, http.StatusNotFound, models.CodeNotFound)
	resp = env.do(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/vote", fiber.Map{"value": 1}, ghost.Token, nil)
	assertErrorCode(t, resp, http.StatusNotFound, models.CodeNotFound)
	resp = env.do(t, http.MethodPost, "/api/posts/"+itoa(post.ID)+"/bookmark", nil, ghost.Token, nil)
	assertErrorCode(t, resp, http.StatusNotFound, models.CodeNotFound)
	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, ghost.Token, nil)
	assertErrorCode(t, resp, http.StatusNotFound, models.CodeNotFound)

	var got models.Community
	resp = env.do(t, http.MethodGet, "/api/communities/"+itoa(community.ID), nil, token, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, got.MemberCount, "no phantom member")

	var view models.Post
	resp = env.do(t, http.MethodGet, "/api/posts/"+itoa(post.ID), nil, token, &view)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, view.Upvotes)
}

func TestLogout_WithoutRedisIsNoop(t *testing.T) {
	env := newTestEnv(t, false)
	token, _ := env.signup(t, "bye@uni.edu", "")

	resp := env.do(t, http.MethodPost, "/api/auth/logout", nil, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserProfiles(t *testing.T) {
	env := newTestEnv(t, false)
	token, user := env.signup(t, "perfil@uni.edu", "")

	var got models.User
	resp := env.do(t, http.MethodGet, "/api/users/"+itoa(user.ID), nil, "", &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user.Username, got.Username)

	resp = env.do(t, http.MethodGet, "/api/users/999", nil, "", nil)
	assertErrorCode(t, resp, http.StatusNotFound, models.CodeNotFound)
	resp = env.do(t, http.MethodGet, "/api/users/abc", nil, "", nil)
	assertErrorCode(t, resp, http.StatusBadRequest, models.CodeValidation)

	var updated models.User
	resp = env.do(t, http.MethodPatch, "/api/users/me", fiber.Map{"bio": " Estudiante de física "}, token, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, updated.Bio)
	assert.Equal(t, "Estudiante de física", *updated.Bio)
	assert.Equal(t, "Test User", updated.Name, "absent fields are untouched")

	resp = env.do(t, http.MethodPatch, "/api/users/me", fiber.Map{"bio": "x"}, "", nil)
	assertErrorCode(t, resp, http.StatusUnauthorized, models.CodeUnauthorized)
}
