package server

import (
	"context"
	"errors"

	"rau/internal/cache"
	"rau/internal/middleware"
	"rau/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID = "userID"
	localClaims = "claims"
)

// AuthRequired rejects requests without a valid, unrevoked bearer token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, appErr := s.authenticate(c)
		if appErr != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		}
		setCaller(c, claims)
		return c.Next()
	}
}

// OptionalAuth lets requests without an Authorization header through as
// anonymous. A header that is present must carry a valid, unrevoked token.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		claims, appErr := s.authenticate(c)
		if appErr != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		}
		setCaller(c, claims)
		return c.Next()
	}
}

// authenticate resolves the bearer token of the request.
func (s *Server) authenticate(c *fiber.Ctx) (*middleware.AccessClaims, *models.AppError) {
	token, err := middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		msg := "Authorization required"
		if !errors.Is(err, middleware.ErrMissingToken) {
			msg = "Invalid authorization header"
		}
		return nil, models.NewUnauthorizedError(msg)
	}
	return s.verifyToken(c.UserContext(), token)
}

// WSAuth authenticates the WebSocket upgrade. Browsers cannot set headers on
// the upgrade, so a single-use ticket from POST /api/ws/ticket is expected.
// Without Redis there are no tickets and the access token may be passed as
// the token query parameter instead.
func (s *Server) WSAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ticket := c.Query("ticket"); ticket != "" {
			userID, err := cache.ConsumeWSTicket(c.UserContext(), s.redis, ticket)
			if err != nil {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
			}
			setCaller(c, &middleware.AccessClaims{UserID: userID})
			return c.Next()
		}

		token := c.Query("token")
		if token == "" || s.redis != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("WebSocket ticket required"))
		}
		claims, appErr := s.verifyToken(c.UserContext(), token)
		if appErr != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, appErr)
		}
		setCaller(c, claims)
		return c.Next()
	}
}

func (s *Server) verifyToken(ctx context.Context, token string) (*middleware.AccessClaims, *models.AppError) {
	claims, err := middleware.ParseAccessToken(s.config.JWTSecret, token)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	revoked, err := cache.IsTokenRevoked(ctx, s.redis, claims.JTI)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "token revocation check failed", "error", err)
	}
	if revoked {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return claims, nil
}

func setCaller(c *fiber.Ctx, claims *middleware.AccessClaims) {
	c.Locals(localUserID, claims.UserID)
	c.Locals(localClaims, claims)
	// Sync to UserContext for logging and downstream services
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, claims.UserID)
	c.SetUserContext(ctx)
}

// callerID returns the authenticated user id, or 0 for anonymous callers.
func callerID(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

func callerClaims(c *fiber.Ctx) *middleware.AccessClaims {
	claims, _ := c.Locals(localClaims).(*middleware.AccessClaims)
	return claims
}
