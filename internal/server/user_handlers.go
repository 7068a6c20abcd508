package server

import (
	"rau/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary Public profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	user, err := s.userService.GetPublic(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PATCH /api/users/me. Only fields present in the body change.
// @Summary Update own profile
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.UserPatch true "Partial profile"
// @Success 200 {object} models.User
// @Router /users/me [patch]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var patch models.UserPatch
	if err := parseBody(c, &patch); err != nil {
		return nil
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), callerID(c), patch)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(user)
}

// GetMyBookmarks handles GET /api/users/me/bookmarks
func (s *Server) GetMyBookmarks(c *fiber.Ctx) error {
	posts, err := s.postService.ListBookmarks(c.UserContext(), callerID(c), queryLimit(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(posts)
}
