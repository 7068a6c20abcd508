package server

import (
	"github.com/gofiber/fiber/v2"
)

// SearchCommunities handles GET /api/communities?q=&limit=
// @Summary Search communities
// @Description Ordered by member count, then name.
// @Tags communities
// @Produce json
// @Param q query string false "Name filter"
// @Param limit query int false "Max results"
// @Success 200 {array} models.Community
// @Router /communities [get]
func (s *Server) SearchCommunities(c *fiber.Ctx) error {
	list, err := s.communityService.Search(c.UserContext(), c.Query("q"), queryLimit(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(list)
}

// CreateCommunity handles POST /api/communities. The creator joins it.
// @Summary Create community
// @Tags communities
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{name=string,description=string} true "Community"
// @Success 201 {object} models.Community
// @Failure 400 {object} models.ErrorResponse
// @Router /communities [post]
func (s *Server) CreateCommunity(c *fiber.Ctx) error {
	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	community, err := s.communityService.Create(c.UserContext(), callerID(c), req.Name, req.Description)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(community)
}

// GetCommunity handles GET /api/communities/:id
func (s *Server) GetCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	community, err := s.communityService.Get(c.UserContext(), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(community)
}

// JoinCommunity handles POST /api/communities/:id/join
// @Summary Join community
// @Tags communities
// @Security BearerAuth
// @Param id path int true "Community ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /communities/{id}/join [post]
func (s *Server) JoinCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.communityService.Join(c.UserContext(), id, callerID(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// LeaveCommunity handles POST and DELETE /api/communities/:id/leave
func (s *Server) LeaveCommunity(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.communityService.Leave(c.UserContext(), id, callerID(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
