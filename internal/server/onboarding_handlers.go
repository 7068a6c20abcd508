package server

import (
	"rau/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetOnboarding handles GET /api/onboarding
// @Summary Onboarding state
// @Tags onboarding
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.OnboardingPreference
// @Router /onboarding [get]
func (s *Server) GetOnboarding(c *fiber.Ctx) error {
	pref, err := s.onboardingService.Get(c.UserContext(), callerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pref)
}

// SaveOnboarding handles POST and PUT /api/onboarding. Favorite communities
// are joined on save.
// @Summary Save onboarding
// @Tags onboarding
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body service.SaveOnboardingInput true "Preferences"
// @Success 200 {object} models.OnboardingPreference
// @Failure 400 {object} models.ErrorResponse
// @Router /onboarding [post]
func (s *Server) SaveOnboarding(c *fiber.Ctx) error {
	var req service.SaveOnboardingInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	pref, err := s.onboardingService.Save(c.UserContext(), callerID(c), req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(pref)
}

// GetCareerOptions handles GET /api/options/careers
func (s *Server) GetCareerOptions(c *fiber.Ctx) error {
	return c.JSON(s.optionsService.Careers())
}

// GetYearOptions handles GET /api/options/years
func (s *Server) GetYearOptions(c *fiber.Ctx) error {
	return c.JSON(s.optionsService.Years())
}

// GetGradYearOptions handles GET /api/options/grad-years
func (s *Server) GetGradYearOptions(c *fiber.Ctx) error {
	return c.JSON(s.optionsService.GradYears())
}
