package server

import (
	"bolify/internal/middleware"
	"bolify/internal/models"
	"bolify/internal/service"

	"github.com/gofiber/fiber/v2"
)

// featureSubject is the rollout key for the caller: the user id, or the
// client address for anonymous requests.
func featureSubject(c *fiber.Ctx) string {
	return service.ViewerKey(middleware.UserID(c), c.IP())
}

// featureGate hides a route behind a feature flag. Disabled routes look
// like unknown routes to the caller.
func (s *Server) featureGate(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.features.Enabled(name, featureSubject(c)) {
			return models.NewNotFoundError("Route")
		}
		return c.Next()
	}
}

// GetFeatures handles GET /api/users/features
// @Summary Evaluated feature flags
// @Description Returns which optional features are enabled for the caller
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /users/features [get]
func (s *Server) GetFeatures(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success":  true,
		"features": s.features.Snapshot(featureSubject(c)),
	})
}
