package api

import (
	"github.com/gofiber/fiber/v2"
)

// handleListTips serves the public feed as JSON. Responses are cached until
// an admin adds or deletes a tip.
func (s *Server) handleListTips(c *fiber.Ctx) error {
	view := s.Feed.Load(c.UserContext())
	if view.Error != "" {
		return c.Status(fiber.StatusInternalServerError).JSON(view)
	}
	return c.JSON(view)
}

// tipsChanged drops the cached feed on the next request.
func (s *Server) tipsChanged() {
	s.tipsStale.Store(true)
}
