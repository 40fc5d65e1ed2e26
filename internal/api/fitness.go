package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fittrack/internal/calories"
	"github.com/illegalcall/fittrack/internal/repcount"
)

type TrackRepsRequest struct {
	Tracker   string             `json:"tracker"`
	Exercise  string             `json:"exercise"`
	Landmarks repcount.Landmarks `json:"landmarks"`
}

type ResetRepsRequest struct {
	Tracker string `json:"tracker"`
}

// trackerKey scopes a client-chosen tracker name to the caller.
func trackerKey(c *fiber.Ctx, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = repcount.DefaultTracker
	}
	return caller(c).Identity.ID + ":" + name
}

func (s *Server) handleTrackReps(c *fiber.Ctx) error {
	var req TrackRepsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	st, err := s.Reps.Track(c.UserContext(), trackerKey(c, req.Tracker), req.Exercise, req.Landmarks)
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(st)
}

func (s *Server) handleResetReps(c *fiber.Ctx) error {
	var req ResetRepsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}
	if err := s.Reps.Reset(c.UserContext(), trackerKey(c, req.Tracker)); err != nil {
		return fail(c, err, "")
	}
	return c.JSON(repcount.State{})
}

func (s *Server) handleEstimateCalories(c *fiber.Ctx) error {
	var in calories.Input
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	return c.JSON(fiber.Map{"calories": calories.Estimate(in)})
}
