package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fittrack/internal/admin"
	"github.com/illegalcall/fittrack/internal/avatar"
	"github.com/illegalcall/fittrack/internal/identity"
	"github.com/illegalcall/fittrack/internal/repcount"
	"github.com/illegalcall/fittrack/internal/storage"
)

// Prefixes the admin console puts in front of failed mutations.
const (
	prefixAction = "Action failed: "
	prefixDelete = "Delete failed: "
	prefixAdd    = "Add failed: "
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrNotAuthenticated),
		errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, admin.ErrNotAdmin):
		return fiber.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, identity.ErrUnknownIdentity):
		return fiber.StatusNotFound
	case errors.Is(err, admin.ErrControlBusy),
		errors.Is(err, admin.ErrNotConfirmed),
		errors.Is(err, identity.ErrEmailExists):
		return fiber.StatusConflict
	case errors.Is(err, admin.ErrTipTextRequired),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, repcount.ErrUnknownExercise),
		errors.Is(err, avatar.ErrTooLarge),
		errors.Is(err, avatar.ErrUnsupportedType),
		errors.Is(err, avatar.ErrBlockedURL),
		errors.Is(err, avatar.ErrUnreachable):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

// fail answers {"error": prefix + message} with the status mapped from err.
func fail(c *fiber.Ctx, err error, prefix string) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": prefix + err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
