package api

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fittrack/internal/avatar"
	"github.com/illegalcall/fittrack/internal/models"
)

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type DeleteAccountRequest struct {
	CurrentPassword string `json:"currentPassword"`
}

type AvatarURLRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	p, err := s.Profiles.Load(c.UserContext(), caller(c))
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(fiber.Map{"profile": p})
}

func (s *Server) handleSaveProfile(c *fiber.Ctx) error {
	var update models.SelfProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return badRequest(c, "Invalid request body")
	}
	delta := update.Delta()
	if delta.Empty() {
		return badRequest(c, "No profile fields to update")
	}

	ctx := c.UserContext()
	if err := s.Profiles.Save(ctx, caller(c), delta); err != nil {
		return fail(c, err, "")
	}
	p, err := s.Profiles.Load(ctx, caller(c))
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(fiber.Map{"profile": p})
}

func (s *Server) handleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return badRequest(c, "Current and new password are required")
	}
	if err := s.Profiles.ChangePassword(c.UserContext(), caller(c), req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err, "")
	}
	return c.JSON(fiber.Map{"success": true})
}

func (s *Server) handleDeleteAccount(c *fiber.Ctx) error {
	var req DeleteAccountRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	ctx := c.UserContext()
	sess := caller(c)
	before, err := s.Profiles.Load(ctx, sess)
	if err != nil {
		return fail(c, err, prefixDelete)
	}
	if err := s.Profiles.DeleteAccount(ctx, sess, req.CurrentPassword); err != nil {
		return fail(c, err, prefixDelete)
	}

	s.Auth.Forget(ctx, sess.ID)
	s.clearTokenCookie(c)
	if before != nil {
		s.dropAvatar(c, before.AvatarURL)
	}
	return c.JSON(fiber.Map{"success": true})
}

// handleUploadAvatar accepts a multipart "avatar" file or a JSON {"url"} to
// copy into the avatar store, then points the profile at it.
func (s *Server) handleUploadAvatar(c *fiber.Ctx) error {
	if s.Avatars == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": "Avatar uploads are disabled"})
	}
	ctx := c.UserContext()
	sess := caller(c)

	var (
		publicURL string
		err       error
	)
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, ferr := c.FormFile("avatar")
		if ferr != nil {
			return badRequest(c, "An avatar file is required")
		}
		f, ferr := fh.Open()
		if ferr != nil {
			return fail(c, ferr, "")
		}
		data, ferr := io.ReadAll(f)
		f.Close()
		if ferr != nil {
			return fail(c, ferr, "")
		}
		publicURL, err = s.Avatars.StoreFromBytes(ctx, sess.Identity.ID, data)
	} else {
		var req AvatarURLRequest
		if perr := c.BodyParser(&req); perr != nil || strings.TrimSpace(req.URL) == "" {
			return badRequest(c, "An avatar file or url is required")
		}
		publicURL, err = s.Avatars.StoreFromURL(ctx, sess.Identity.ID, strings.TrimSpace(req.URL))
	}
	if err != nil {
		return fail(c, err, "")
	}

	before, _ := s.Profiles.Load(ctx, sess)
	if err := s.Profiles.Save(ctx, sess, models.ProfileDelta{AvatarURL: models.Set(publicURL)}); err != nil {
		s.dropAvatar(c, publicURL)
		return fail(c, err, "")
	}
	if before != nil && before.AvatarURL != publicURL {
		s.dropAvatar(c, before.AvatarURL)
	}
	return c.JSON(fiber.Map{"avatarUrl": publicURL})
}

// dropAvatar removes an uploaded avatar file. Foreign URLs are left alone.
func (s *Server) dropAvatar(c *fiber.Ctx, url string) {
	if s.Avatars == nil || !s.Avatars.Owns(url) {
		return
	}
	if err := s.Avatars.Delete(c.UserContext(), url); err != nil && !errors.Is(err, avatar.ErrForeignPath) {
		slog.Warn("Failed to remove avatar file", "url", url, "error", err)
	}
}

func (s *Server) handleLogSession(c *fiber.Ctx) error {
	var in models.SessionInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "Invalid request body")
	}
	rec, err := s.Sessions.Log(c.UserContext(), caller(c), in)
	if err != nil {
		return fail(c, err, "")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": rec})
}

func (s *Server) handleRecentSessions(c *fiber.Ctx) error {
	max := c.QueryInt("max", models.DefaultRecentSessions)
	recs, err := s.Sessions.LoadRecent(c.UserContext(), caller(c), max)
	if err != nil {
		return fail(c, err, "")
	}
	return c.JSON(fiber.Map{"sessions": recs})
}
