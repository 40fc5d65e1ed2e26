package api

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/illegalcall/fittrack/internal/auth"
)

const keepAliveInterval = 25 * time.Second

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res := s.Auth.Signup(c.UserContext(), strings.TrimSpace(req.Email), req.Password, strings.TrimSpace(req.Username))
	if !res.Success {
		return c.Status(fiber.StatusBadRequest).JSON(res)
	}
	s.setTokenCookie(c, res.Token)
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	res := s.Auth.Login(c.UserContext(), strings.TrimSpace(req.Email), req.Password)
	if !res.Success {
		return c.Status(fiber.StatusUnauthorized).JSON(res)
	}
	s.setTokenCookie(c, res.Token)
	return c.JSON(res)
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	res := s.Auth.Logout(c.UserContext(), caller(c).ID)
	s.clearTokenCookie(c)
	// The page header logs out with a plain form post.
	if ct := c.Get(fiber.HeaderContentType); strings.HasPrefix(ct, fiber.MIMEApplicationForm) || strings.HasPrefix(ct, fiber.MIMEMultipartForm) {
		return c.Redirect("/", fiber.StatusSeeOther)
	}
	if !res.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(res)
	}
	return c.JSON(res)
}

// handleAuthEvents streams the caller's session state as Server-Sent Events:
// the current state first, then every change until the session signs out or
// the client goes away.
func (s *Server) handleAuthEvents(c *fiber.Ctx) error {
	sid := caller(c).ID
	updates := make(chan auth.State, 8)
	unsubscribe := s.Auth.Subscribe(context.Background(), sid, func(st auth.State) {
		select {
		case updates <- st:
		default:
			slog.Warn("Dropping auth event for slow client", "session_id", sid)
		}
	})

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case st := <-updates:
				if err := writeEvent(w, st); err != nil {
					slog.Debug("Auth event stream closed", "session_id", sid, "error", err)
					return
				}
				if !st.SignedIn {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, st auth.State) error {
	payload, err := json.Marshal(authEvent(st))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: auth\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

// authEvent is the JSON shape of a session state change.
func authEvent(st auth.State) fiber.Map {
	ev := fiber.Map{"state": "signed-out"}
	if st.SignedIn {
		ev["state"] = "signed-in"
	}
	if st.Identity != nil {
		ev["user"] = st.Identity
	}
	return ev
}

func (s *Server) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.cfg.JWT.Expiration),
		HTTPOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(c *fiber.Ctx) {
	c.ClearCookie(TokenCookie)
}
