package api

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	jwtv4 "github.com/golang-jwt/jwt/v4"

	"github.com/illegalcall/fittrack/internal/auth"
)

// TokenCookie carries the login token for server-rendered pages.
const TokenCookie = "fittrack_token"

const sessionLocal = "session"

// requireSession validates the bearer token (or the page cookie) and binds
// the live login session to the request. A token whose session was logged
// out is rejected.
func (s *Server) requireSession() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:    []byte(s.cfg.JWT.Secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization,cookie:" + TokenCookie,
		AuthScheme:    "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Debug("Rejected bearer token", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or invalid token",
			})
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwtv4.Token)
			if !ok {
				return unauthorized(c)
			}
			claims, ok := token.Claims.(jwtv4.MapClaims)
			if !ok {
				return unauthorized(c)
			}
			if iss, _ := claims["iss"].(string); iss != s.cfg.JWT.Issuer {
				return unauthorized(c)
			}
			sess, err := s.Auth.Resolve(c.UserContext(), auth.ClaimsFromMap(claims))
			if err != nil {
				slog.Error("Failed to resolve session", "error", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Failed to resolve session",
				})
			}
			if sess == nil {
				return unauthorized(c)
			}
			c.Locals(sessionLocal, sess)
			return c.Next()
		},
	})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Session expired or signed out",
	})
}

// caller is the session bound by requireSession, or nil on public routes.
func caller(c *fiber.Ctx) *auth.Session {
	sess, _ := c.Locals(sessionLocal).(*auth.Session)
	return sess
}

// pageSession resolves the page cookie, or a bearer header, without
// rejecting anonymous visitors.
func (s *Server) pageSession(c *fiber.Ctx) *auth.Session {
	raw := c.Cookies(TokenCookie)
	if raw == "" {
		raw = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	}
	sess, err := s.Auth.Authenticate(c.UserContext(), raw)
	if err != nil {
		slog.Warn("Page session lookup failed", "error", err)
		return nil
	}
	return sess
}
