package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/illegalcall/fittrack/internal/models"
)

// ErrInvalidToken is returned by Parse for malformed, expired or foreign tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is what the service reads back out of an issued token.
type Claims struct {
	Subject   string
	Email     string
	SessionID string
}

// TokenManager issues and verifies signed JWTs bound to a login session.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a manager with the provided secret, issuer, and lifetime.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed JWT for the identity and its login session.
func (t *TokenManager) Generate(id models.Identity, sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   t.issuer,
		"sub":   id.ID,
		"email": id.Email,
		"sid":   sessionID,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(t.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies the signature, issuer and expiry of raw.
func (t *TokenManager) Parse(raw string) (Claims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	return ClaimsFromMap(mc), nil
}

// ClaimsFromMap extracts the service claims from a decoded claim set. It is
// shared with the bearer middleware, which decodes tokens on its own.
func ClaimsFromMap(m map[string]interface{}) Claims {
	str := func(key string) string {
		v, _ := m[key].(string)
		return v
	}
	return Claims{Subject: str("sub"), Email: str("email"), SessionID: str("sid")}
}
