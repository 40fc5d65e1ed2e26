package supabase

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/illegalcall/fittrack/internal/identity"
)

// GoTrue error codes that map onto identity sentinels.
var codeErrors = map[string]error{
	"invalid_credentials": identity.ErrInvalidCredentials,
	"invalid_grant":       identity.ErrInvalidCredentials,
	"user_already_exists": identity.ErrEmailExists,
	"email_exists":        identity.ErrEmailExists,
	"weak_password":       identity.ErrWeakPassword,
	"user_not_found":      identity.ErrUnknownIdentity,
	"bad_jwt":             identity.ErrInvalidToken,
	"session_not_found":   identity.ErrInvalidToken,
}

// providerError turns a gotrue-go error ("response status code N: {json}")
// into the provider's own message, wrapping the matching identity sentinel
// when the error code is known.
func providerError(op string, err error) error {
	if err == nil {
		return nil
	}
	raw := err.Error()
	i := strings.IndexByte(raw, '{')
	if i < 0 || !gjson.Valid(raw[i:]) {
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	body := gjson.Parse(raw[i:])

	msg := firstString(body, "msg", "message", "error_description", "error")
	code := firstString(body, "error_code", "error")
	if sentinel, ok := codeErrors[code]; ok {
		if msg == "" {
			return sentinel
		}
		return fmt.Errorf("%w: %s", sentinel, msg)
	}
	if msg == "" {
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	return errors.New(msg)
}

func firstString(body gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := body.Get(p); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
