package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"field-capture-ingest/internal/platform/httperr"
	"field-capture-ingest/internal/security"
)

const bearerPrefix = "bearer "

// Auth rejects requests without a valid Bearer token with 401 and stores the token subject in the
// request context. A nil verifier disables the check.
func Auth(v *security.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if v == nil {
			return c.Next()
		}
		token := extractBearer(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return httperr.New(fiber.StatusUnauthorized, "missing or invalid authorization")
		}
		claims, err := v.Verify(token)
		if err != nil {
			return httperr.Wrap(fiber.StatusUnauthorized, "missing or invalid authorization", err)
		}
		c.SetUserContext(WithSubject(c.UserContext(), claims.Subject))
		return c.Next()
	}
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
