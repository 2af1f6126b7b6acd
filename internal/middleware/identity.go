package middleware

// identity.go holds the caller-identity helper shared by the rate limiter and
// cache keys.

import "github.com/labstack/echo/v4"

// callerID returns the subject JWTAuth stored in the context, or "anon" when
// the request is unauthenticated.
func callerID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anon"
}
