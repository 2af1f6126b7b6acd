package handler // handler defines http handlers

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Timestamp renders t the way every response envelope carries it: ISO-8601
// in UTC with a Z suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// success writes the standard success envelope.  body supplies the payload
// keys; status and timestamp are filled in unless already present.
func success(c echo.Context, code int, body echo.Map) error {
	body["status"] = "success"
	if _, ok := body["timestamp"]; !ok {
		body["timestamp"] = Timestamp(time.Now())
	}
	return c.JSON(code, body)
}

// queryInt64 parses an optional integer query parameter.  ok is false when
// the parameter is absent or blank.
func queryInt64(c echo.Context, name string) (v int64, ok bool, err error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, invalid("%s must be a valid integer", name)
	}
	return v, true, nil
}

// requireDiagramID reads the mandatory diagram_id query parameter.
func requireDiagramID(c echo.Context) (int64, error) {
	id, ok, err := queryInt64(c, "diagram_id")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, invalid("diagram_id is required as a query parameter")
	}
	return id, nil
}

// decodeJSON reads the request body into dst.  An empty or malformed body
// is a validation error.
func decodeJSON(c echo.Context, dst any) error {
	if err := json.NewDecoder(c.Request().Body).Decode(dst); err != nil {
		return invalid("Invalid JSON in request body")
	}
	return nil
}

// subject returns the authenticated caller, or "" when auth is disabled.
func subject(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok {
		return s
	}
	return ""
}
