package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Hello handles GET and POST /api/hello.  A POST body with a name field
// personalises the greeting.
func Hello(c echo.Context) error {
	body := echo.Map{
		"message": "Hello, World!",
		"method":  c.Request().Method,
	}
	if c.Request().Method == http.MethodPost {
		var req map[string]any
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
			body["message"] = "Hello, World! (No valid JSON body provided)"
		} else if name, ok := req["name"]; ok && name != nil {
			body["message"] = "Hello, " + toString(name) + "!"
			body["received_name"] = name
		}
	}
	return success(c, http.StatusOK, body)
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
