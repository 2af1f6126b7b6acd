package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/diagram-service/internal/health"
)

// Health is the liveness endpoint used by load balancers.  It never touches
// a dependency and always answers a plain "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthHandler serves the diagnostic endpoints under /api/health.
type HealthHandler struct {
	Checker *health.Checker
}

// NewHealthHandler constructs a HealthHandler and panics if checker is nil.
func NewHealthHandler(checker *health.Checker) *HealthHandler {
	if checker == nil {
		panic("nil checker passed to NewHealthHandler")
	}
	return &HealthHandler{Checker: checker}
}

// writeHealth sends a report with the status headers monitors key off.
func writeHealth(c echo.Context, status health.Status, report any) error {
	h := c.Response().Header()
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Health-Status", string(status))
	return c.JSON(status.HTTPStatus(), report)
}

// KeyVault handles GET /api/health.
func (h *HealthHandler) KeyVault(c echo.Context) error {
	rep := h.Checker.KeyVault(c.Request().Context())
	return writeHealth(c, rep.OverallStatus, rep)
}

// Detailed handles GET /api/health/detailed.
func (h *HealthHandler) Detailed(c echo.Context) error {
	rep := h.Checker.Detailed(c.Request().Context())
	return writeHealth(c, rep.OverallStatus, rep)
}

// Database handles GET /api/health/database.
func (h *HealthHandler) Database(c echo.Context) error {
	rep := h.Checker.Database(c.Request().Context())
	return writeHealth(c, rep.OverallStatus, rep)
}

// Status handles GET /api/health/status.
func (h *HealthHandler) Status(c echo.Context) error {
	rep := h.Checker.ServiceStatus(c.Request().Context())
	return writeHealth(c, rep.Status, rep)
}
