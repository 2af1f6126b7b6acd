package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/diagram-service/internal/auth"
	"github.com/iliyamo/diagram-service/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/diagram-service/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that never require authentication: the
// liveness probe, Prometheus metrics and the hello endpoint.
func RegisterRoutes(e *echo.Echo) {
	// Map GET /healthz to the liveness handler.  Load balancers hit this
	// endpoint and it must not depend on the database or the secret store.
	e.GET("/healthz", handler.Health)
	// Expose the Prometheus registry for scraping.
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/api/hello", handler.Hello)
	e.POST("/api/hello", handler.Hello)
}

// RegisterHealth registers the diagnostic endpoints under /api/health.  They
// are not cached or authenticated so monitors always see live state.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	g := e.Group("/api/health")
	g.GET("", h.KeyVault)
	g.GET("/detailed", h.Detailed)
	g.GET("/database", h.Database)
	g.GET("/status", h.Status)
}

// DiagramOptions carries the middleware applied to /api/diagrams.
type DiagramOptions struct {
	JWTSecret string                 // empty leaves the routes open
	Cache     *middleware.RedisCache // nil disables read caching
	RateLimit echo.MiddlewareFunc    // optional
}

// RegisterDiagrams registers the diagram CRUD routes.  All five verbs share
// one path; the diagram is addressed with ?diagram_id=N.
func RegisterDiagrams(e *echo.Echo, d *handler.DiagramHandler, opts DiagramOptions) {
	var mws []echo.MiddlewareFunc
	if opts.JWTSecret != "" {
		// Authenticate every request, then restrict writes to editors and
		// admins.  Viewers may still read.
		mws = append(mws,
			middleware.JWTAuth(opts.JWTSecret),
			middleware.RequireRoleForWrites(auth.RoleEditor, auth.RoleAdmin),
		)
	}
	// The limiter keys on the token subject, so it runs after JWTAuth.
	if opts.RateLimit != nil {
		mws = append(mws, opts.RateLimit)
	}
	g := e.Group("/api/diagrams", mws...)

	// Reads go through the cache, which keys on the caller so it must run
	// after authentication.
	g.GET("", d.Read, opts.Cache.Middleware())
	g.POST("", d.Create)
	g.PUT("", d.Update)
	g.PATCH("", d.Update)
	g.DELETE("", d.Delete)
}
