// Package health probes the service's dependencies and folds the results
// into one status and HTTP code.
package health

import "net/http"

// Status is the outcome of a probe or of a whole report.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// HTTPStatus maps a status to the response code monitors expect.  A degraded
// service is still available, so only unhealthy (and unknown) yield 503.
func (s Status) HTTPStatus() int {
	switch s {
	case StatusHealthy, StatusDegraded:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

// DualProbe reduces two independent probes: both ok is healthy, exactly one
// is degraded, neither is unhealthy.
func DualProbe(a, b bool) Status {
	switch {
	case a && b:
		return StatusHealthy
	case a || b:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}

// AllOrNothing is healthy when no error is present, unhealthy otherwise.
func AllOrNothing(errs ...error) Status {
	for _, err := range errs {
		if err != nil {
			return StatusUnhealthy
		}
	}
	return StatusHealthy
}

// SingleProbe is healthy without error and degraded with one.
func SingleProbe(err error) Status {
	if err != nil {
		return StatusDegraded
	}
	return StatusHealthy
}

// ProbeResult is the outcome of one dependency probe.
type ProbeResult struct {
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}
