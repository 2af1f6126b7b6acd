// Package queue defines message payloads exchanged over the message broker.
package queue

// Diagram lifecycle event types.
const (
	DiagramCreated = "diagram.created"
	DiagramUpdated = "diagram.updated"
	DiagramDeleted = "diagram.deleted"
)

// DiagramEvent is published after a diagram write commits.  It carries
// enough to audit the change without querying the primary database.
type DiagramEvent struct {
	Type        string `json:"type"`
	DiagramID   int64  `json:"diagram_id"`
	PackageID   int64  `json:"package_id,omitempty"`
	Name        string `json:"name,omitempty"`
	DiagramType string `json:"diagram_type,omitempty"`
	Actor       string `json:"actor,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}
