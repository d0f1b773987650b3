// Package eventbus defines the port for publishing state-change events.
// Approval and analysis mutations emit events; subscribers (the WebSocket
// bridge, external consumers) receive them instead of re-polling state.
package eventbus

import "context"

// Subjects for DocLens events.
const (
	SubjectApprovalRequested = "approvals.requested"
	SubjectApprovalResolved  = "approvals.resolved"
	SubjectTodoUpdated       = "analysis.todo"
	SubjectAnalysisStatus    = "analysis.status"
)

// Handler processes one received event.
type Handler func(ctx context.Context, subject string, data []byte) error

// Bus publishes and subscribes to DocLens events.
type Bus interface {
	Publish(ctx context.Context, subject string, data []byte) error
	// Subscribe registers a handler for a subject pattern and returns a stop function.
	Subscribe(ctx context.Context, subject string, handler Handler) (func(), error)
	Close() error
}
