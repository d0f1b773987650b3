package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doclens/doclens/internal/port/eventbus"
)

// subjectEvents maps bus subjects to client-facing event types.
var subjectEvents = map[string]string{
	eventbus.SubjectApprovalRequested: "approval.requested",
	eventbus.SubjectApprovalResolved:  "approval.resolved",
	eventbus.SubjectTodoUpdated:       "todo.updated",
	eventbus.SubjectAnalysisStatus:    "analysis.status",
}

// Bridge subscribes the hub to the event bus so every published approval and
// analysis event reaches connected clients. It returns a stop function that
// tears down the subscriptions.
func Bridge(ctx context.Context, bus eventbus.Bus, hub *Hub) (func(), error) {
	stops := make([]func(), 0, 2)
	stopAll := func() {
		for _, stop := range stops {
			stop()
		}
	}

	handler := func(_ context.Context, subject string, data []byte) error {
		eventType, ok := subjectEvents[subject]
		if !ok {
			eventType = subject
		}
		hub.Broadcast(ctx, Message{Type: eventType, Payload: json.RawMessage(data)})
		return nil
	}

	for _, pattern := range []string{"approvals.>", "analysis.>"} {
		stop, err := bus.Subscribe(ctx, pattern, handler)
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("bridge subscribe %s: %w", pattern, err)
		}
		stops = append(stops, stop)
	}
	return stopAll, nil
}
