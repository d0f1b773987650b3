package tool

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/domain/todo"
)

// WriteTodos updates the shared todo list. The submitted list is merged
// positionally: existing indexes get their status updated, trailing items are
// appended. Indexes never shrink, so operators watching the list keep stable
// numbering for the whole session.
type WriteTodos struct {
	Tracker *todo.Tracker
}

type writeTodosArgs struct {
	Todos []todo.Item `json:"todos"`
}

func (t *WriteTodos) Name() string { return "write_todos" }

func (t *WriteTodos) Description() string {
	return "Update the todo list that tracks analysis progress. Input: the full list of " +
		"todos, each with a task and a status of pending or completed. Existing items " +
		"keep their position; new items are appended."
}

func (t *WriteTodos) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"todos": {
				"type": "array",
				"items": {
					"type": "object",
					"properties": {
						"task": {"type": "string"},
						"status": {"type": "string", "enum": ["pending", "completed"]}
					},
					"required": ["task", "status"]
				},
				"description": "The full todo list"
			}
		},
		"required": ["todos"]
	}`)
}

func (t *WriteTodos) GatedCategory() (approval.Category, bool) {
	return approval.CategoryTodoUpdate, true
}

func (t *WriteTodos) Highlights(args json.RawMessage) json.RawMessage {
	return args
}

func (t *WriteTodos) Execute(_ context.Context, args json.RawMessage) Result {
	var in writeTodosArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return Errf(KindInvalidArgs, "todos is required")
	}
	for i, item := range in.Todos {
		if strings.TrimSpace(item.Task) == "" {
			return Errf(KindInvalidArgs, "todo %d has an empty task", i+1)
		}
		switch item.Status {
		case todo.StatusPending, todo.StatusCompleted:
		default:
			return Errf(KindInvalidArgs, "todo %d has invalid status %q", i+1, item.Status)
		}
	}

	existing := t.Tracker.List()
	for i, item := range in.Todos {
		if i < len(existing) {
			if existing[i].Status != item.Status {
				t.Tracker.SetStatus(i, item.Status)
			}
			continue
		}
		idx := t.Tracker.Add(item.Task)
		if item.Status == todo.StatusCompleted {
			t.Tracker.SetStatus(idx, item.Status)
		}
	}
	return OK(t.Tracker.Render())
}
