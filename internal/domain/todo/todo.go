// Package todo provides the shared mutable todo list agents and operators both observe.
package todo

import (
	"fmt"
	"strings"
	"sync"
)

// Status represents the state of a single todo item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Item is one task on the list.
type Item struct {
	Task   string `json:"task"`
	Status Status `json:"status"`
}

// EmptyRender is returned by Render when the list holds no items.
const EmptyRender = "No todos yet."

// Tracker is an ordered, append-only todo list. Items are index-addressed;
// indexes are stable for the lifetime of a session (no deletion).
// Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	items    []Item
	onChange func([]Item)
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// OnChange registers a listener invoked with a snapshot after every mutation.
// Must be set before the tracker is shared.
func (t *Tracker) OnChange(fn func([]Item)) {
	t.onChange = fn
}

// Add appends a pending item and returns its index.
func (t *Tracker) Add(task string) int {
	t.mu.Lock()
	t.items = append(t.items, Item{Task: task, Status: StatusPending})
	idx := len(t.items) - 1
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snapshot)
	return idx
}

// SetStatus updates the item at index. Out-of-range indexes are a no-op,
// never an error, so stale client state cannot fault the caller.
func (t *Tracker) SetStatus(index int, status Status) {
	t.mu.Lock()
	if index < 0 || index >= len(t.items) {
		t.mu.Unlock()
		return
	}
	t.items[index].Status = status
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	t.notify(snapshot)
}

// List returns a snapshot of all items in insertion order.
func (t *Tracker) List() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Render formats the list for display: numbered lines with a completion
// glyph, the task text, and the status word.
func (t *Tracker) Render() string {
	items := t.List()
	if len(items) == 0 {
		return EmptyRender
	}

	var b strings.Builder
	b.WriteString("Current todos:\n")
	for i, item := range items {
		glyph := "○"
		if item.Status == StatusCompleted {
			glyph = "✓"
		}
		fmt.Fprintf(&b, "%d. [%s] %s (%s)\n", i+1, glyph, item.Task, item.Status)
	}
	return b.String()
}

func (t *Tracker) snapshotLocked() []Item {
	out := make([]Item, len(t.items))
	copy(out, t.items)
	return out
}

func (t *Tracker) notify(snapshot []Item) {
	if t.onChange != nil {
		t.onChange(snapshot)
	}
}
