// Package agent defines the execution-loop entities: agent specs, budgets,
// delegation quotas, and run results.
package agent

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// TerminationReason explains why an execution loop stopped.
type TerminationReason string

const (
	// TerminationDone means the model emitted a final answer.
	TerminationDone TerminationReason = "done"
	// TerminationBudgetExceeded means the iteration or wall-clock cap was hit.
	// This is not a failure; the result carries whatever partial output exists.
	TerminationBudgetExceeded TerminationReason = "budget_exceeded"
	// TerminationFailed means the model invocation itself faulted.
	TerminationFailed TerminationReason = "failed"
)

// Spec describes one agent: its identity, model, and budgets.
// Subordinates are attached by the orchestrator, not listed here.
type Spec struct {
	Name          string        `json:"name"`
	Model         string        `json:"model"`
	SystemPrompt  string        `json:"-"`
	MaxIterations int           `json:"max_iterations"`
	MaxDuration   time.Duration `json:"max_duration,omitempty"` // zero means no wall-clock cap
}

// Validate checks that a Spec is runnable.
func (s *Spec) Validate() error {
	if s.Name == "" {
		return errors.New("agent name is required")
	}
	if s.Model == "" {
		return errors.New("agent model is required")
	}
	if s.MaxIterations <= 0 {
		return errors.New("max_iterations must be positive")
	}
	return nil
}

// TraceEntry records one tool invocation within a run. The ordered trace is
// the only audit trail of what the agent actually did, which matters because
// gated actions may have been approved, edited, or rejected mid-run.
type TraceEntry struct {
	Tool   string          `json:"tool"`
	Args   json.RawMessage `json:"args"`
	Result string          `json:"result"`
}

// Result is the output contract of one execution loop run.
type Result struct {
	Output      string            `json:"output"`
	Termination TerminationReason `json:"termination"`
	Trace       []TraceEntry      `json:"trace"`
	Steps       int               `json:"steps"`
}

// Quota is a per-session ceiling on how many times a coordinator may invoke
// a specific subordinate. Consumption is monotonic; it is never replenished
// within a session.
type Quota struct {
	mu        sync.Mutex
	unbounded bool
	remaining int
}

// UnboundedQuota returns a quota that never exhausts.
func UnboundedQuota() *Quota {
	return &Quota{unbounded: true}
}

// NewQuota returns a quota capped at n invocations.
func NewQuota(n int) *Quota {
	return &Quota{remaining: n}
}

// Consume atomically checks and decrements the quota. It returns false when
// the quota is exhausted; a quota of 1 is never consumed twice even when two
// delegation attempts race.
func (q *Quota) Consume() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unbounded {
		return true
	}
	if q.remaining <= 0 {
		return false
	}
	q.remaining--
	return true
}

// Remaining reports the current quota state for status display.
// The boolean is true when the quota is unbounded.
func (q *Quota) Remaining() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.remaining, q.unbounded
}
