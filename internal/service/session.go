package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	dlotel "github.com/doclens/doclens/internal/adapter/otel"
	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/agent"
	"github.com/doclens/doclens/internal/domain/todo"
	"github.com/doclens/doclens/internal/port/broadcast"
	"github.com/doclens/doclens/internal/port/eventbus"
)

// SessionState is the lifecycle state of one analysis session.
type SessionState string

const (
	SessionRunning    SessionState = "running"
	SessionCompleted  SessionState = "completed"
	SessionFailed     SessionState = "failed"
	SessionSuperseded SessionState = "superseded"
)

// Event types pushed to WebSocket clients for session activity.
const (
	EventTodoUpdated    = "todo.updated"
	EventAnalysisStatus = "analysis.status"
)

// Session is one analysis run with its private gate, todos, and workspace.
type Session struct {
	ID        string       `json:"id"`
	Task      string       `json:"task"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`

	Gate      *Gate          `json:"-"`
	Todos     *todo.Tracker  `json:"-"`
	Workspace *Workspace     `json:"-"`
	Result    *agent.Result  `json:"-"`
	cancel    context.CancelFunc
}

// SessionStatus is the operator-facing snapshot of a session.
type SessionStatus struct {
	ID               string            `json:"id"`
	Task             string            `json:"task"`
	State            SessionState      `json:"state"`
	Todos            []todo.Item       `json:"todos"`
	TodoRender       string            `json:"todo_render"`
	PendingApprovals int               `json:"pending_approvals"`
	Result           *agent.Result     `json:"result,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Sessions is the registry of analysis sessions. At most one session runs at
// a time; starting a new one supersedes the current run and cancels whatever
// it had pending at the gate.
type Sessions struct {
	builder     *Builder
	bus         eventbus.Bus
	broadcaster broadcast.Broadcaster
	log         *slog.Logger

	mu      sync.Mutex
	current *Session
	byID    map[string]*Session
}

// NewSessions creates the session registry. Bus and Broadcaster may be nil.
func NewSessions(builder *Builder, bus eventbus.Bus, broadcaster broadcast.Broadcaster, log *slog.Logger) *Sessions {
	if log == nil {
		log = slog.Default()
	}
	return &Sessions{
		builder:     builder,
		bus:         bus,
		broadcaster: broadcaster,
		log:         log,
		byID:        make(map[string]*Session),
	}
}

// Start launches a new analysis session for task. A running session is
// superseded first: its context is cancelled and its pending approvals are
// resolved as cancelled so no blocked agent executes against stale intent.
func (s *Sessions) Start(ctx context.Context, task string) (*Session, error) {
	s.mu.Lock()
	if cur := s.current; cur != nil && cur.State == SessionRunning {
		cur.State = SessionSuperseded
		cur.cancel()
		s.mu.Unlock()
		cur.Gate.CancelPending(ctx)
		s.emitStatus(ctx, cur)
		s.log.Info("session superseded", "session_id", cur.ID)
		s.mu.Lock()
	}
	s.mu.Unlock()

	id := uuid.NewString()
	orch, gate, tracker, workspace, err := s.builder.Build(id)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess := &Session{
		ID:        id,
		Task:      task,
		State:     SessionRunning,
		CreatedAt: time.Now().UTC(),
		Gate:      gate,
		Todos:     tracker,
		Workspace: workspace,
		cancel:    cancel,
	}
	tracker.OnChange(func(items []todo.Item) {
		s.emitTodos(runCtx, id, items)
	})

	s.mu.Lock()
	s.byID[id] = sess
	s.current = sess
	s.mu.Unlock()

	s.log.Info("session started", "session_id", id, "task_len", len(task))
	s.emitStatus(ctx, sess)
	if m := s.builder.metrics; m != nil {
		m.SessionsStarted.Add(ctx, 1)
	}

	go func() {
		defer cancel()
		spanCtx, span := dlotel.StartSessionSpan(runCtx, id)
		res := orch.Run(spanCtx, task)

		s.mu.Lock()
		sess.Result = res
		if sess.State == SessionRunning {
			if res.Termination == agent.TerminationFailed {
				sess.State = SessionFailed
			} else {
				sess.State = SessionCompleted
			}
		}
		state := sess.State
		s.mu.Unlock()

		span.SetAttributes(attribute.String("session.state", string(state)))
		span.End()
		if m := s.builder.metrics; m != nil {
			bg := context.Background()
			m.SessionDuration.Record(bg, time.Since(sess.CreatedAt).Seconds(), metric.WithAttributes(
				attribute.String("state", string(state)),
			))
			switch state {
			case SessionFailed:
				m.SessionsFailed.Add(bg, 1)
			case SessionCompleted:
				m.SessionsCompleted.Add(bg, 1)
			}
		}

		s.log.Info("session finished",
			"session_id", id,
			"state", state,
			"termination", res.Termination,
			"steps", res.Steps,
		)
		s.emitStatus(context.Background(), sess)
	}()
	return sess, nil
}

// Get returns a session by id.
func (s *Sessions) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", id, domain.ErrNotFound)
	}
	return sess, nil
}

// Current returns the most recently started session, or nil.
func (s *Sessions) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Status returns the operator snapshot of a session.
func (s *Sessions) Status(id string) (SessionStatus, error) {
	sess, err := s.Get(id)
	if err != nil {
		return SessionStatus{}, err
	}

	s.mu.Lock()
	state := sess.State
	result := sess.Result
	s.mu.Unlock()

	return SessionStatus{
		ID:               sess.ID,
		Task:             sess.Task,
		State:            state,
		Todos:            sess.Todos.List(),
		TodoRender:       sess.Todos.Render(),
		PendingApprovals: len(sess.Gate.ListPending()),
		Result:           result,
		CreatedAt:        sess.CreatedAt,
	}, nil
}

func (s *Sessions) emitStatus(ctx context.Context, sess *Session) {
	s.mu.Lock()
	payload := map[string]any{
		"session_id": sess.ID,
		"state":      sess.State,
	}
	if sess.Result != nil {
		payload["termination"] = sess.Result.Termination
	}
	s.mu.Unlock()

	s.emit(ctx, eventbus.SubjectAnalysisStatus, EventAnalysisStatus, payload)
}

func (s *Sessions) emitTodos(ctx context.Context, sessionID string, items []todo.Item) {
	s.emit(ctx, eventbus.SubjectTodoUpdated, EventTodoUpdated, map[string]any{
		"session_id": sessionID,
		"todos":      items,
	})
}

func (s *Sessions) emit(ctx context.Context, subject, eventType string, payload any) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(ctx, eventType, payload)
	}
	if s.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, data); err != nil {
		s.log.Warn("publish session event failed", "subject", subject, "error", err)
	}
}
