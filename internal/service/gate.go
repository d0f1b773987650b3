// Package service holds the application services: the approval gate, the
// sandboxed workspace, the agent loops, and the session registry.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	dlotel "github.com/doclens/doclens/internal/adapter/otel"
	"github.com/doclens/doclens/internal/domain"
	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/broadcast"
	"github.com/doclens/doclens/internal/port/eventbus"
)

// ErrAlreadyResolved is returned when a disposition arrives for a request
// that already has one. The first disposition always wins.
var ErrAlreadyResolved = errors.New("approval request already resolved")

// Event types pushed to WebSocket clients.
const (
	EventApprovalRequested = "approval.requested"
	EventApprovalResolved  = "approval.resolved"
)

// Gate suspends agent actions until a human disposition arrives. Every gated
// tool call flows through Submit and Await; operators answer through Resolve.
type Gate struct {
	timeout      time.Duration
	historyLimit int
	bus          eventbus.Bus
	broadcaster  broadcast.Broadcaster
	metrics      *dlotel.Metrics
	log          *slog.Logger

	mu      sync.Mutex
	pending map[string]*approval.Request
	history []approval.Request
	waiters map[string]chan approval.Request
}

// GateOptions configures a Gate. Bus, Broadcaster, and Metrics may be nil.
type GateOptions struct {
	Timeout      time.Duration
	HistoryLimit int
	Bus          eventbus.Bus
	Broadcaster  broadcast.Broadcaster
	Metrics      *dlotel.Metrics
	Logger       *slog.Logger
}

// NewGate creates an approval gate.
func NewGate(opts GateOptions) *Gate {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Gate{
		timeout:      opts.Timeout,
		historyLimit: opts.HistoryLimit,
		bus:          opts.Bus,
		broadcaster:  opts.Broadcaster,
		metrics:      opts.Metrics,
		log:          log,
		pending:      make(map[string]*approval.Request),
		waiters:      make(map[string]chan approval.Request),
	}
}

// Submit registers a proposed action and returns the pending request. The
// action has not happened yet; the caller must Await the disposition before
// executing anything.
func (g *Gate) Submit(ctx context.Context, category approval.Category, payload json.RawMessage, actor, detail string, highlights json.RawMessage) *approval.Request {
	req := &approval.Request{
		ID:          uuid.NewString(),
		Category:    category,
		Payload:     payload,
		Actor:       actor,
		Description: approval.Describe(actor, category, detail),
		Highlights:  highlights,
		Status:      approval.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	g.mu.Lock()
	g.pending[req.ID] = req
	g.waiters[req.ID] = make(chan approval.Request, 1)
	g.mu.Unlock()

	g.log.Info("approval requested",
		"approval_id", req.ID,
		"category", req.Category,
		"actor", req.Actor,
	)
	g.emit(ctx, eventbus.SubjectApprovalRequested, EventApprovalRequested, *req)
	return req
}

// Await blocks until the request receives a disposition, the gate timeout
// expires, or ctx is cancelled. Timeout and cancellation resolve the request
// as rejected so the record stays consistent with what the agent observed.
func (g *Gate) Await(ctx context.Context, id string) (approval.Request, error) {
	g.mu.Lock()
	ch, ok := g.waiters[id]
	g.mu.Unlock()
	if !ok {
		// Resolved before the agent began waiting; the disposition is in history.
		if req, err := g.Get(id); err == nil && req.Status != approval.StatusPending {
			return req, nil
		}
		return approval.Request{}, fmt.Errorf("await approval %s: %w", id, domain.ErrNotFound)
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case resolved := <-ch:
		return resolved, nil
	case <-timer.C:
		return g.autoReject(ctx, id, "approval timed out")
	case <-ctx.Done():
		return g.autoReject(context.WithoutCancel(ctx), id, "caller cancelled")
	}
}

// autoReject resolves a pending request as rejected on behalf of the system.
// If an operator disposition raced in first, that disposition is returned.
func (g *Gate) autoReject(ctx context.Context, id, feedback string) (approval.Request, error) {
	resolved, err := g.Resolve(ctx, id, approval.RespondRequest{
		Status:   approval.StatusRejected,
		Feedback: feedback,
	})
	if errors.Is(err, ErrAlreadyResolved) || errors.Is(err, domain.ErrNotFound) {
		// The operator won the race. Their disposition is either sitting in
		// the buffered channel or already committed to history.
		g.mu.Lock()
		ch := g.waiters[id]
		g.mu.Unlock()
		if ch != nil {
			select {
			case r := <-ch:
				return r, nil
			default:
			}
		}
		if req, getErr := g.Get(id); getErr == nil && req.Status != approval.StatusPending {
			return req, nil
		}
		return approval.Request{}, err
	}
	if err != nil {
		return approval.Request{}, err
	}
	return resolved, nil
}

// Resolve applies an operator disposition to a pending request. Exactly one
// disposition lands per request; later attempts get ErrAlreadyResolved.
func (g *Gate) Resolve(ctx context.Context, id string, resp approval.RespondRequest) (approval.Request, error) {
	if err := resp.Validate(); err != nil {
		return approval.Request{}, err
	}

	g.mu.Lock()
	req, ok := g.pending[id]
	if !ok {
		g.mu.Unlock()
		if g.inHistory(id) {
			return approval.Request{}, ErrAlreadyResolved
		}
		return approval.Request{}, fmt.Errorf("resolve approval %s: %w", id, domain.ErrNotFound)
	}
	delete(g.pending, id)

	req.Status = resp.Status
	req.Feedback = resp.Feedback
	req.ResolvedAt = time.Now().UTC()
	if resp.Status == approval.StatusEdited {
		req.Payload = resp.Payload
	}
	resolved := *req
	g.appendHistoryLocked(resolved)

	ch := g.waiters[id]
	delete(g.waiters, id)
	g.mu.Unlock()

	if ch != nil {
		select {
		case ch <- resolved:
		default:
		}
	}

	g.log.Info("approval resolved",
		"approval_id", id,
		"status", resolved.Status,
		"category", resolved.Category,
	)
	if g.metrics != nil {
		g.metrics.ApprovalsResolved.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", string(resolved.Status)),
			attribute.String("category", string(resolved.Category)),
		))
	}
	g.emit(ctx, eventbus.SubjectApprovalResolved, EventApprovalResolved, resolved)
	return resolved, nil
}

// CancelPending resolves every pending request as cancelled. Called when a
// session is superseded; blocked agents observe a cancelled disposition and
// unwind without executing their action.
func (g *Gate) CancelPending(ctx context.Context) int {
	g.mu.Lock()
	ids := make([]string, 0, len(g.pending))
	for id := range g.pending {
		ids = append(ids, id)
	}
	g.mu.Unlock()

	for _, id := range ids {
		g.mu.Lock()
		req, ok := g.pending[id]
		if !ok {
			g.mu.Unlock()
			continue
		}
		delete(g.pending, id)
		req.Status = approval.StatusCancelled
		req.Feedback = "session superseded"
		req.ResolvedAt = time.Now().UTC()
		resolved := *req
		g.appendHistoryLocked(resolved)
		ch := g.waiters[id]
		delete(g.waiters, id)
		g.mu.Unlock()

		if ch != nil {
			select {
			case ch <- resolved:
			default:
			}
		}
		g.emit(ctx, eventbus.SubjectApprovalResolved, EventApprovalResolved, resolved)
	}
	if len(ids) > 0 {
		g.log.Info("pending approvals cancelled", "count", len(ids))
	}
	return len(ids)
}

// Get returns a request by id, pending or resolved.
func (g *Gate) Get(id string) (approval.Request, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if req, ok := g.pending[id]; ok {
		return *req, nil
	}
	for _, req := range g.history {
		if req.ID == id {
			return req, nil
		}
	}
	return approval.Request{}, fmt.Errorf("get approval %s: %w", id, domain.ErrNotFound)
}

// ListPending returns all pending requests, oldest first.
func (g *Gate) ListPending() []approval.Request {
	g.mu.Lock()
	out := make([]approval.Request, 0, len(g.pending))
	for _, req := range g.pending {
		out = append(out, *req)
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// History returns resolved requests in resolution order, newest last. A
// positive limit restricts the result to the most recent limit entries; the
// retained window is capped at the history limit either way.
func (g *Gate) History(limit int) []approval.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]approval.Request, n)
	copy(out, g.history[len(g.history)-n:])
	return out
}

func (g *Gate) appendHistoryLocked(req approval.Request) {
	g.history = append(g.history, req)
	if len(g.history) > g.historyLimit {
		g.history = g.history[len(g.history)-g.historyLimit:]
	}
}

func (g *Gate) inHistory(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, req := range g.history {
		if req.ID == id {
			return true
		}
	}
	return false
}

func (g *Gate) emit(ctx context.Context, subject, eventType string, req approval.Request) {
	if g.broadcaster != nil {
		g.broadcaster.BroadcastEvent(ctx, eventType, req)
	}
	if g.bus == nil {
		return
	}
	data, err := json.Marshal(req)
	if err != nil {
		g.log.Warn("marshal approval event failed", "approval_id", req.ID, "error", err)
		return
	}
	if err := g.bus.Publish(ctx, subject, data); err != nil {
		g.log.Warn("publish approval event failed",
			"subject", subject,
			"approval_id", req.ID,
			"error", err,
		)
	}
}
