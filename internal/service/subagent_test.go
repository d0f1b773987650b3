package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/doclens/doclens/internal/domain/agent"
	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/model"
	"github.com/doclens/doclens/internal/tool"
)

// scriptedClient replays a fixed sequence of completions and records every
// request it receives.
type scriptedClient struct {
	mu       sync.Mutex
	script   []*model.Completion
	err      error
	requests []*model.Request
}

func (c *scriptedClient) Complete(_ context.Context, req *model.Request) (*model.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.script) == 0 {
		return &model.Completion{Content: "fallback answer"}, nil
	}
	next := c.script[0]
	if len(c.script) > 1 {
		c.script = c.script[1:]
	}
	return next, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// echoTool is an ungated tool that records executions.
type echoTool struct {
	mu       sync.Mutex
	executed []json.RawMessage
}

func (e *echoTool) Name() string                             { return "echo" }
func (e *echoTool) Description() string                      { return "echo args" }
func (e *echoTool) InputSchema() json.RawMessage             { return json.RawMessage(`{"type":"object"}`) }
func (e *echoTool) GatedCategory() (approval.Category, bool) { return "", false }
func (e *echoTool) Execute(_ context.Context, args json.RawMessage) tool.Result {
	e.mu.Lock()
	e.executed = append(e.executed, args)
	e.mu.Unlock()
	return tool.OK("echo: " + string(args))
}

// gatedTool is a file-write-gated tool that records executions.
type gatedTool struct {
	mu       sync.Mutex
	executed []json.RawMessage
}

func (g *gatedTool) Name() string                 { return "write_file" }
func (g *gatedTool) Description() string          { return "write a file" }
func (g *gatedTool) InputSchema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (g *gatedTool) GatedCategory() (approval.Category, bool) {
	return approval.CategoryFileWrite, true
}
func (g *gatedTool) Execute(_ context.Context, args json.RawMessage) tool.Result {
	g.mu.Lock()
	g.executed = append(g.executed, args)
	g.mu.Unlock()
	return tool.OK("wrote")
}

func (g *gatedTool) executions() []json.RawMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]json.RawMessage(nil), g.executed...)
}

func newTestAgent(t *testing.T, client model.Client, gate *Gate, tools ...tool.Tool) *SubAgent {
	t.Helper()
	a, err := NewSubAgent(SubAgentOptions{
		Spec: agent.Spec{
			Name:          "analysis",
			Model:         "test-model",
			SystemPrompt:  "You analyze documents.",
			MaxIterations: 10,
		},
		Client:      client,
		Tools:       tool.NewRegistry(tools...),
		Gate:        gate,
		MaxParallel: 4,
	})
	if err != nil {
		t.Fatalf("new subagent: %v", err)
	}
	return a
}

// autoResolve answers every pending request with the given disposition until
// the test finishes.
func autoResolve(t *testing.T, g *Gate, resp approval.RespondRequest) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(10 * time.Millisecond):
			}
			for _, req := range g.ListPending() {
				g.Resolve(ctx, req.ID, resp)
			}
		}
	}()
}

func TestRunFinalAnswer(t *testing.T) {
	client := &scriptedClient{script: []*model.Completion{{Content: "The contract caps liability."}}}
	a := newTestAgent(t, client, nil)

	res := a.Run(context.Background(), "summarize")
	if res.Termination != agent.TerminationDone {
		t.Fatalf("termination = %q, want done", res.Termination)
	}
	if res.Output != "The contract caps liability." {
		t.Errorf("output = %q", res.Output)
	}
	if res.Steps != 1 {
		t.Errorf("steps = %d, want 1", res.Steps)
	}
	if client.requests[0].System != "You analyze documents." {
		t.Errorf("system prompt not passed through")
	}
}

func TestRunToolCallThenAnswer(t *testing.T) {
	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "echo", Args: json.RawMessage(`{"q":"x"}`)}}},
		{Content: "done"},
	}}
	echo := &echoTool{}
	a := newTestAgent(t, client, nil, echo)

	res := a.Run(context.Background(), "task")
	if res.Termination != agent.TerminationDone {
		t.Fatalf("termination = %q, want done", res.Termination)
	}
	if len(res.Trace) != 1 || res.Trace[0].Tool != "echo" {
		t.Fatalf("trace = %+v, want one echo entry", res.Trace)
	}
	if !strings.Contains(res.Trace[0].Result, `{"q":"x"}`) {
		t.Errorf("trace result = %q", res.Trace[0].Result)
	}

	// The tool result must be fed back as a tool-role message.
	second := client.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != model.RoleTool || last.ToolCallID != "c1" {
		t.Errorf("last message = %+v, want tool result for c1", last)
	}
}

func TestRunIterationBudget(t *testing.T) {
	// The model never stops calling tools; the loop must stop at the cap.
	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{{ID: "c", Name: "echo", Args: json.RawMessage(`{}`)}}},
	}}
	echo := &echoTool{}
	a, err := NewSubAgent(SubAgentOptions{
		Spec:   agent.Spec{Name: "analysis", Model: "m", MaxIterations: 3},
		Client: client,
		Tools:  tool.NewRegistry(echo),
	})
	if err != nil {
		t.Fatal(err)
	}

	res := a.Run(context.Background(), "loop forever")
	if res.Termination != agent.TerminationBudgetExceeded {
		t.Fatalf("termination = %q, want budget_exceeded", res.Termination)
	}
	if client.calls() != 3 {
		t.Errorf("model called %d times, want 3", client.calls())
	}
	if len(res.Trace) != 3 {
		t.Errorf("trace length = %d, want 3", len(res.Trace))
	}
}

func TestRunUnknownToolFedBackAsData(t *testing.T) {
	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "no_such_tool", Args: json.RawMessage(`{}`)}}},
		{Content: "recovered"},
	}}
	a := newTestAgent(t, client, nil)

	res := a.Run(context.Background(), "task")
	if res.Termination != agent.TerminationDone {
		t.Fatalf("termination = %q, want done", res.Termination)
	}
	if !strings.Contains(res.Trace[0].Result, "unknown tool") {
		t.Errorf("trace result = %q, want unknown-tool error", res.Trace[0].Result)
	}
}

func TestRunModelFault(t *testing.T) {
	client := &scriptedClient{err: errors.New("connection refused")}
	a := newTestAgent(t, client, nil)

	res := a.Run(context.Background(), "task")
	if res.Termination != agent.TerminationFailed {
		t.Fatalf("termination = %q, want failed", res.Termination)
	}
	if !strings.Contains(res.Output, "connection refused") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestRunGatedToolApproved(t *testing.T) {
	gate := testGate(t, time.Minute)
	autoResolve(t, gate, approval.RespondRequest{Status: approval.StatusApproved})

	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "write_file", Args: json.RawMessage(`{"path":"a.md"}`)}}},
		{Content: "done"},
	}}
	gt := &gatedTool{}
	a := newTestAgent(t, client, gate, gt)

	res := a.Run(context.Background(), "write the report")
	if res.Termination != agent.TerminationDone {
		t.Fatalf("termination = %q, want done", res.Termination)
	}
	if len(gt.executions()) != 1 {
		t.Fatalf("tool executed %d times, want 1", len(gt.executions()))
	}
}

func TestRunGatedToolRejected(t *testing.T) {
	gate := testGate(t, time.Minute)
	autoResolve(t, gate, approval.RespondRequest{Status: approval.StatusRejected, Feedback: "wrong file"})

	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "write_file", Args: json.RawMessage(`{"path":"a.md"}`)}}},
		{Content: "understood"},
	}}
	gt := &gatedTool{}
	a := newTestAgent(t, client, gate, gt)

	res := a.Run(context.Background(), "write the report")
	if res.Termination != agent.TerminationDone {
		t.Fatalf("termination = %q, want done", res.Termination)
	}
	// The action must not have executed; the rejection went back as data.
	if len(gt.executions()) != 0 {
		t.Fatalf("tool executed %d times, want 0", len(gt.executions()))
	}
	if !strings.Contains(res.Trace[0].Result, "rejected") || !strings.Contains(res.Trace[0].Result, "wrong file") {
		t.Errorf("trace result = %q, want rejection with feedback", res.Trace[0].Result)
	}
}

func TestRunGatedToolEdited(t *testing.T) {
	gate := testGate(t, time.Minute)
	edited := json.RawMessage(`{"path":"b.md"}`)
	autoResolve(t, gate, approval.RespondRequest{Status: approval.StatusEdited, Payload: edited})

	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{{ID: "c1", Name: "write_file", Args: json.RawMessage(`{"path":"a.md"}`)}}},
		{Content: "done"},
	}}
	gt := &gatedTool{}
	a := newTestAgent(t, client, gate, gt)

	a.Run(context.Background(), "write the report")
	execs := gt.executions()
	if len(execs) != 1 {
		t.Fatalf("tool executed %d times, want 1", len(execs))
	}
	if string(execs[0]) != string(edited) {
		t.Errorf("executed args = %s, want edited payload %s", execs[0], edited)
	}
}

func TestRunParallelToolCalls(t *testing.T) {
	client := &scriptedClient{script: []*model.Completion{
		{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: "echo", Args: json.RawMessage(`{"n":1}`)},
			{ID: "c2", Name: "echo", Args: json.RawMessage(`{"n":2}`)},
			{ID: "c3", Name: "echo", Args: json.RawMessage(`{"n":3}`)},
		}},
		{Content: "done"},
	}}
	echo := &echoTool{}
	a := newTestAgent(t, client, nil, echo)

	res := a.Run(context.Background(), "task")
	if len(res.Trace) != 3 {
		t.Fatalf("trace length = %d, want 3", len(res.Trace))
	}
	// Trace order must match call order regardless of execution interleaving.
	for i, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		if !strings.Contains(res.Trace[i].Result, want) {
			t.Errorf("trace[%d].Result = %q, want args %s", i, res.Trace[i].Result, want)
		}
	}
}
