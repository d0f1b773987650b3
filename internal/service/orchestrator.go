package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dlotel "github.com/doclens/doclens/internal/adapter/otel"
	"github.com/doclens/doclens/internal/domain/agent"
	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/model"
	"github.com/doclens/doclens/internal/tool"
)

// Subordinate binds a runnable agent to its delegation policy.
type Subordinate struct {
	Agent *SubAgent
	Quota *agent.Quota
	// Purpose tells the coordinator what tasks this subordinate handles.
	Purpose string
}

// Orchestrator runs the coordinator agent. Subordinates are reachable only
// through delegation tools; nothing but their final output text flows back up
// to the coordinator's context.
type Orchestrator struct {
	coordinator *SubAgent
	log         *slog.Logger
}

// OrchestratorOptions configures an Orchestrator. The coordinator's tool
// registry is BaseTools plus one delegation tool per subordinate.
type OrchestratorOptions struct {
	Spec         agent.Spec
	Client       model.Client
	BaseTools    []tool.Tool
	Subordinates map[string]*Subordinate
	Gate         *Gate
	Logger       *slog.Logger
	ToolTimeout  time.Duration
	MaxParallel  int
	Metrics      *dlotel.Metrics
}

// NewOrchestrator builds the coordinator loop with delegation tools attached.
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	tools := make([]tool.Tool, 0, len(opts.BaseTools)+len(opts.Subordinates))
	tools = append(tools, opts.BaseTools...)
	for name, sub := range opts.Subordinates {
		tools = append(tools, &delegateTool{
			subName: name,
			sub:     sub,
			log:     log,
		})
	}

	coordinator, err := NewSubAgent(SubAgentOptions{
		Spec:        opts.Spec,
		Client:      opts.Client,
		Tools:       tool.NewRegistry(tools...),
		Gate:        opts.Gate,
		Logger:      log,
		ToolTimeout: opts.ToolTimeout,
		MaxParallel: opts.MaxParallel,
		Metrics:     opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("build coordinator: %w", err)
	}
	return &Orchestrator{coordinator: coordinator, log: log}, nil
}

// Run executes the coordinator loop for one task.
func (o *Orchestrator) Run(ctx context.Context, task string) *agent.Result {
	return o.coordinator.Run(ctx, task)
}

// delegateTool exposes one subordinate as a coordinator tool. Delegation is
// a gated category, so every dispatch passes the approval gate first; quota
// exhaustion comes back as tool data, never as a loop fault.
type delegateTool struct {
	subName string
	sub     *Subordinate
	log     *slog.Logger
}

type delegateArgs struct {
	Task string `json:"task"`
}

func (d *delegateTool) Name() string { return "delegate_to_" + d.subName }

func (d *delegateTool) Description() string {
	desc := fmt.Sprintf("Delegate a task to the %s agent. %s", d.subName, d.sub.Purpose)
	if remaining, unbounded := d.sub.Quota.Remaining(); !unbounded {
		desc += fmt.Sprintf(" This agent can be invoked at most %d more time(s) this session.", remaining)
	}
	return desc + " Input: a complete, self-contained task description."
}

func (d *delegateTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"task": {"type": "string", "description": "Self-contained task for the subordinate"}
		},
		"required": ["task"]
	}`)
}

func (d *delegateTool) GatedCategory() (approval.Category, bool) {
	return approval.CategorySubagentDelegation, true
}

func (d *delegateTool) Highlights(args json.RawMessage) json.RawMessage {
	h, _ := json.Marshal(map[string]string{"subagent": d.subName, "task": taskFromArgs(args)})
	return h
}

func (d *delegateTool) Execute(ctx context.Context, args json.RawMessage) tool.Result {
	var in delegateArgs
	if err := json.Unmarshal(args, &in); err != nil || strings.TrimSpace(in.Task) == "" {
		return tool.Errf(tool.KindInvalidArgs, "task is required")
	}

	if !d.sub.Quota.Consume() {
		d.log.Info("delegation refused, quota exhausted", "subagent", d.subName)
		return tool.Errf(tool.KindRejected,
			"the %s agent has already been used the maximum number of times this session", d.subName)
	}

	d.log.Info("delegating task", "subagent", d.subName, "task_len", len(in.Task))
	res := d.sub.Agent.Run(ctx, in.Task)

	switch res.Termination {
	case agent.TerminationFailed:
		return tool.Errf(tool.KindInternal, "the %s agent failed: %s", d.subName, res.Output)
	case agent.TerminationBudgetExceeded:
		if res.Output == "" {
			return tool.Errf(tool.KindInternal,
				"the %s agent ran out of budget before producing an answer", d.subName)
		}
		return tool.OK(res.Output + "\n\n[note: the agent stopped at its step budget; this answer may be incomplete]")
	default:
		return tool.OK(res.Output)
	}
}

func taskFromArgs(args json.RawMessage) string {
	var in delegateArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return ""
	}
	return in.Task
}
