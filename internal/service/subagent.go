package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	dlotel "github.com/doclens/doclens/internal/adapter/otel"
	"github.com/doclens/doclens/internal/domain/agent"
	"github.com/doclens/doclens/internal/domain/approval"
	"github.com/doclens/doclens/internal/port/model"
	"github.com/doclens/doclens/internal/tool"
)

// SubAgent runs one model-driven execution loop over a tool registry.
// Gated tool calls are suspended at the approval gate before execution;
// every tool outcome, including rejections, goes back to the model as data.
type SubAgent struct {
	spec        agent.Spec
	client      model.Client
	tools       *tool.Registry
	gate        *Gate
	log         *slog.Logger
	toolTimeout time.Duration
	maxParallel int
	metrics     *dlotel.Metrics
}

// SubAgentOptions configures a SubAgent.
type SubAgentOptions struct {
	Spec        agent.Spec
	Client      model.Client
	Tools       *tool.Registry
	Gate        *Gate // nil disables gating entirely
	Logger      *slog.Logger
	ToolTimeout time.Duration   // per tool call, zero means no cap
	MaxParallel int             // concurrent tool calls per model step
	Metrics     *dlotel.Metrics // nil disables instrument recording
}

// NewSubAgent creates an execution loop for one agent spec.
func NewSubAgent(opts SubAgentOptions) (*SubAgent, error) {
	if err := opts.Spec.Validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	maxParallel := opts.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &SubAgent{
		spec:        opts.Spec,
		client:      opts.Client,
		tools:       opts.Tools,
		gate:        opts.Gate,
		log:         log.With("agent", opts.Spec.Name),
		toolTimeout: opts.ToolTimeout,
		maxParallel: maxParallel,
		metrics:     opts.Metrics,
	}, nil
}

// Spec returns the agent's spec.
func (a *SubAgent) Spec() agent.Spec { return a.spec }

// Run executes the loop for one task until the model produces a final answer,
// a budget is exhausted, or the model invocation faults. The returned Result
// is never nil; faults surface as TerminationFailed, not as an error.
func (a *SubAgent) Run(ctx context.Context, task string) *agent.Result {
	res := &agent.Result{Termination: agent.TerminationDone}
	messages := []model.Message{{Role: model.RoleUser, Content: task}}
	start := time.Now()

	a.log.Info("agent run started", "task_len", len(task))

	for step := 1; step <= a.spec.MaxIterations; step++ {
		if a.spec.MaxDuration > 0 && time.Since(start) > a.spec.MaxDuration {
			a.log.Warn("agent wall-clock budget exhausted", "steps", step-1)
			res.Termination = agent.TerminationBudgetExceeded
			return res
		}
		if ctx.Err() != nil {
			res.Termination = agent.TerminationFailed
			res.Output = "run cancelled"
			return res
		}

		comp, err := a.client.Complete(ctx, &model.Request{
			Model:    a.spec.Model,
			System:   a.spec.SystemPrompt,
			Messages: messages,
			Tools:    a.tools.Specs(),
		})
		if err != nil {
			a.log.Error("model invocation failed", "step", step, "error", err)
			res.Termination = agent.TerminationFailed
			res.Output = "model invocation failed: " + err.Error()
			res.Steps = step
			return res
		}
		res.Steps = step
		if a.metrics != nil {
			a.metrics.ModelTokens.Add(ctx, int64(comp.TokensIn+comp.TokensOut), metric.WithAttributes(
				attribute.String("agent", a.spec.Name),
				attribute.String("model", a.spec.Model),
			))
		}

		messages = append(messages, model.Message{
			Role:      model.RoleAssistant,
			Content:   comp.Content,
			ToolCalls: comp.ToolCalls,
		})
		if comp.Content != "" {
			res.Output = comp.Content
		}

		if len(comp.ToolCalls) == 0 {
			a.log.Info("agent run finished", "steps", step, "output_len", len(res.Output))
			return res
		}

		outcomes := a.executeCalls(ctx, comp.ToolCalls)
		for i, call := range comp.ToolCalls {
			res.Trace = append(res.Trace, agent.TraceEntry{
				Tool:   call.Name,
				Args:   call.Args,
				Result: outcomes[i],
			})
			messages = append(messages, model.Message{
				Role:       model.RoleTool,
				Content:    outcomes[i],
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	a.log.Warn("agent iteration budget exhausted", "max_iterations", a.spec.MaxIterations)
	res.Termination = agent.TerminationBudgetExceeded
	return res
}

// executeCalls runs one model step's tool calls, bounded by maxParallel.
// Outcomes are positionally aligned with calls; a failed call holds its
// classified error text instead of aborting the batch.
func (a *SubAgent) executeCalls(ctx context.Context, calls []model.ToolCall) []string {
	outcomes := make([]string, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxParallel)
	for i, call := range calls {
		g.Go(func() error {
			outcomes[i] = a.executeCall(gctx, call).Text()
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// executeCall resolves, gates, and executes one tool call.
func (a *SubAgent) executeCall(ctx context.Context, call model.ToolCall) tool.Result {
	t, ok := a.tools.Get(call.Name)
	if !ok {
		a.log.Warn("unknown tool requested", "tool", call.Name)
		return tool.Errf(tool.KindInvalidArgs, "unknown tool: %s", call.Name)
	}

	args := call.Args
	if category, gated := t.GatedCategory(); gated && a.gate != nil {
		approvedArgs, res := a.awaitApproval(ctx, t, category, args)
		if res != nil {
			return *res
		}
		args = approvedArgs
	}

	execCtx := ctx
	if a.toolTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, a.toolTimeout)
		defer cancel()
	}

	_, span := dlotel.StartToolCallSpan(ctx, a.spec.Name, call.Name)
	result := t.Execute(execCtx, args)
	span.SetAttributes(attribute.String("toolcall.kind", string(result.Kind)))
	span.End()
	if a.metrics != nil {
		a.metrics.ToolCalls.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tool", call.Name),
			attribute.String("kind", string(result.Kind)),
		))
	}
	if result.IsErr() {
		a.log.Warn("tool call failed", "tool", call.Name, "kind", result.Kind, "error", result.Message)
	} else {
		a.log.Debug("tool call succeeded", "tool", call.Name)
	}
	return result
}

// awaitApproval suspends a gated call until the operator answers. It returns
// the args to execute with (possibly edited), or a terminal Result when the
// action must not run.
func (a *SubAgent) awaitApproval(ctx context.Context, t tool.Tool, category approval.Category, args json.RawMessage) (json.RawMessage, *tool.Result) {
	var highlights json.RawMessage
	if h, ok := t.(tool.Highlighter); ok {
		highlights = h.Highlights(args)
	}

	req := a.gate.Submit(ctx, category, args, a.spec.Name, tool.DetailFromArgs(args), highlights)
	resolved, err := a.gate.Await(ctx, req.ID)
	if err != nil {
		res := tool.Errf(tool.KindInternal, "approval wait failed: %v", err)
		return nil, &res
	}

	switch resolved.Status {
	case approval.StatusApproved:
		return args, nil
	case approval.StatusEdited:
		a.log.Info("gated call edited by operator", "tool", t.Name(), "approval_id", req.ID)
		return resolved.Payload, nil
	case approval.StatusCancelled:
		res := tool.Errf(tool.KindRejected, "the action was cancelled: %s", resolved.Feedback)
		return nil, &res
	default:
		msg := "the user rejected this action"
		if resolved.Feedback != "" {
			msg += ": " + resolved.Feedback
		}
		res := tool.Errf(tool.KindRejected, "%s", msg)
		return nil, &res
	}
}
