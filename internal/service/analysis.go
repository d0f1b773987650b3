package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	dlotel "github.com/doclens/doclens/internal/adapter/otel"
	"github.com/doclens/doclens/internal/config"
	"github.com/doclens/doclens/internal/domain/agent"
	"github.com/doclens/doclens/internal/domain/todo"
	"github.com/doclens/doclens/internal/port/broadcast"
	"github.com/doclens/doclens/internal/port/cache"
	"github.com/doclens/doclens/internal/port/docstore"
	"github.com/doclens/doclens/internal/port/eventbus"
	"github.com/doclens/doclens/internal/port/model"
	"github.com/doclens/doclens/internal/port/web"
	"github.com/doclens/doclens/internal/tool"
)

const coordinatorPrompt = `You are the coordinator of a document analysis team. You never read
documents yourself; you plan the work and delegate.

Your team:
- analysis agent: reads documents and answers focused questions about them.
  Delegate one self-contained question at a time.
- report agent: writes the final report into the workspace. It can only be
  used once per session, so delegate to it only when every finding is in hand.

Process:
1. Break the user's request into concrete steps and record them with
   write_todos. Keep the list current as you work.
2. Delegate analysis questions, one per delegation, and collect the answers.
3. When the analysis is complete, send all findings to the report agent in a
   single delegation.
4. Answer the user with a short summary of what was produced.

Some of your actions require human approval. A rejection is guidance, not an
error: adjust your plan and continue.`

const analysisPrompt = `You are a document analyst. You answer one focused question about the
document corpus per task.

Start from list_documents to see what is available, then narrow down with
get_documents and read only the pages you need with get_page_text. Page
images are expensive; request them only when layout, tables, stamps, or
signatures matter.

Cite document IDs and page numbers for every claim. If the corpus does not
contain the answer, say so explicitly. You may search the internet for
background on terminology, never for facts about the documents themselves.

Your final message must be a complete, self-contained answer: the requester
sees nothing but that message.`

const reportPrompt = `You are a report writer. You receive a set of findings and produce the
final report as a file in the workspace.

Write the report to report.md using write_file. Structure it with a summary
up front, then one section per finding, citing document IDs and page numbers.
Use edit_file for corrections instead of rewriting the whole file. The
document tools are available if you need to verify a specific detail before
citing it.

When the file is written, reply with a one-paragraph summary of the report.
Your final message must state the file path.`

// Builder assembles the per-session agent hierarchy from shared adapters.
type Builder struct {
	cfg         config.Config
	client      model.Client
	store       docstore.Store
	cache       cache.Cache
	searcher    web.Searcher
	fetcher     web.Fetcher
	bus         eventbus.Bus
	broadcaster broadcast.Broadcaster
	metrics     *dlotel.Metrics
	log         *slog.Logger
}

// BuilderOptions carries the shared collaborators every session draws from.
// Searcher, Fetcher, Bus, Broadcaster, and Metrics may be nil.
type BuilderOptions struct {
	Config      config.Config
	Client      model.Client
	Store       docstore.Store
	Cache       cache.Cache
	Searcher    web.Searcher
	Fetcher     web.Fetcher
	Bus         eventbus.Bus
	Broadcaster broadcast.Broadcaster
	Metrics     *dlotel.Metrics
	Logger      *slog.Logger
}

// NewBuilder creates a session builder.
func NewBuilder(opts BuilderOptions) *Builder {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		cfg:         opts.Config,
		client:      opts.Client,
		store:       opts.Store,
		cache:       opts.Cache,
		searcher:    opts.Searcher,
		fetcher:     opts.Fetcher,
		bus:         opts.Bus,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		log:         log,
	}
}

// Build wires the full hierarchy for one session: gate, todo tracker,
// workspace, both subordinates, and the coordinator.
func (b *Builder) Build(sessionID string) (*Orchestrator, *Gate, *todo.Tracker, *Workspace, error) {
	gate := NewGate(GateOptions{
		Timeout:      b.cfg.Approval.Timeout,
		HistoryLimit: b.cfg.Approval.HistoryLimit,
		Bus:          b.bus,
		Broadcaster:  b.broadcaster,
		Metrics:      b.metrics,
		Logger:       b.log,
	})
	tracker := todo.NewTracker()
	workspace, err := NewWorkspace(b.cfg.Workspace.Root, sessionID)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build session %s: %w", sessionID, err)
	}

	documentTools := []tool.Tool{
		&tool.ListDocuments{Store: b.store},
		&tool.GetDocuments{Store: b.store},
		&tool.GetPageText{Store: b.store, Cache: b.cache},
		&tool.GetPageImage{Store: b.store},
	}
	webTools := []tool.Tool{}
	if b.searcher != nil {
		webTools = append(webTools, &tool.InternetSearch{Searcher: b.searcher, Cache: b.cache})
	}
	if b.fetcher != nil {
		webTools = append(webTools, &tool.URLContent{
			Fetcher: b.fetcher,
			Cache:   b.cache,
			MaxLen:  b.cfg.Search.FetchMaxLen,
		})
	}
	fileTools := []tool.Tool{
		&tool.ReadFile{FS: workspace},
		&tool.ListFiles{FS: workspace},
		&tool.WriteFile{FS: workspace},
		&tool.EditFile{FS: workspace},
	}

	analysisAgent, err := NewSubAgent(SubAgentOptions{
		Spec: agent.Spec{
			Name:          "analysis",
			Model:         b.cfg.Agents.WorkerModel,
			SystemPrompt:  analysisPrompt,
			MaxIterations: b.cfg.Agents.AnalysisMaxSteps,
			MaxDuration:   b.cfg.Agents.MaxDuration,
		},
		Client:      b.client,
		Tools:       tool.NewRegistry(append(documentTools, webTools...)...),
		Gate:        gate,
		Logger:      b.log,
		ToolTimeout: b.cfg.Agents.ToolTimeout,
		MaxParallel: b.cfg.Agents.MaxParallel,
		Metrics:     b.metrics,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build analysis agent: %w", err)
	}

	reportAgent, err := NewSubAgent(SubAgentOptions{
		Spec: agent.Spec{
			Name:          "report",
			Model:         b.cfg.Agents.WorkerModel,
			SystemPrompt:  reportPrompt,
			MaxIterations: b.cfg.Agents.ReportMaxSteps,
			MaxDuration:   b.cfg.Agents.MaxDuration,
		},
		Client:      b.client,
		Tools:       tool.NewRegistry(append(documentTools, fileTools...)...),
		Gate:        gate,
		Logger:      b.log,
		ToolTimeout: b.cfg.Agents.ToolTimeout,
		MaxParallel: b.cfg.Agents.MaxParallel,
		Metrics:     b.metrics,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build report agent: %w", err)
	}

	coordinatorTools := []tool.Tool{&tool.WriteTodos{Tracker: tracker}}
	orch, err := NewOrchestrator(OrchestratorOptions{
		Spec: agent.Spec{
			Name:          "coordinator",
			Model:         b.cfg.Agents.CoordinatorModel,
			SystemPrompt:  b.coordinatorSystemPrompt(context.Background()),
			MaxIterations: b.cfg.Agents.CoordinatorMaxSteps,
			MaxDuration:   b.cfg.Agents.MaxDuration,
		},
		Client:    b.client,
		BaseTools: coordinatorTools,
		Subordinates: map[string]*Subordinate{
			"analysis": {
				Agent:   analysisAgent,
				Quota:   agent.UnboundedQuota(),
				Purpose: "Reads the document corpus and answers one focused question per task.",
			},
			"report": {
				Agent:   reportAgent,
				Quota:   agent.NewQuota(b.cfg.Agents.ReportQuota),
				Purpose: "Writes the final report into the workspace from your collected findings.",
			},
		},
		Gate:        gate,
		Logger:      b.log,
		ToolTimeout: b.cfg.Agents.ToolTimeout,
		MaxParallel: b.cfg.Agents.MaxParallel,
		Metrics:     b.metrics,
	})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("build coordinator: %w", err)
	}
	return orch, gate, tracker, workspace, nil
}

// coordinatorSystemPrompt appends a corpus overview so the coordinator can
// plan without spending a delegation on discovery.
func (b *Builder) coordinatorSystemPrompt(ctx context.Context) string {
	docs, err := b.store.ListDocuments(ctx)
	if err != nil || len(docs) == 0 {
		return coordinatorPrompt
	}
	var sb strings.Builder
	sb.WriteString(coordinatorPrompt)
	sb.WriteString("\n\nDocument corpus:\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "- [%d] %s (%d pages): %s\n", d.ID, d.Filename, d.PageCount, d.Summary)
	}
	return sb.String()
}
