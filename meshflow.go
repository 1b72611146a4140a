// Package meshflow provides a high-level façade over the agent catalog, the
// agent executor, the workflow engine and the loop controller. Most
// applications interact with this package by:
//  1. Creating a Mesh via New() (or NewFromConfig) with a completion gateway
//  2. Registering agent definitions and tools
//  3. Running workflows (RunWorkflow / Start), single agents (RunAgent) or
//     loops (RunLoop)
//
// Every default is in-memory and safe for local development and testing.
// Supplying an artifact.Store makes run records and catalog backups share it.
package meshflow

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/meshflow/agent"
	"github.com/hupe1980/meshflow/artifact"
	"github.com/hupe1980/meshflow/catalog"
	"github.com/hupe1980/meshflow/config"
	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/engine"
	"github.com/hupe1980/meshflow/logging"
	"github.com/hupe1980/meshflow/loop"
	"github.com/hupe1980/meshflow/metrics"
	"github.com/hupe1980/meshflow/model"
	"github.com/hupe1980/meshflow/tool"
)

// CatalogBackupName is the artifact name used by Mesh.Backup and Mesh.Restore.
const CatalogBackupName = "catalog"

// Options configures a Mesh.
type Options struct {
	// Agents are registered in order; duplicate ids fail New.
	Agents []core.AgentDefinition
	// Tools are made available to agents that declare them by name.
	Tools []tool.Tool

	// AgentOptions are the executor defaults for every agent call.
	AgentOptions agent.Options
	// MaxSteps and Timeout are engine-wide run defaults (0 = none).
	MaxSteps int
	Timeout  time.Duration
	Hooks    engine.Hooks

	// Artifacts backs run records and catalog backups. Nil keeps records in
	// memory and disables Backup/Restore.
	Artifacts artifact.Store

	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Mesh aggregates the catalog, executor and engine of one deployment.
type Mesh struct {
	catalog   *catalog.Catalog
	executor  *agent.Executor
	engine    *engine.Engine
	artifacts artifact.Store
	logger    logging.Logger
	metrics   *metrics.Metrics
}

// New creates a Mesh around gw.
func New(gw model.Gateway, optFns ...func(o *Options)) (*Mesh, error) {
	if gw == nil {
		return nil, errors.New("meshflow: gateway is required")
	}

	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	cat := catalog.New()
	for _, def := range opts.Agents {
		if err := cat.Register(def); err != nil {
			return nil, err
		}
	}

	exec := agent.NewExecutor(gw, func(o *agent.ExecutorOptions) {
		o.Tools = tool.NewRegistry(opts.Tools...)
		o.Defaults = opts.AgentOptions
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
	})

	eng := engine.New(cat, exec, func(o *engine.Options) {
		o.MaxSteps = opts.MaxSteps
		o.Timeout = opts.Timeout
		o.Hooks = opts.Hooks
		o.Logger = opts.Logger
		o.Metrics = opts.Metrics
		if opts.Artifacts != nil {
			o.Store = engine.NewArtifactRecordStore(opts.Artifacts)
		}
	})

	return &Mesh{
		catalog:   cat,
		executor:  exec,
		engine:    eng,
		artifacts: opts.Artifacts,
		logger:    logging.OrNoOp(opts.Logger),
		metrics:   opts.Metrics,
	}, nil
}

// NewFromConfig builds the gateway, the logger and the component limits from
// cfg. optFns run after the configuration has been applied.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*Mesh, error) {
	gw, err := cfg.NewGateway()
	if err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	return New(gw, append([]func(o *Options){func(o *Options) {
		o.AgentOptions = cfg.AgentOptions()
		o.MaxSteps = cfg.Engine.MaxSteps
		o.Timeout = cfg.Engine.Timeout
		o.Logger = logger
	}}, optFns...)...)
}

// Catalog returns the agent catalog.
func (m *Mesh) Catalog() *catalog.Catalog { return m.catalog }

// Executor returns the agent executor.
func (m *Mesh) Executor() *agent.Executor { return m.executor }

// Engine returns the workflow engine.
func (m *Mesh) Engine() *engine.Engine { return m.engine }

// Register adds an agent definition to the catalog.
func (m *Mesh) Register(def core.AgentDefinition) error { return m.catalog.Register(def) }

// RegisterTool makes t available to agents declaring it.
func (m *Mesh) RegisterTool(t tool.Tool) { m.executor.Tools().Register(t) }

// RunWorkflow executes desc over a fresh conversation seeded with input and
// blocks until the run is terminal.
func (m *Mesh) RunWorkflow(ctx context.Context, desc engine.Descriptor, input string) (*engine.Record, error) {
	return m.engine.Execute(ctx, desc, userContext(input))
}

// Start launches desc asynchronously; see engine.Engine.Start.
func (m *Mesh) Start(ctx context.Context, desc engine.Descriptor, ec *core.ExecutionContext) (*engine.Run, error) {
	return m.engine.Start(ctx, desc, ec)
}

// Cancel cancels an active run.
func (m *Mesh) Cancel(recordID string) bool { return m.engine.Cancel(recordID) }

// RunAgent executes one catalog agent over a fresh conversation seeded with
// input.
func (m *Mesh) RunAgent(ctx context.Context, agentID, input string) (core.AgentExecutionResult, error) {
	def, err := m.catalog.Get(agentID)
	if err != nil {
		return core.AgentExecutionResult{}, err
	}
	return m.executor.Execute(ctx, def, userContext(input), agent.Options{}), nil
}

// RunLoop repeats unit under cfg. A nil logger or metrics in cfg inherit the
// mesh's.
func (m *Mesh) RunLoop(ctx context.Context, unit loop.Unit, cfg loop.Config, input string) loop.State {
	if cfg.Logger == nil {
		cfg.Logger = m.logger
	}
	if cfg.Metrics == nil {
		cfg.Metrics = m.metrics
	}
	return loop.New(cfg).Run(ctx, unit, userContext(input))
}

// AgentUnit returns a loop unit repeating the catalog agent agentID.
func (m *Mesh) AgentUnit(agentID string) (loop.AgentUnit, error) {
	def, err := m.catalog.Get(agentID)
	if err != nil {
		return loop.AgentUnit{}, err
	}
	return loop.AgentUnit{Executor: m.executor, Definition: def}, nil
}

// WorkflowUnit returns a loop unit repeating desc.
func (m *Mesh) WorkflowUnit(desc engine.Descriptor) loop.WorkflowUnit {
	return loop.WorkflowUnit{Engine: m.engine, Descriptor: desc}
}

// ErrNoArtifacts is returned by Backup and Restore without an artifact store.
var ErrNoArtifacts = errors.New("meshflow: no artifact store configured")

// Backup snapshots the catalog into the artifact store.
func (m *Mesh) Backup() error {
	if m.artifacts == nil {
		return ErrNoArtifacts
	}
	return m.catalog.Backup(m.artifacts, CatalogBackupName)
}

// Restore replaces the catalog with the last backup.
func (m *Mesh) Restore() error {
	if m.artifacts == nil {
		return ErrNoArtifacts
	}
	return m.catalog.Restore(m.artifacts, CatalogBackupName)
}

func userContext(input string) *core.ExecutionContext {
	var turns []core.Turn
	if input != "" {
		turns = append(turns, core.NewTextTurn(core.RoleUser, "user", input))
	}
	return core.NewExecutionContext("", turns...)
}
