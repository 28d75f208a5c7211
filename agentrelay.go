// Package agentrelay provides a high-level façade over the execution engine
// (runner, invoker, sessions & stores) enabling rapid construction of
// multi-agent routing systems. Most applications interact with this package
// by:
//  1. Creating an AgentRelay via New() over a model generator (optionally
//     overriding default in-memory services)
//  2. Loading one or more system specifications (LoadSystem / LoadSystemFile)
//  3. Driving chat turns (Run) and continuing suspended sessions (Resume)
//
// The façade delegates orchestration to runner.Runner while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a SQLite-backed store
// and a structured logger.
package agentrelay

import (
	"context"

	"github.com/agentrelay/agentrelay/core"
	"github.com/agentrelay/agentrelay/invoker"
	"github.com/agentrelay/agentrelay/logging"
	"github.com/agentrelay/agentrelay/model"
	"github.com/agentrelay/agentrelay/runner"
	"github.com/agentrelay/agentrelay/session"
	"github.com/agentrelay/agentrelay/store"
	"github.com/agentrelay/agentrelay/uitool"
)

// Options configures the AgentRelay instance.
type Options struct {
	// SessionStore holds live conversational state (defaults to a bounded
	// in-memory LRU).
	SessionStore *session.Store

	// PersistStore receives agent-requested persistence operations
	// (defaults to in-memory).
	PersistStore store.Store

	// ToolRegistry resolves UI tool ids (defaults to in-memory).
	ToolRegistry uitool.Registry

	// Metrics receives run counters (defaults to unregistered instruments).
	Metrics *runner.Metrics

	// CircuitBreaker wraps the generator with failure isolation when true.
	CircuitBreaker bool

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// AgentRelay is the high-level façade aggregating the runner and services.
type AgentRelay struct {
	opts   Options
	runner *runner.Runner
}

// New creates a new AgentRelay over a model generator with optional
// overrides. Any unset service is initialized with an in-memory
// implementation.
func New(gen model.Generator, optFns ...func(o *Options)) *AgentRelay {
	opts := Options{
		SessionStore: session.NewStore(),
		PersistStore: store.NewMemory(),
		ToolRegistry: uitool.NewMemory(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.CircuitBreaker {
		gen = model.NewBreakerGenerator(gen, func(o *model.BreakerOptions) {
			o.Logger = opts.Logger
		})
	}

	inv := invoker.New(gen, func(o *invoker.Options) {
		o.Logger = opts.Logger
	})

	r := runner.New(inv, func(o *runner.Options) {
		o.SessionStore = opts.SessionStore
		o.PersistStore = opts.PersistStore
		o.ToolRegistry = opts.ToolRegistry
		o.Metrics = opts.Metrics
		o.Logger = opts.Logger
	})

	return &AgentRelay{opts: opts, runner: r}
}

// Runner exposes the underlying runner for callers that need direct access
// (the HTTP server wires against it).
func (a *AgentRelay) Runner() *runner.Runner { return a.runner }

// LoadSystem validates and registers a system specification.
func (a *AgentRelay) LoadSystem(spec *core.SystemSpec) error {
	return a.runner.LoadSystem(spec)
}

// LoadSystemFile reads, validates and registers a system specification from
// a YAML or JSON file.
func (a *AgentRelay) LoadSystemFile(path string) (*core.SystemSpec, error) {
	spec, err := core.LoadSystemSpec(path)
	if err != nil {
		return nil, err
	}
	if err := a.runner.LoadSystem(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// Run drives one chat turn through the routing loop.
func (a *AgentRelay) Run(ctx context.Context, systemID string, in runner.RunInput) (core.ExecutionResult, error) {
	return a.runner.Run(ctx, systemID, in)
}

// Resume continues a suspended session after a UI interaction. It returns
// (nil, nil) when there is nothing to resume.
func (a *AgentRelay) Resume(ctx context.Context, sessionID string, event *core.UIEvent) (*core.ExecutionResult, error) {
	return a.runner.Resume(ctx, sessionID, event)
}
