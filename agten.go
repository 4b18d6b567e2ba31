// Package agten provides a high-level façade over the message bus, agent
// manager, workflow orchestrator and tool executor enabling rapid construction
// of multi-agent systems. Most applications interact with this package by:
//  1. Creating an Agten via New() (optionally overriding the executor config
//     or supplying a structured logger)
//  2. Creating agents through CreateAgent and starting the scheduling loop
//  3. Running tasks directly (RunTask / RunTaskSync) or registering and
//     executing workflows
//
// The façade delegates routing to bus.MessageBus, lifecycle and scheduling to
// manager.Manager, and tool governance to executor.Executor. All defaults are
// safe for local development and testing; production deployments typically
// supply a structured logger and a tightened executor policy.
package agten

import (
	"context"

	"github.com/AbhinavShaw09/agten/bus"
	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/executor"
	"github.com/AbhinavShaw09/agten/logging"
	"github.com/AbhinavShaw09/agten/manager"
	"github.com/AbhinavShaw09/agten/registry"
)

// Options configures the Agten instance.
type Options struct {
	// ExecutorConfig governs tool execution (timeout, blocked commands,
	// kill-grace period).
	ExecutorConfig executor.Config

	// ManagerOptions tunes the scheduling loop (tick interval, dequeue wait).
	ManagerOptions []func(o *manager.Options)

	// Registry supplies agent and tool constructors. Defaults to an empty
	// registry.
	Registry *registry.Registry

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Agten is the high-level façade aggregating the bus, manager, orchestrator
// and executor.
type Agten struct {
	opts         Options
	bus          *bus.MessageBus
	protocol     *bus.Protocol
	manager      *manager.Manager
	orchestrator *manager.Orchestrator
	executor     *executor.Executor
	registry     *registry.Registry
}

// New creates a new Agten instance with optional overrides.
func New(optFns ...func(o *Options)) *Agten {
	opts := Options{
		ExecutorConfig: executor.DefaultConfig(),
		Logger:         logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Registry == nil {
		opts.Registry = registry.New()
	}

	b := bus.New(func(o *bus.Options) {
		o.Logger = opts.Logger
	})

	managerOpts := append([]func(o *manager.Options){func(o *manager.Options) {
		o.Logger = opts.Logger
	}}, opts.ManagerOptions...)

	mgr := manager.New(b, managerOpts...)

	orch := manager.NewOrchestrator(mgr, func(o *manager.OrchestratorOptions) {
		o.Logger = opts.Logger
	})

	exec := executor.New(func(o *executor.Options) {
		o.Config = opts.ExecutorConfig
		o.Logger = opts.Logger
	})

	return &Agten{
		opts:         opts,
		bus:          b,
		protocol:     bus.NewProtocol(b),
		manager:      mgr,
		orchestrator: orch,
		executor:     exec,
		registry:     opts.Registry,
	}
}

// Bus returns the underlying message bus.
func (a *Agten) Bus() *bus.MessageBus { return a.bus }

// Protocol returns the conversation protocol over the bus.
func (a *Agten) Protocol() *bus.Protocol { return a.protocol }

// Manager returns the agent manager.
func (a *Agten) Manager() *manager.Manager { return a.manager }

// Orchestrator returns the workflow orchestrator.
func (a *Agten) Orchestrator() *manager.Orchestrator { return a.orchestrator }

// Executor returns the shared tool executor.
func (a *Agten) Executor() *executor.Executor { return a.executor }

// Registry returns the agent/tool constructor registry.
func (a *Agten) Registry() *registry.Registry { return a.registry }

// CreateAgent constructs, initializes and registers an agent of the given
// registered type.
func (a *Agten) CreateAgent(ctx context.Context, typeName, name string) (core.Agent, error) {
	constructor, err := a.registry.AgentConstructor(typeName)
	if err != nil {
		return nil, err
	}
	return a.manager.CreateAgent(ctx, constructor, name, nil)
}

// Run starts the manager scheduling loop and blocks until the context is
// cancelled or Shutdown is called.
func (a *Agten) Run(ctx context.Context) error {
	return a.manager.Run(ctx)
}

// Shutdown stops the scheduling loop, destroys all agents and cancels every
// in-flight tool execution.
func (a *Agten) Shutdown(ctx context.Context) error {
	a.executor.CancelAll()
	return a.manager.Shutdown(ctx)
}

// RunTask streams the message sequence produced by the named agent's run
// hook.
func (a *Agten) RunTask(ctx context.Context, agentRef, input string) (<-chan core.Message, error) {
	return a.manager.RunAgentTask(ctx, agentRef, input)
}

// RunTaskSync is a synchronous helper that drains the task stream and returns
// the collected messages.
func (a *Agten) RunTaskSync(ctx context.Context, agentRef, input string) ([]core.Message, error) {
	stream, err := a.manager.RunAgentTask(ctx, agentRef, input)
	if err != nil {
		return nil, err
	}

	var messages []core.Message
	for {
		select {
		case <-ctx.Done():
			return messages, ctx.Err()
		case msg, ok := <-stream:
			if !ok {
				return messages, nil
			}
			messages = append(messages, msg)
		}
	}
}

// RegisterWorkflow stores an ordered step list under the name.
func (a *Agten) RegisterWorkflow(name string, steps []manager.Step) {
	a.orchestrator.RegisterWorkflow(name, steps)
}

// ExecuteWorkflow runs the named workflow and streams every message the
// steps produce.
func (a *Agten) ExecuteWorkflow(ctx context.Context, name, input string) (<-chan core.Message, error) {
	return a.orchestrator.ExecuteWorkflow(ctx, name, input)
}
