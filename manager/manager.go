package manager

import (
	"context"
	"sync"
	"time"

	"github.com/AbhinavShaw09/agten/bus"
	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/logging"
)

const (
	defaultTickInterval = 100 * time.Millisecond
	defaultDequeueWait  = 10 * time.Millisecond
)

// Constructor builds a concrete agent for CreateAgent. Registries map type
// names to constructors; the manager only ever sees the function.
type Constructor func(name string) (core.Agent, error)

// Options configures a Manager.
type Options struct {
	// TickInterval is the scheduling loop period (default 100ms). A tunable,
	// not a correctness requirement.
	TickInterval time.Duration
	// DequeueWait bounds the per-agent mailbox wait within one tick (default
	// 10ms).
	DequeueWait time.Duration
	// Logger receives scheduling and lifecycle diagnostics.
	Logger logging.Logger
}

// Manager owns the agent and context tables and the scheduling loop. All
// table mutation happens under an explicit mutex so the manager is safe for
// concurrent use from multiple goroutines.
type Manager struct {
	bus      *bus.MessageBus
	protocol *bus.Protocol

	mu       sync.Mutex
	agents   map[string]core.Agent
	contexts map[string]*core.AgentContext
	handlers []LifecycleHandler
	running  bool
	stopLoop context.CancelFunc

	tickInterval time.Duration
	dequeueWait  time.Duration
	logger       logging.Logger
}

// New constructs a Manager bound to the given bus.
func New(b *bus.MessageBus, optFns ...func(o *Options)) *Manager {
	opts := Options{
		TickInterval: defaultTickInterval,
		DequeueWait:  defaultDequeueWait,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		bus:          b,
		protocol:     bus.NewProtocol(b),
		agents:       make(map[string]core.Agent),
		contexts:     make(map[string]*core.AgentContext),
		tickInterval: opts.TickInterval,
		dequeueWait:  opts.DequeueWait,
		logger:       opts.Logger,
	}
}

// Protocol returns the conversation protocol bound to the manager's bus.
func (m *Manager) Protocol() *bus.Protocol { return m.protocol }

// OnLifecycleEvent registers a handler. Handlers run in registration order.
func (m *Manager) OnLifecycleEvent(handler LifecycleHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// CreateAgent constructs an agent, initializes it against the given context
// (a fresh session context is built when nil), registers it and subscribes it
// to the bus as a global subscriber. The agent is routable only after
// CreateAgent returns.
func (m *Manager) CreateAgent(ctx context.Context, constructor Constructor, name string, agentCtx *core.AgentContext) (core.Agent, error) {
	agent, err := constructor(name)
	if err != nil {
		return nil, err
	}

	m.emitLifecycle(LifecycleCreated, agent.ID(), agent.Name(), nil)

	if agentCtx == nil {
		agentCtx = core.NewAgentContext(core.NewID())
	}

	if err := agent.Initialize(ctx, agentCtx); err != nil {
		m.emitLifecycle(LifecycleError, agent.ID(), agent.Name(), err)
		return nil, err
	}

	m.mu.Lock()
	m.agents[agent.ID()] = agent
	m.contexts[agent.ID()] = agentCtx
	m.mu.Unlock()

	m.emitLifecycle(LifecycleInitialized, agent.ID(), agent.Name(), nil)

	m.bus.Subscribe(agent, "")

	m.logger.Info("agent created", "agent", agent.Name(), "agent_id", agent.ID())

	return agent, nil
}

// StartAgent starts the agent identified by id or name.
func (m *Manager) StartAgent(ctx context.Context, ref string) error {
	agent, err := m.findAgent(ref)
	if err != nil {
		return err
	}

	if err := agent.Start(ctx); err != nil {
		m.emitLifecycle(LifecycleError, agent.ID(), agent.Name(), err)
		return err
	}

	m.emitLifecycle(LifecycleStarted, agent.ID(), agent.Name(), nil)
	return nil
}

// StopAgent stops the agent identified by id or name.
func (m *Manager) StopAgent(ctx context.Context, ref string) error {
	agent, err := m.findAgent(ref)
	if err != nil {
		return err
	}

	if err := agent.Stop(ctx); err != nil {
		m.emitLifecycle(LifecycleError, agent.ID(), agent.Name(), err)
		return err
	}

	m.emitLifecycle(LifecycleStopped, agent.ID(), agent.Name(), nil)
	return nil
}

// DestroyAgent stops and deregisters the agent. Destroying an unknown id is a
// no-op rather than an error.
func (m *Manager) DestroyAgent(ctx context.Context, ref string) error {
	agent, err := m.findAgent(ref)
	if err != nil {
		return nil
	}

	if err := agent.Stop(ctx); err != nil {
		m.logger.Warn("agent stop during destroy failed", "agent", agent.Name(), "error", err.Error())
	}

	m.bus.Unsubscribe(agent, "")

	m.mu.Lock()
	delete(m.agents, agent.ID())
	delete(m.contexts, agent.ID())
	m.mu.Unlock()

	m.emitLifecycle(LifecycleDestroyed, agent.ID(), agent.Name(), nil)

	m.logger.Info("agent destroyed", "agent", agent.Name(), "agent_id", agent.ID())

	return nil
}

// GetAgentStatus returns a state snapshot for the agent identified by id or
// name.
func (m *Manager) GetAgentStatus(ref string) (core.AgentState, error) {
	agent, err := m.findAgent(ref)
	if err != nil {
		return core.AgentState{}, err
	}
	return agent.State(), nil
}

// Agent returns the registered agent identified by id or name.
func (m *Manager) Agent(ref string) (core.Agent, error) {
	return m.findAgent(ref)
}

// Agents returns a snapshot of the currently registered agents.
func (m *Manager) Agents() []core.Agent {
	m.mu.Lock()
	defer m.mu.Unlock()

	agents := make([]core.Agent, 0, len(m.agents))
	for _, agent := range m.agents {
		agents = append(agents, agent)
	}
	return agents
}

// Context returns the session context the agent was initialized with.
func (m *Manager) Context(ref string) (*core.AgentContext, error) {
	agent, err := m.findAgent(ref)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contexts[agent.ID()], nil
}

// Run drives the scheduling loop until the context is cancelled or Shutdown
// is called. Each tick, every registered agent gets one bounded-wait dequeue;
// a pending message is handed to the agent's ProcessMessage hook. Responses
// are republished; processing failures are logged, isolated, and surfaced as
// an Error message unicast to the original sender.
func (m *Manager) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		cancel()
		return nil
	}
	m.running = true
	m.stopLoop = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.stopLoop = nil
		m.mu.Unlock()
		cancel()
	}()

	m.logger.Info("manager loop started", "tick", m.tickInterval.String())

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			m.logger.Info("manager loop stopped")
			return nil
		case <-ticker.C:
			m.tick(loopCtx)
		}
	}
}

// tick drains at most one message per registered agent.
func (m *Manager) tick(ctx context.Context) {
	for _, agent := range m.Agents() {
		msg, ok := agent.Dequeue(ctx, m.dequeueWait)
		if !ok {
			continue
		}
		m.process(ctx, agent, msg)
	}
}

// process hands one message to the agent and routes the outcome. Failures
// never escape the loop.
func (m *Manager) process(ctx context.Context, agent core.Agent, msg core.Message) {
	resp, err := agent.ProcessMessage(ctx, msg)
	if err != nil {
		m.logger.Error("message processing failed",
			"agent", agent.Name(), "message_id", msg.ID, "error", err.Error())
		if msg.Sender != "" {
			m.protocol.SendError(agent, msg.Sender, err.Error(), msg.ID, nil)
		}
		return
	}

	if resp != nil {
		m.protocol.Publish(*resp)
	}
}

// Shutdown stops the scheduling loop and concurrently destroys every
// registered agent. It is idempotent: a second call when nothing is running
// is a no-op.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	cancel := m.stopLoop
	m.stopLoop = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	agents := m.Agents()

	var wg sync.WaitGroup
	for _, agent := range agents {
		wg.Add(1)
		go func(a core.Agent) {
			defer wg.Done()
			_ = m.DestroyAgent(ctx, a.ID())
		}(agent)
	}
	wg.Wait()

	m.logger.Info("manager shut down", "agents_destroyed", len(agents))

	return nil
}

// RunAgentTask streams the message sequence produced by the agent's Run hook.
// An unknown agent id fails with NotFound; a failing Run hook instead yields
// a stream holding a single synthesized Error message.
func (m *Manager) RunAgentTask(ctx context.Context, ref, input string) (<-chan core.Message, error) {
	agent, err := m.findAgent(ref)
	if err != nil {
		return nil, err
	}

	stream, err := agent.Run(ctx, input)
	if err != nil {
		m.logger.Error("agent task failed", "agent", agent.Name(), "error", err.Error())

		out := make(chan core.Message, 1)
		errMsg := core.NewMessage(core.MessageError, err.Error())
		errMsg.Sender = agent.ID()
		out <- errMsg
		close(out)
		return out, nil
	}

	return stream, nil
}

// findAgent resolves an agent by id first, then by name.
func (m *Manager) findAgent(ref string) (core.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if agent, ok := m.agents[ref]; ok {
		return agent, nil
	}
	for _, agent := range m.agents {
		if agent.Name() == ref {
			return agent, nil
		}
	}
	return nil, core.NewNotFoundError("agent", ref)
}
