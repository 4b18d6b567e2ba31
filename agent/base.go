// Package agent provides the reusable agent building blocks of the runtime:
// BaseAgent, which carries identity, status, the inbound mailbox and the tool
// table, and ModelAgent, an LLM-backed agent that plans with a model and acts
// through the tool executor.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/logging"
)

// defaultMailboxSize bounds the inbound FIFO channel per agent. Enqueue fails
// fast once the buffer is full; the bus logs and continues.
const defaultMailboxSize = 256

// Options configures a BaseAgent.
type Options struct {
	// Description documents the agent's purpose.
	Description string
	// MailboxSize overrides the inbound channel buffer (default 256).
	MailboxSize int
	// Logger receives lifecycle and tool-execution diagnostics.
	Logger logging.Logger
}

// BaseAgent bundles the state every agent shares: identity, status, session
// context, tool table and the inbound mailbox. Embed it in a concrete agent
// and supply ProcessMessage and Run to satisfy core.Agent. All exported
// methods are goroutine-safe.
type BaseAgent struct {
	id          string
	name        string
	description string

	mu       sync.Mutex
	status   core.AgentStatus
	agentCtx *core.AgentContext
	tools    map[string]core.Tool
	running  bool

	mailbox chan core.Message
	logger  logging.Logger
}

// NewBaseAgent constructs a BaseAgent with a generated id and idle status.
func NewBaseAgent(name string, optFns ...func(o *Options)) BaseAgent {
	opts := Options{
		Description: fmt.Sprintf("Agent %s", name),
		MailboxSize: defaultMailboxSize,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return BaseAgent{
		id:          core.NewID(),
		name:        name,
		description: opts.Description,
		status:      core.StatusIdle,
		tools:       make(map[string]core.Tool),
		mailbox:     make(chan core.Message, opts.MailboxSize),
		logger:      opts.Logger,
	}
}

// ID returns the unique identifier assigned at construction.
func (b *BaseAgent) ID() string { return b.id }

// Name returns the human-readable name.
func (b *BaseAgent) Name() string { return b.name }

// Description returns the agent's purpose description.
func (b *BaseAgent) Description() string { return b.description }

// Status returns the current activity status.
func (b *BaseAgent) Status() core.AgentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

// SetStatus updates the activity status. Intended for embedding agents that
// report thinking/acting transitions.
func (b *BaseAgent) SetStatus(status core.AgentStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

// Initialize binds the agent to its session context and registers any tools
// already attached to the agent into the context's tool table.
func (b *BaseAgent) Initialize(_ context.Context, agentCtx *core.AgentContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.agentCtx = agentCtx
	b.status = core.StatusIdle
	for name, tool := range b.tools {
		agentCtx.Tools[name] = tool
	}

	b.logger.Info("agent initialized", "agent", b.name, "session_id", agentCtx.SessionID)

	return nil
}

// Start marks the agent as running. It fails when the agent has not been
// initialized.
func (b *BaseAgent) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.agentCtx == nil {
		return errors.New("agent must be initialized before starting")
	}

	b.running = true
	b.status = core.StatusIdle

	b.logger.Info("agent started", "agent", b.name)

	return nil
}

// Stop marks the agent as no longer running.
func (b *BaseAgent) Stop(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.running = false
	b.status = core.StatusCompleted

	b.logger.Info("agent stopped", "agent", b.name)

	return nil
}

// Running reports whether Start has been called without a subsequent Stop.
func (b *BaseAgent) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Context returns the session context bound at initialization, or nil.
func (b *BaseAgent) Context() *core.AgentContext {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.agentCtx
}

// Enqueue places a message on the inbound mailbox. It fails when the mailbox
// is full rather than blocking the publisher.
func (b *BaseAgent) Enqueue(msg core.Message) error {
	select {
	case b.mailbox <- msg:
		return nil
	default:
		return fmt.Errorf("agent %s mailbox full", b.name)
	}
}

// Dequeue waits up to the given duration for one pending inbound message.
func (b *BaseAgent) Dequeue(ctx context.Context, wait time.Duration) (core.Message, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case msg := <-b.mailbox:
		return msg, true
	case <-timer.C:
		return core.Message{}, false
	case <-ctx.Done():
		return core.Message{}, false
	}
}

// RegisterTool adds a tool to the agent's tool table, mirroring it into the
// session context when one is bound.
func (b *BaseAgent) RegisterTool(tool core.Tool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tools[tool.Name()] = tool
	if b.agentCtx != nil {
		b.agentCtx.Tools[tool.Name()] = tool
	}
}

// Tool looks up a registered tool by name.
func (b *BaseAgent) Tool(name string) (core.Tool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tool, ok := b.tools[name]
	return tool, ok
}

// Tools returns the registered tools in an unspecified order.
func (b *BaseAgent) Tools() []core.Tool {
	b.mu.Lock()
	defer b.mu.Unlock()

	tools := make([]core.Tool, 0, len(b.tools))
	for _, tool := range b.tools {
		tools = append(tools, tool)
	}
	return tools
}

// ExecuteTool resolves the named tool and runs it directly, folding any
// failure into the returned ToolResult. Agents that need timeout and process
// governance route calls through executor.Executor instead.
func (b *BaseAgent) ExecuteTool(ctx context.Context, call core.ToolCall) core.ToolResult {
	tool, ok := b.Tool(call.Name)
	if !ok {
		return core.ToolResult{
			ToolCallID: call.ID,
			Success:    false,
			Error:      fmt.Sprintf("tool %q not found", call.Name),
		}
	}

	b.SetStatus(core.StatusActing)
	defer b.SetStatus(core.StatusIdle)

	result, err := tool.Execute(ctx, call.Arguments, b.Context())
	if err != nil {
		b.logger.Error("tool execution failed", "agent", b.name, "tool", call.Name, "error", err.Error())
		return core.ToolResult{ToolCallID: call.ID, Success: false, Error: err.Error()}
	}

	return core.ToolResult{ToolCallID: call.ID, Result: result, Success: true}
}

// State returns a snapshot of the agent's externally visible state.
func (b *BaseAgent) State() core.AgentState {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.tools))
	for name := range b.tools {
		names = append(names, name)
	}

	state := core.AgentState{
		ID:       b.id,
		Name:     b.name,
		Status:   b.status,
		Tools:    names,
		QueueLen: len(b.mailbox),
	}
	if b.agentCtx != nil {
		state.SessionID = b.agentCtx.SessionID
	}
	return state
}
