package core

import (
	"context"
	"time"
)

// AgentStatus tracks what an agent is currently doing.
type AgentStatus string

const (
	// StatusIdle means the agent is waiting for work.
	StatusIdle AgentStatus = "idle"
	// StatusThinking means the agent is reasoning about a task.
	StatusThinking AgentStatus = "thinking"
	// StatusActing means the agent is executing a tool.
	StatusActing AgentStatus = "acting"
	// StatusWaiting means the agent is blocked on an external response.
	StatusWaiting AgentStatus = "waiting"
	// StatusError means the agent's last operation failed.
	StatusError AgentStatus = "error"
	// StatusCompleted means the agent has been stopped.
	StatusCompleted AgentStatus = "completed"
)

// AgentContext carries per-session state shared between an agent and the
// tools it invokes. The manager builds a default context when none is
// supplied at creation time.
type AgentContext struct {
	SessionID string
	UserID    string
	Variables map[string]any
	History   []Message
	Tools     map[string]Tool
}

// NewAgentContext constructs an empty context bound to a session id.
func NewAgentContext(sessionID string) *AgentContext {
	return &AgentContext{
		SessionID: sessionID,
		Variables: map[string]any{},
		Tools:     map[string]Tool{},
	}
}

// AgentState is a point-in-time snapshot of an agent's externally visible
// state, returned by State().
type AgentState struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Status    AgentStatus `json:"status"`
	Tools     []string    `json:"tools"`
	SessionID string      `json:"session_id,omitempty"`
	QueueLen  int         `json:"queue_len"`
}

// Agent is the capability interface every actor in the runtime implements.
//
// The manager owns an agent's registration and drives its lifecycle; the
// agent owns its inbound mailbox and tool table. Implementations must:
//   - respect context cancellation on every blocking operation
//   - keep ProcessMessage and Run free of panics; failures are returned as
//     errors or emitted as error-type messages
//   - treat Enqueue/Dequeue as the only mailbox access points
type Agent interface {
	// ID returns the unique identifier assigned at construction.
	ID() string

	// Name returns the human-readable name.
	Name() string

	// Status returns the current lifecycle/activity status.
	Status() AgentStatus

	// State returns a snapshot of the agent's externally visible state.
	State() AgentState

	// Initialize binds the agent to its session context. Must be called
	// before Start.
	Initialize(ctx context.Context, agentCtx *AgentContext) error

	// Start transitions the agent into its running state.
	Start(ctx context.Context) error

	// Stop transitions the agent out of its running state.
	Stop(ctx context.Context) error

	// Enqueue places a message on the agent's inbound mailbox for later
	// processing. It fails when the mailbox rejects the message (full or
	// closed); the caller decides whether that is fatal.
	Enqueue(msg Message) error

	// Dequeue waits up to the given duration for a pending inbound message.
	// The boolean reports whether a message was received.
	Dequeue(ctx context.Context, wait time.Duration) (Message, bool)

	// ProcessMessage handles one inbound message and optionally produces a
	// reply to be republished by the caller.
	ProcessMessage(ctx context.Context, msg Message) (*Message, error)

	// Run executes an end-to-end task, streaming the messages it produces.
	// The returned channel is closed when the task completes. Setup failures
	// are reported synchronously; failures mid-run are emitted on the stream
	// as error-type messages.
	Run(ctx context.Context, input string) (<-chan Message, error)
}
