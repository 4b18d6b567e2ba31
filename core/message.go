package core

import (
	"time"

	"github.com/google/uuid"
)

// MessageType categorizes a message for routing and handling decisions.
type MessageType string

const (
	// MessageTask asks an agent to perform a unit of work.
	MessageTask MessageType = "task"
	// MessageResponse carries the outcome of a previously sent task.
	MessageResponse MessageType = "response"
	// MessageError reports a failure back to the original sender.
	MessageError MessageType = "error"
	// MessageStatus broadcasts an agent's progress or state change.
	MessageStatus MessageType = "status"
	// MessageToolCall announces a tool invocation an agent is about to make.
	MessageToolCall MessageType = "tool_call"
	// MessageToolResult reports the outcome of a tool invocation.
	MessageToolResult MessageType = "tool_result"
)

// Reserved metadata keys inspected by the runtime. Message bodies are opaque;
// these are the only keys the bus and protocol ever look at.
const (
	// MetaConversationID threads a message into a conversation.
	MetaConversationID = "conversation_id"
	// MetaInResponseTo links a response or error to the originating message id.
	MetaInResponseTo = "in_response_to"
	// MetaParticipants lists the agent ids taking part in a conversation.
	MetaParticipants = "participants"
	// MetaInitiator records the agent id that opened a conversation.
	MetaInitiator = "initiator"
)

// Message is the unit of communication between agents. It is immutable once
// published; helper functions may add metadata before the message is handed
// to the bus. Each recipient receives an independent logical copy (Message is
// passed by value, only the metadata map is shared and must not be mutated
// after publish).
type Message struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Sender    string         `json:"sender,omitempty"`
	Recipient string         `json:"recipient,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewMessage constructs a message with a fresh id and UTC timestamp. Sender,
// recipient and metadata are set by the caller before publishing.
func NewMessage(msgType MessageType, content string) Message {
	return Message{
		ID:        NewID(),
		Type:      msgType,
		Content:   content,
		Metadata:  map[string]any{},
		Timestamp: time.Now().UTC(),
	}
}

// ConversationID returns the conversation id carried in the metadata, or ""
// if the message is not part of a conversation.
func (m Message) ConversationID() string {
	if v, ok := m.Metadata[MetaConversationID].(string); ok {
		return v
	}
	return ""
}

// ToolCall is a request to invoke a named tool with structured arguments.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NewToolCall constructs a ToolCall with a generated id.
func NewToolCall(name string, arguments map[string]any) ToolCall {
	return ToolCall{ID: NewID(), Name: name, Arguments: arguments}
}

// ToolResult records the outcome of a single tool invocation. Exactly one
// ToolResult is produced per dispatched call. Success and Error are mutually
// exclusive: a successful result never carries an error description.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Result     any    `json:"result,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// NewID generates a unique identifier used for messages, agents,
// conversations and tool executions.
func NewID() string { return uuid.NewString() }
