// Package bus implements the in-memory publish/subscribe router that connects
// agents, plus the conversation-tracking table and the Protocol convenience
// layer for constructing typed task/response/error/status messages.
package bus
