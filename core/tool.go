package core

import "context"

// Tool is the capability interface for structured, named operations an agent
// can invoke. The runtime never interprets a tool's behavior; it only routes
// arguments in and results out under the executor's resource governance.
//
// Implementations should be safe for concurrent use: a single tool instance
// may be shared by several agents.
type Tool interface {
	// Name returns the unique tool identifier (snake_case recommended).
	Name() string

	// Description returns a human-readable summary of what the tool does.
	// It is exposed to models and operators, never parsed by the runtime.
	Description() string

	// Parameters returns a JSON-schema-like description of the accepted
	// arguments. The schema is used for external description and, by tool
	// adapters that opt in, for argument validation; the runtime itself does
	// not enforce it.
	Parameters() map[string]any

	// Execute runs the tool with the given arguments. Blocking work must
	// observe ctx cancellation; the executor cancels ctx on timeout.
	Execute(ctx context.Context, args map[string]any, agentCtx *AgentContext) (any, error)
}
