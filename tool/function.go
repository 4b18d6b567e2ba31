package tool

import (
	"context"
	"fmt"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/internal/util"
)

// FunctionTool adapts a plain Go function into a core.Tool. Arguments are
// validated against a minimal JSON-schema before the function runs, and
// failures are normalized into *ToolError with consistent codes:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> the wrapped function returned a non-ToolError error
//	(custom codes are preserved when the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema and
// function.
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct via
// reflection. Convenience for simple argument containers.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.SchemaFromStruct(structType), fn)
}

// Name returns the unique tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the natural-language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Execute validates the arguments against the declared schema then invokes
// the wrapped function, wrapping failures as *ToolError.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error) {
	if err := util.ValidateParameters(args, t.parameters); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(ctx, args, agentCtx)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	return result, nil
}
