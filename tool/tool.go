// Package tool provides the built-in tool implementations and adapters:
// FunctionTool for exposing plain Go functions with schema-validated
// arguments, BashTool for supervised shell commands, and file read/write
// tools. All of them satisfy core.Tool; BashTool additionally satisfies
// executor.CommandTool so the executor can gate and supervise its process.
package tool

import "fmt"

// ToolError represents errors that occur during tool execution, carrying a
// code for categorization.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
