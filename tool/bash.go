package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/executor"
)

// BashTool executes shell commands with safety limits. It implements
// executor.CommandTool so the executor owns the process: the blocked-command
// policy is checked before spawning and the process is supervised with
// terminate-then-kill escalation on timeout.
type BashTool struct {
	executor *executor.Executor
}

// NewBashTool constructs a BashTool bound to the given executor. A nil
// executor is replaced with a default one.
func NewBashTool(exec *executor.Executor) *BashTool {
	if exec == nil {
		exec = executor.New()
	}
	return &BashTool{executor: exec}
}

// Name returns the tool identifier.
func (t *BashTool) Name() string { return "bash" }

// Description returns the tool summary exposed to models.
func (t *BashTool) Description() string {
	return "Execute bash commands with safety limits"
}

// Parameters describes the accepted arguments.
func (t *BashTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The bash command to execute",
			},
		},
		"required": []string{"command"},
	}
}

// CommandLine resolves the literal command string from the call arguments.
func (t *BashTool) CommandLine(args map[string]any) (string, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return "", errors.New("no command provided")
	}
	return command, nil
}

// Execute runs the command through the bound executor so direct invocations
// get the same governance as executor-routed ones. The executor recognizes
// the CommandTool interface and supervises the process itself.
func (t *BashTool) Execute(ctx context.Context, args map[string]any, agentCtx *core.AgentContext) (any, error) {
	result := t.executor.Execute(ctx, t, args, agentCtx)
	if !result.Success {
		return result.Result, fmt.Errorf("bash: %s", result.Error)
	}
	return result.Result, nil
}

// compile-time interface assertion
var _ executor.CommandTool = (*BashTool)(nil)
