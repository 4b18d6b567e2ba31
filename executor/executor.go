package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/logging"
)

// CommandTool is implemented by tools whose work is a shell command. The
// executor spawns and supervises the process itself so it can enforce the
// blocked-command policy before anything runs and escalate termination on
// timeout.
type CommandTool interface {
	core.Tool

	// CommandLine resolves the literal command string from the call
	// arguments. No process is spawned if it fails.
	CommandLine(args map[string]any) (string, error)
}

// CommandOutput is the structured result of a supervised command execution.
type CommandOutput struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Config governs one executor instance. It is immutable for the lifetime of
// the executor that holds it.
type Config struct {
	// Timeout bounds every tool invocation.
	Timeout time.Duration
	// MaxMemoryMB is an advisory memory ceiling reported alongside resource
	// snapshots; it is not enforced by the runtime.
	MaxMemoryMB int
	// AllowedPaths lists path prefixes command tools may touch. Advisory;
	// consumed by tools, not enforced here.
	AllowedPaths []string
	// BlockedCommands rejects any command containing one of these substrings
	// (case-insensitive) before a process is spawned.
	BlockedCommands []string
	// RequireConfirmation marks the executor's calls as needing external
	// confirmation. Consumed by callers, not enforced here.
	RequireConfirmation bool
	// KillGracePeriod is how long a terminated process gets to exit before it
	// is force-killed.
	KillGracePeriod time.Duration
}

// Options configures construction of an Executor.
type Options struct {
	Config Config
	Logger logging.Logger
}

// Executor runs a single tool invocation at a time per call, tracking
// in-flight executions and any spawned processes so they can be cancelled and
// inspected. Safe for concurrent use.
type Executor struct {
	cfg    Config
	logger logging.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	procs   map[string]*trackedProcess
}

// DefaultConfig returns the executor defaults: 30s timeout, 512MB advisory
// memory ceiling, 1s kill grace period, no blocked commands.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		MaxMemoryMB:     512,
		KillGracePeriod: time.Second,
	}
}

// New constructs an Executor with DefaultConfig unless overridden.
func New(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Config: DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config.Timeout <= 0 {
		opts.Config.Timeout = 30 * time.Second
	}
	if opts.Config.KillGracePeriod <= 0 {
		opts.Config.KillGracePeriod = time.Second
	}

	return &Executor{
		cfg:     opts.Config,
		logger:  opts.Logger,
		running: make(map[string]context.CancelFunc),
		procs:   make(map[string]*trackedProcess),
	}
}

// Config returns the immutable configuration of this executor.
func (e *Executor) Config() Config { return e.cfg }

type outcome struct {
	result any
	err    error
}

// Execute runs the tool under the configured timeout and returns the outcome
// as a ToolResult; it never returns a Go error. Command tools are checked
// against the blocked-command policy and supervised as OS processes; on
// timeout the in-flight unit is cancelled and any tracked process is
// terminated, then force-killed after the grace period.
func (e *Executor) Execute(ctx context.Context, tool core.Tool, args map[string]any, agentCtx *core.AgentContext) core.ToolResult {
	execID := fmt.Sprintf("%s_%d", tool.Name(), time.Now().UnixNano())

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.running[execID] = cancel
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.running, execID)
		e.mu.Unlock()
	}()

	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		if cmdTool, ok := tool.(CommandTool); ok {
			result, err := e.runCommand(runCtx, execID, cmdTool, args, agentCtx)
			done <- outcome{result: result, err: err}
			return
		}
		result, err := tool.Execute(runCtx, args, agentCtx)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return e.finish(execID, tool.Name(), start, out)

	case <-timer.C:
		e.cleanup(execID)
		e.logger.Error("tool execution timed out", "tool", tool.Name(), "exec_id", execID, "timeout", e.cfg.Timeout)
		return core.ToolResult{
			ToolCallID: execID,
			Success:    false,
			Error:      fmt.Sprintf("tool execution timed out after %s", e.cfg.Timeout),
		}

	case <-ctx.Done():
		e.cleanup(execID)
		return core.ToolResult{
			ToolCallID: execID,
			Success:    false,
			Error:      fmt.Sprintf("tool execution cancelled: %v", ctx.Err()),
		}
	}
}

func (e *Executor) finish(execID, toolName string, start time.Time, out outcome) core.ToolResult {
	if out.err != nil {
		e.logger.Error("tool execution failed",
			"tool", toolName, "exec_id", execID, "duration", time.Since(start), "error", out.err.Error())
		return core.ToolResult{
			ToolCallID: execID,
			Result:     out.result,
			Success:    false,
			Error:      out.err.Error(),
		}
	}

	e.logger.Info("tool execution completed",
		"tool", toolName, "exec_id", execID, "duration", time.Since(start))

	return core.ToolResult{ToolCallID: execID, Result: out.result, Success: true}
}

// blockedMatch returns the first configured blocked substring contained in
// the command (case-insensitive), or "" when the command is allowed.
func (e *Executor) blockedMatch(command string) string {
	lowered := strings.ToLower(command)
	for _, blocked := range e.cfg.BlockedCommands {
		if blocked == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(blocked)) {
			return blocked
		}
	}
	return ""
}

// cleanup cancels the in-flight unit and drives the terminate-then-kill
// sequence against any tracked process. Errors during cleanup (e.g. the
// process already exited) are swallowed.
func (e *Executor) cleanup(execID string) {
	e.mu.Lock()
	cancel := e.running[execID]
	proc := e.procs[execID]
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if proc != nil {
		proc.terminate(e.cfg.KillGracePeriod)
	}
}

// CancelAll drives the cancel-and-terminate sequence for every currently
// tracked execution.
func (e *Executor) CancelAll() {
	e.mu.Lock()
	ids := make([]string, 0, len(e.running))
	for id := range e.running {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		e.cleanup(id)
	}
}
