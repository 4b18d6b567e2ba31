package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/AbhinavShaw09/agten/core"
)

// trackedProcess wraps a spawned command's process handle so timeout cleanup
// and resource snapshots can reach it after the exec.Cmd is no longer
// accessible.
type trackedProcess struct {
	proc *process.Process
}

// terminate sends a graceful terminate signal, waits out the grace period and
// force-kills the process if it is still alive. Every error is swallowed: the
// process may legitimately have exited already.
func (t *trackedProcess) terminate(grace time.Duration) {
	if err := t.proc.Terminate(); err != nil {
		return
	}

	time.Sleep(grace)

	if running, err := t.proc.IsRunning(); err == nil && running {
		_ = t.proc.Kill()
	}
}

// runCommand resolves, gates and supervises a shell command. The policy gate
// runs before anything is spawned; a blocked command never reaches the OS.
// The returned CommandOutput is populated even on non-zero exit so callers
// see captured output alongside the failure.
func (e *Executor) runCommand(ctx context.Context, execID string, tool CommandTool, args map[string]any, agentCtx *core.AgentContext) (any, error) {
	command, err := tool.CommandLine(args)
	if err != nil {
		return nil, err
	}
	if command == "" {
		return nil, errors.New("no command provided")
	}

	if blocked := e.blockedMatch(command); blocked != "" {
		e.logger.Warn("command blocked by policy", "tool", tool.Name(), "matched", blocked)
		return nil, fmt.Errorf("command blocked by policy (matched %q)", blocked)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", command)
	} else {
		cmd = exec.Command("sh", "-c", command)
	}
	cmd.Dir = workingDirectory(agentCtx)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("command start failed: %w", err)
	}

	if proc, perr := process.NewProcess(int32(cmd.Process.Pid)); perr == nil {
		e.mu.Lock()
		e.procs[execID] = &trackedProcess{proc: proc}
		e.mu.Unlock()
	}
	defer func() {
		e.mu.Lock()
		delete(e.procs, execID)
		e.mu.Unlock()
	}()

	waitErr := cmd.Wait()

	out := CommandOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, fmt.Errorf("command exited with code %d", out.ExitCode)
		}
		return out, fmt.Errorf("command execution failed: %w", waitErr)
	}

	return out, nil
}

// workingDirectory reads the working_directory session variable, defaulting
// to the current directory.
func workingDirectory(agentCtx *core.AgentContext) string {
	if agentCtx == nil {
		return "."
	}
	if dir, ok := agentCtx.Variables["working_directory"].(string); ok && dir != "" {
		return dir
	}
	return "."
}

// ResourceUsage is a best-effort snapshot of one supervised process.
type ResourceUsage struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   float64 `json:"memory_mb"`
	Status     string  `json:"status"`
}

// GetResourceUsage returns a per-execution-id snapshot of every currently
// tracked process. Processes that have already exited are reported with
// status "terminated" rather than raising.
func (e *Executor) GetResourceUsage() map[string]ResourceUsage {
	e.mu.Lock()
	tracked := make(map[string]*trackedProcess, len(e.procs))
	for id, tp := range e.procs {
		tracked[id] = tp
	}
	e.mu.Unlock()

	usage := make(map[string]ResourceUsage, len(tracked))
	for id, tp := range tracked {
		cpu, cpuErr := tp.proc.CPUPercent()
		mem, memErr := tp.proc.MemoryInfo()
		statuses, statusErr := tp.proc.Status()

		if cpuErr != nil || memErr != nil || statusErr != nil {
			usage[id] = ResourceUsage{Status: "terminated"}
			continue
		}

		usage[id] = ResourceUsage{
			CPUPercent: cpu,
			MemoryMB:   float64(mem.RSS) / 1024 / 1024,
			Status:     strings.Join(statuses, ","),
		}
	}
	return usage
}
