package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/logging"
)

// Step is one unit of a workflow: either a single agent or a parallel
// fan-out over several agents. A non-empty Agents list makes the step
// parallel and takes precedence over Agent.
type Step struct {
	// Name labels the step in logs. Optional.
	Name string
	// Agent identifies the agent (by id or name) for a single-agent step.
	Agent string
	// Agents identifies the agents for a parallel fan-out step. All receive
	// the same input; the next step's input is the space-joined concatenation
	// of their non-empty responses in this order.
	Agents []string
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	// Logger receives step progress diagnostics.
	Logger logging.Logger
}

// Orchestrator executes named workflows against a Manager's agents. Steps run
// left to right; every message an agent produces is forwarded to the caller's
// stream as it happens.
type Orchestrator struct {
	manager *Manager

	mu        sync.Mutex
	workflows map[string][]Step

	logger logging.Logger
}

// NewOrchestrator constructs an Orchestrator over the given manager.
func NewOrchestrator(m *Manager, optFns ...func(o *OrchestratorOptions)) *Orchestrator {
	opts := OrchestratorOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		manager:   m,
		workflows: make(map[string][]Step),
		logger:    opts.Logger,
	}
}

// RegisterWorkflow stores an ordered step list under the name, replacing any
// previous registration.
func (o *Orchestrator) RegisterWorkflow(name string, steps []Step) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.workflows[name] = append([]Step(nil), steps...)

	o.logger.Info("workflow registered", "workflow", name, "steps", len(steps))
}

// Workflows returns the registered workflow names.
func (o *Orchestrator) Workflows() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.workflows))
	for name := range o.workflows {
		names = append(names, name)
	}
	return names
}

// ExecuteWorkflow runs the named workflow with the given input and streams
// every message the steps produce. An unregistered name fails with NotFound.
// The stream ends after the final step; a step failure ends the stream with
// an Error message instead of propagating.
func (o *Orchestrator) ExecuteWorkflow(ctx context.Context, name, input string) (<-chan core.Message, error) {
	o.mu.Lock()
	steps, ok := o.workflows[name]
	o.mu.Unlock()

	if !ok {
		return nil, core.NewNotFoundError("workflow", name)
	}

	out := make(chan core.Message, 32)

	go func() {
		defer close(out)

		current := input
		for i, step := range steps {
			o.logger.Debug("workflow step", "workflow", name, "step", i, "input", current)

			var (
				next string
				err  error
			)
			if len(step.Agents) > 0 {
				next, err = o.runParallelStep(ctx, step, current, out)
			} else {
				next, err = o.runSingleStep(ctx, step.Agent, current, out)
			}
			if err != nil {
				o.logger.Error("workflow step failed",
					"workflow", name, "step", i, "error", err.Error())
				emit(ctx, out, core.NewMessage(core.MessageError, err.Error()))
				return
			}

			current = next
		}
	}()

	return out, nil
}

// runSingleStep streams one agent's task execution, forwarding every message
// and adopting the first Response content as the next input.
func (o *Orchestrator) runSingleStep(ctx context.Context, agentRef, input string, out chan<- core.Message) (string, error) {
	stepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := o.manager.RunAgentTask(stepCtx, agentRef, input)
	if err != nil {
		return "", err
	}

	for msg := range stream {
		emit(ctx, out, msg)
		if msg.Type == core.MessageResponse {
			// Stop consuming; the producer unblocks via stepCtx cancellation.
			return msg.Content, nil
		}
	}

	return "", fmt.Errorf("agent %s produced no response", agentRef)
}

// runParallelStep dispatches the same input to every listed agent
// concurrently and composes the next input from their first responses in
// list order, not completion order.
func (o *Orchestrator) runParallelStep(ctx context.Context, step Step, input string, out chan<- core.Message) (string, error) {
	results := make([]string, len(step.Agents))
	responded := make([]bool, len(step.Agents))

	var wg sync.WaitGroup
	for i, agentRef := range step.Agents {
		wg.Add(1)
		go func(idx int, ref string) {
			defer wg.Done()

			agentCtx, cancel := context.WithCancel(ctx)
			defer cancel()

			stream, err := o.manager.RunAgentTask(agentCtx, ref, input)
			if err != nil {
				emit(ctx, out, core.NewMessage(core.MessageError, err.Error()))
				return
			}

			for msg := range stream {
				emit(ctx, out, msg)
				if msg.Type == core.MessageResponse {
					results[idx] = msg.Content
					responded[idx] = true
					return
				}
			}
		}(i, agentRef)
	}
	wg.Wait()

	var parts []string
	for i, agentRef := range step.Agents {
		if !responded[i] {
			emit(ctx, out, core.NewMessage(core.MessageError,
				fmt.Sprintf("agent %s produced no response", agentRef)))
			continue
		}
		if results[i] != "" {
			parts = append(parts, results[i])
		}
	}

	return strings.Join(parts, " "), nil
}

// emit forwards one message unless the context is already done.
func emit(ctx context.Context, out chan<- core.Message, msg core.Message) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}
