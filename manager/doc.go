// Package manager owns agent lifecycles and scheduling. The Manager creates,
// starts, stops and destroys agents, drives a fixed-interval tick loop that
// drains each agent's mailbox, and isolates per-agent processing failures.
// The Orchestrator layers named workflows on top, executing single and
// fan-out-parallel agent steps.
package manager
