// Package core contains the shared data model of the agten runtime: typed
// messages, tool call/result records, the agent and tool capability
// interfaces, and the error types raised by structural lookups.
//
// Higher-level packages (bus, manager, executor, agent) depend only on the
// interfaces declared here, never on concrete implementations, so custom
// agents and tools can be plugged in without touching the runtime.
package core
