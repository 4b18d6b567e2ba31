// Package executor runs tool invocations under resource and time governance:
// every call is bounded by a configured timeout, shell-command tools are
// policy-gated and supervised as OS processes with terminate-then-kill
// escalation, and no failure ever escapes as a Go error — the outcome is
// always folded into a core.ToolResult.
package executor
