package core

import (
	"errors"
	"fmt"
)

// NotFoundError reports a lookup for an unknown agent, tool, workflow or
// conversation id. It is raised synchronously at the failing lookup so the
// caller can correct the identifier; everything that happens after routing
// succeeds fails softly instead (ToolResult, error-type message).
type NotFoundError struct {
	Kind string // "agent", "tool", "workflow", "conversation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NewNotFoundError constructs a NotFoundError for the given kind and id.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
