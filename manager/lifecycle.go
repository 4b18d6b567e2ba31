package manager

import (
	"time"
)

// LifecycleEventType identifies a transition in an agent's lifecycle.
type LifecycleEventType string

const (
	// LifecycleCreated fires after the agent is constructed.
	LifecycleCreated LifecycleEventType = "created"
	// LifecycleInitialized fires after the agent is bound to its context and
	// registered.
	LifecycleInitialized LifecycleEventType = "initialized"
	// LifecycleStarted fires after a successful start.
	LifecycleStarted LifecycleEventType = "started"
	// LifecycleStopped fires after a successful stop.
	LifecycleStopped LifecycleEventType = "stopped"
	// LifecycleError is observational and may fire at any point. It does not
	// force a state transition.
	LifecycleError LifecycleEventType = "error"
	// LifecycleDestroyed fires after the agent is removed from the manager.
	LifecycleDestroyed LifecycleEventType = "destroyed"
)

// LifecycleEvent describes one lifecycle transition of a managed agent.
type LifecycleEvent struct {
	Type      LifecycleEventType
	AgentID   string
	AgentName string
	Timestamp time.Time
	// Err carries the failure for LifecycleError events, nil otherwise.
	Err error
}

// LifecycleHandler observes lifecycle events. Handlers run in registration
// order; a failing handler is logged and skipped and never blocks the
// remaining handlers or the operation that triggered the event.
type LifecycleHandler func(event LifecycleEvent) error

// emitLifecycle runs every registered handler for the event in order.
func (m *Manager) emitLifecycle(eventType LifecycleEventType, agentID, agentName string, err error) {
	event := LifecycleEvent{
		Type:      eventType,
		AgentID:   agentID,
		AgentName: agentName,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}

	m.mu.Lock()
	handlers := make([]LifecycleHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	for _, handler := range handlers {
		if herr := handler(event); herr != nil {
			m.logger.Warn("lifecycle handler failed",
				"event", string(eventType),
				"agent", agentName,
				"error", herr.Error(),
			)
		}
	}
}
