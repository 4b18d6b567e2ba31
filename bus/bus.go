package bus

import (
	"sync"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/logging"
)

// ConversationState tracks one id-keyed thread of related messages. Messages
// is append-only in publish-call order; CurrentAgent is the sender of the
// most recent message.
type ConversationState struct {
	Messages     []core.Message
	CurrentAgent string
	Metadata     map[string]any
}

// clone returns a snapshot safe for external use.
func (s *ConversationState) clone() *ConversationState {
	cp := &ConversationState{
		Messages:     make([]core.Message, len(s.Messages)),
		CurrentAgent: s.CurrentAgent,
		Metadata:     make(map[string]any, len(s.Metadata)),
	}
	copy(cp.Messages, s.Messages)
	for k, v := range s.Metadata {
		cp.Metadata[k] = v
	}
	return cp
}

// Options configures a MessageBus.
type Options struct {
	// Logger receives delivery-failure and subscription diagnostics.
	Logger logging.Logger
}

// MessageBus routes messages to per-topic and global subscriber sets and
// maintains the conversation-state table. All methods are safe for concurrent
// use; subscriber and conversation tables are guarded by explicit locks.
type MessageBus struct {
	mu     sync.RWMutex
	topics map[string][]core.Agent
	global []core.Agent

	convMu        sync.Mutex
	conversations map[string]*ConversationState

	logger logging.Logger
}

// New constructs an empty MessageBus.
func New(optFns ...func(o *Options)) *MessageBus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &MessageBus{
		topics:        make(map[string][]core.Agent),
		conversations: make(map[string]*ConversationState),
		logger:        opts.Logger,
	}
}

// Subscribe adds the agent to the topic's subscriber set, or to the global
// set when topic is empty. Duplicate subscriptions are kept and produce
// duplicate delivery; callers must avoid double-subscribing.
func (b *MessageBus) Subscribe(agent core.Agent, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topic != "" {
		b.topics[topic] = append(b.topics[topic], agent)
	} else {
		b.global = append(b.global, agent)
	}

	b.logger.Debug("agent subscribed", "agent", agent.Name(), "topic", topicLabel(topic))
}

// Unsubscribe removes one membership of the agent from the topic's subscriber
// set (or the global set when topic is empty). Unsubscribing an agent that is
// not present is a no-op.
func (b *MessageBus) Unsubscribe(agent core.Agent, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if topic != "" {
		b.topics[topic] = removeOne(b.topics[topic], agent)
	} else {
		b.global = removeOne(b.global, agent)
	}

	b.logger.Debug("agent unsubscribed", "agent", agent.Name(), "topic", topicLabel(topic))
}

// Publish delivers the message to the union of the topic's subscribers (when
// a topic is given) and the global subscribers. When the message names a
// recipient, the set is filtered down to agents with that id; an empty result
// is a legal deliver-to-nobody outcome.
//
// Deliveries are dispatched concurrently and independently: a failure to
// enqueue for one agent is logged and never aborts the others or the publish
// call. After all dispatches have completed, a message carrying a
// conversation id is appended to that conversation's state regardless of
// delivery outcomes, so history order follows publish-call order, not
// processing order.
func (b *MessageBus) Publish(msg core.Message, topic string) {
	recipients := b.matchRecipients(msg, topic)

	var wg sync.WaitGroup
	for _, agent := range recipients {
		wg.Add(1)
		go func(a core.Agent) {
			defer wg.Done()
			if err := a.Enqueue(msg); err != nil {
				b.logger.Warn("message delivery failed",
					"agent", a.Name(), "message_id", msg.ID, "error", err.Error())
			}
		}(agent)
	}
	wg.Wait()

	b.updateConversation(msg)
}

func (b *MessageBus) matchRecipients(msg core.Message, topic string) []core.Agent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var recipients []core.Agent
	if topic != "" {
		recipients = append(recipients, b.topics[topic]...)
	}
	recipients = append(recipients, b.global...)

	if msg.Recipient == "" {
		return recipients
	}

	var matched []core.Agent
	for _, agent := range recipients {
		if agent.ID() == msg.Recipient {
			matched = append(matched, agent)
		}
	}
	return matched
}

func (b *MessageBus) updateConversation(msg core.Message) {
	conversationID := msg.ConversationID()
	if conversationID == "" {
		return
	}

	b.convMu.Lock()
	defer b.convMu.Unlock()

	state, ok := b.conversations[conversationID]
	if !ok {
		state = &ConversationState{Metadata: map[string]any{}}
		b.conversations[conversationID] = state
	}

	state.Messages = append(state.Messages, msg)
	if msg.Sender != "" {
		state.CurrentAgent = msg.Sender
	}
}

// GetConversation returns a snapshot of the conversation state, or nil when
// the id is unknown.
func (b *MessageBus) GetConversation(conversationID string) *ConversationState {
	b.convMu.Lock()
	defer b.convMu.Unlock()

	state, ok := b.conversations[conversationID]
	if !ok {
		return nil
	}
	return state.clone()
}

// GetConversationHistory returns the ordered messages of the conversation, or
// an empty slice when the id is unknown.
func (b *MessageBus) GetConversationHistory(conversationID string) []core.Message {
	state := b.GetConversation(conversationID)
	if state == nil {
		return nil
	}
	return state.Messages
}

// removeOne deletes the first occurrence of agent from the slice, preserving
// order so duplicate subscriptions lose exactly one membership.
func removeOne(agents []core.Agent, agent core.Agent) []core.Agent {
	for i, a := range agents {
		if a == agent {
			return append(agents[:i:i], agents[i+1:]...)
		}
	}
	return agents
}

func topicLabel(topic string) string {
	if topic == "" {
		return "global"
	}
	return topic
}
