package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinavShaw09/agten/core"
)

// stubAgent is a minimal core.Agent double that records delivered messages.
type stubAgent struct {
	id      string
	name    string
	inbox   chan core.Message
	rejects bool
}

func newStubAgent(name string) *stubAgent {
	return &stubAgent{
		id:    core.NewID(),
		name:  name,
		inbox: make(chan core.Message, 16),
	}
}

func (s *stubAgent) ID() string                  { return s.id }
func (s *stubAgent) Name() string                { return s.name }
func (s *stubAgent) Status() core.AgentStatus    { return core.StatusIdle }
func (s *stubAgent) State() core.AgentState      { return core.AgentState{ID: s.id, Name: s.name} }
func (s *stubAgent) Start(context.Context) error { return nil }
func (s *stubAgent) Stop(context.Context) error  { return nil }

func (s *stubAgent) Initialize(context.Context, *core.AgentContext) error { return nil }

func (s *stubAgent) Enqueue(msg core.Message) error {
	if s.rejects {
		return errors.New("mailbox closed")
	}
	s.inbox <- msg
	return nil
}

func (s *stubAgent) Dequeue(ctx context.Context, wait time.Duration) (core.Message, bool) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case msg := <-s.inbox:
		return msg, true
	case <-timer.C:
		return core.Message{}, false
	case <-ctx.Done():
		return core.Message{}, false
	}
}

func (s *stubAgent) ProcessMessage(context.Context, core.Message) (*core.Message, error) {
	return nil, nil
}

func (s *stubAgent) Run(context.Context, string) (<-chan core.Message, error) {
	out := make(chan core.Message)
	close(out)
	return out, nil
}

func (s *stubAgent) received(t *testing.T) core.Message {
	t.Helper()
	msg, ok := s.Dequeue(context.Background(), 200*time.Millisecond)
	require.True(t, ok, "agent %s received no message", s.name)
	return msg
}

func (s *stubAgent) receivedNothing() bool {
	_, ok := s.Dequeue(context.Background(), 50*time.Millisecond)
	return !ok
}

func TestPublishDeliversToTopicAndGlobal(t *testing.T) {
	b := New()

	topical := newStubAgent("topical")
	global := newStubAgent("global")
	other := newStubAgent("other")

	b.Subscribe(topical, "research")
	b.Subscribe(global, "")
	b.Subscribe(other, "coding")

	msg := core.NewMessage(core.MessageTask, "dig in")
	b.Publish(msg, "research")

	assert.Equal(t, msg.ID, topical.received(t).ID)
	assert.Equal(t, msg.ID, global.received(t).ID)
	assert.True(t, other.receivedNothing())
}

func TestPublishRecipientFilter(t *testing.T) {
	b := New()

	target := newStubAgent("target")
	bystander := newStubAgent("bystander")

	b.Subscribe(target, "")
	b.Subscribe(bystander, "")

	msg := core.NewMessage(core.MessageTask, "for you only")
	msg.Recipient = target.ID()
	b.Publish(msg, "")

	assert.Equal(t, msg.ID, target.received(t).ID)
	assert.True(t, bystander.receivedNothing())
}

func TestPublishRecipientWithoutMatchDeliversToNobody(t *testing.T) {
	b := New()

	sub := newStubAgent("sub")
	b.Subscribe(sub, "")

	msg := core.NewMessage(core.MessageTask, "lost")
	msg.Recipient = "nonexistent-id"
	b.Publish(msg, "")

	assert.True(t, sub.receivedNothing())
}

func TestDuplicateSubscriptionDeliversTwice(t *testing.T) {
	b := New()

	agent := newStubAgent("dup")
	b.Subscribe(agent, "")
	b.Subscribe(agent, "")

	b.Publish(core.NewMessage(core.MessageTask, "once"), "")

	agent.received(t)
	agent.received(t)
	assert.True(t, agent.receivedNothing())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	b := New()

	agent := newStubAgent("leaver")
	stranger := newStubAgent("stranger")

	b.Subscribe(agent, "news")

	b.Unsubscribe(agent, "news")
	b.Unsubscribe(agent, "news")
	b.Unsubscribe(stranger, "news")
	b.Unsubscribe(stranger, "")

	b.Publish(core.NewMessage(core.MessageTask, "gone"), "news")
	assert.True(t, agent.receivedNothing())
}

func TestUnsubscribeRemovesOneMembership(t *testing.T) {
	b := New()

	agent := newStubAgent("dup")
	b.Subscribe(agent, "")
	b.Subscribe(agent, "")
	b.Unsubscribe(agent, "")

	b.Publish(core.NewMessage(core.MessageTask, "once"), "")

	agent.received(t)
	assert.True(t, agent.receivedNothing())
}

func TestConversationHistoryFollowsPublishOrder(t *testing.T) {
	b := New()

	convID := core.NewID()

	m1 := core.NewMessage(core.MessageTask, "first")
	m1.Metadata[core.MetaConversationID] = convID
	m1.Sender = "alpha"

	m2 := core.NewMessage(core.MessageResponse, "second")
	m2.Metadata[core.MetaConversationID] = convID
	m2.Sender = "beta"

	b.Publish(m1, "")
	b.Publish(m2, "")

	history := b.GetConversationHistory(convID)
	require.Len(t, history, 2)
	assert.Equal(t, m1.ID, history[0].ID)
	assert.Equal(t, m2.ID, history[1].ID)

	state := b.GetConversation(convID)
	require.NotNil(t, state)
	assert.Equal(t, "beta", state.CurrentAgent)
}

func TestGetConversationReturnsSnapshot(t *testing.T) {
	b := New()

	convID := core.NewID()
	msg := core.NewMessage(core.MessageTask, "original")
	msg.Metadata[core.MetaConversationID] = convID
	b.Publish(msg, "")

	state := b.GetConversation(convID)
	require.NotNil(t, state)
	state.Messages[0].Content = "mutated"
	state.Metadata["injected"] = true

	fresh := b.GetConversation(convID)
	assert.Equal(t, "original", fresh.Messages[0].Content)
	assert.NotContains(t, fresh.Metadata, "injected")
}

func TestGetConversationUnknownID(t *testing.T) {
	b := New()
	assert.Nil(t, b.GetConversation("missing"))
	assert.Empty(t, b.GetConversationHistory("missing"))
}

func TestPublishToleratesDeliveryFailure(t *testing.T) {
	b := New()

	broken := newStubAgent("broken")
	broken.rejects = true
	healthy := newStubAgent("healthy")

	b.Subscribe(broken, "")
	b.Subscribe(healthy, "")

	convID := core.NewID()
	msg := core.NewMessage(core.MessageTask, "still recorded")
	msg.Metadata[core.MetaConversationID] = convID

	b.Publish(msg, "")

	assert.Equal(t, msg.ID, healthy.received(t).ID)
	// Conversation state is appended regardless of delivery outcome.
	assert.Len(t, b.GetConversationHistory(convID), 1)
}
