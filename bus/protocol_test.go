package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinavShaw09/agten/core"
)

func TestSendTaskAddressesRecipient(t *testing.T) {
	b := New()
	p := NewProtocol(b)

	sender := newStubAgent("sender")
	recipient := newStubAgent("recipient")
	b.Subscribe(recipient, "")

	msgID := p.SendTask(sender, recipient.ID(), "do the thing", map[string]any{"priority": "high"})
	require.NotEmpty(t, msgID)

	msg := recipient.received(t)
	assert.Equal(t, core.MessageTask, msg.Type)
	assert.Equal(t, "do the thing", msg.Content)
	assert.Equal(t, sender.ID(), msg.Sender)
	assert.Equal(t, "high", msg.Metadata["priority"])
}

func TestSendResponseLinksOriginalMessage(t *testing.T) {
	b := New()
	p := NewProtocol(b)

	sender := newStubAgent("sender")
	recipient := newStubAgent("recipient")
	b.Subscribe(recipient, "")

	p.SendResponse(sender, recipient.ID(), "done", "orig-123", nil)

	msg := recipient.received(t)
	assert.Equal(t, core.MessageResponse, msg.Type)
	assert.Equal(t, "orig-123", msg.Metadata[core.MetaInResponseTo])
}

func TestSendErrorWithoutOriginal(t *testing.T) {
	b := New()
	p := NewProtocol(b)

	sender := newStubAgent("sender")
	recipient := newStubAgent("recipient")
	b.Subscribe(recipient, "")

	p.SendError(sender, recipient.ID(), "boom", "", nil)

	msg := recipient.received(t)
	assert.Equal(t, core.MessageError, msg.Type)
	assert.Equal(t, "boom", msg.Content)
	assert.NotContains(t, msg.Metadata, core.MetaInResponseTo)
}

func TestBroadcastStatusReachesAllGlobals(t *testing.T) {
	b := New()
	p := NewProtocol(b)

	sender := newStubAgent("sender")
	a := newStubAgent("a")
	c := newStubAgent("c")
	b.Subscribe(a, "")
	b.Subscribe(c, "")

	p.BroadcastStatus(sender, core.StatusThinking, nil)

	assert.Equal(t, string(core.StatusThinking), a.received(t).Content)
	assert.Equal(t, string(core.StatusThinking), c.received(t).Content)
}

func TestCreateConversationRequiresParticipants(t *testing.T) {
	p := NewProtocol(New())

	_, err := p.CreateConversation(newStubAgent("init"), nil, "hello", nil)
	assert.Error(t, err)
}

func TestCreateConversationStampsMetadata(t *testing.T) {
	b := New()
	p := NewProtocol(b)

	initiator := newStubAgent("initiator")
	first := newStubAgent("first")
	b.Subscribe(first, "")

	participants := []string{first.ID(), "second-id"}
	convID, err := p.CreateConversation(initiator, participants, "kick off", nil)
	require.NoError(t, err)
	require.NotEmpty(t, convID)

	msg := first.received(t)
	assert.Equal(t, core.MessageTask, msg.Type)
	assert.Equal(t, convID, msg.ConversationID())
	assert.Equal(t, participants, msg.Metadata[core.MetaParticipants])
	assert.Equal(t, initiator.ID(), msg.Metadata[core.MetaInitiator])

	require.Len(t, b.GetConversationHistory(convID), 1)
}

func TestReplyToConversationAddressesLastSender(t *testing.T) {
	b := New()
	p := NewProtocol(b)

	initiator := newStubAgent("initiator")
	first := newStubAgent("first")
	b.Subscribe(initiator, "")
	b.Subscribe(first, "")

	convID, err := p.CreateConversation(initiator, []string{first.ID()}, "question", nil)
	require.NoError(t, err)
	first.received(t)

	replyID, err := p.ReplyToConversation(first, convID, "answer", nil)
	require.NoError(t, err)
	require.NotEmpty(t, replyID)

	msg := initiator.received(t)
	assert.Equal(t, core.MessageResponse, msg.Type)
	assert.Equal(t, "answer", msg.Content)
	assert.Equal(t, convID, msg.ConversationID())

	history := b.GetConversationHistory(convID)
	require.Len(t, history, 2)
	assert.Equal(t, replyID, history[1].ID)
}

func TestReplyToConversationUnknownIDFails(t *testing.T) {
	p := NewProtocol(New())

	_, err := p.ReplyToConversation(newStubAgent("a"), "no-such-conversation", "hi", nil)
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}
