package bus

import (
	"errors"

	"github.com/AbhinavShaw09/agten/core"
)

// Protocol is a thin convenience layer over the MessageBus that constructs
// typed messages, attaches the reserved metadata keys, and publishes them.
type Protocol struct {
	bus *MessageBus
}

// NewProtocol wraps an existing bus.
func NewProtocol(b *MessageBus) *Protocol {
	return &Protocol{bus: b}
}

// Bus returns the underlying MessageBus.
func (p *Protocol) Bus() *MessageBus { return p.bus }

// Publish forwards an already constructed message to the bus without a topic.
func (p *Protocol) Publish(msg core.Message) {
	p.bus.Publish(msg, "")
}

// SendTask publishes a task message from sender to the recipient id and
// returns the message id.
func (p *Protocol) SendTask(sender core.Agent, recipientID, content string, metadata map[string]any) string {
	msg := p.build(core.MessageTask, sender.ID(), recipientID, content, metadata)
	p.bus.Publish(msg, "")
	return msg.ID
}

// SendResponse publishes a response linked to the originating message id via
// the in_response_to metadata key.
func (p *Protocol) SendResponse(sender core.Agent, recipientID, content, originalMessageID string, metadata map[string]any) string {
	msg := p.build(core.MessageResponse, sender.ID(), recipientID, content, metadata)
	msg.Metadata[core.MetaInResponseTo] = originalMessageID
	p.bus.Publish(msg, "")
	return msg.ID
}

// SendError publishes an error message, optionally linked to the originating
// message id.
func (p *Protocol) SendError(sender core.Agent, recipientID, errorMessage, originalMessageID string, metadata map[string]any) string {
	msg := p.build(core.MessageError, sender.ID(), recipientID, errorMessage, metadata)
	if originalMessageID != "" {
		msg.Metadata[core.MetaInResponseTo] = originalMessageID
	}
	p.bus.Publish(msg, "")
	return msg.ID
}

// BroadcastStatus publishes a status message with no recipient so every
// global subscriber receives it.
func (p *Protocol) BroadcastStatus(sender core.Agent, status core.AgentStatus, metadata map[string]any) string {
	msg := p.build(core.MessageStatus, sender.ID(), "", string(status), metadata)
	p.bus.Publish(msg, "")
	return msg.ID
}

// CreateConversation generates a fresh conversation id, stamps the initial
// message with the id, participant list and initiator, and sends it as a task
// to the first participant. The new conversation id is returned.
func (p *Protocol) CreateConversation(initiator core.Agent, participants []string, initialMessage string, metadata map[string]any) (string, error) {
	if len(participants) == 0 {
		return "", errors.New("conversation requires at least one participant")
	}

	conversationID := core.NewID()

	msg := p.build(core.MessageTask, initiator.ID(), participants[0], initialMessage, metadata)
	msg.Metadata[core.MetaConversationID] = conversationID
	msg.Metadata[core.MetaParticipants] = participants
	msg.Metadata[core.MetaInitiator] = initiator.ID()

	p.bus.Publish(msg, "")

	return conversationID, nil
}

// ReplyToConversation addresses a response to the sender of the most recent
// message in the conversation. It fails with a NotFoundError when the
// conversation is unknown or holds no messages yet.
func (p *Protocol) ReplyToConversation(sender core.Agent, conversationID, content string, metadata map[string]any) (string, error) {
	state := p.bus.GetConversation(conversationID)
	if state == nil || len(state.Messages) == 0 {
		return "", core.NewNotFoundError("conversation", conversationID)
	}

	last := state.Messages[len(state.Messages)-1]

	msg := p.build(core.MessageResponse, sender.ID(), last.Sender, content, metadata)
	msg.Metadata[core.MetaConversationID] = conversationID
	msg.Metadata[core.MetaInResponseTo] = last.ID

	p.bus.Publish(msg, "")

	return msg.ID, nil
}

// build assembles a message, copying caller metadata so the published message
// owns its map.
func (p *Protocol) build(msgType core.MessageType, senderID, recipientID, content string, metadata map[string]any) core.Message {
	msg := core.NewMessage(msgType, content)
	msg.Sender = senderID
	msg.Recipient = recipientID
	for k, v := range metadata {
		msg.Metadata[k] = v
	}
	return msg
}
