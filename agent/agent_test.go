package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/model"
)

// echoTool is a trivial tool double that echoes its text argument.
type echoTool struct{}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "echoes the text argument" }
func (t *echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
	}
}

func (t *echoTool) Execute(_ context.Context, args map[string]any, _ *core.AgentContext) (any, error) {
	text, _ := args["text"].(string)
	return "echo: " + text, nil
}

func TestBaseAgentStartRequiresInitialize(t *testing.T) {
	base := NewBaseAgent("raw")

	err := base.Start(context.Background())
	assert.Error(t, err)
}

func TestBaseAgentLifecycle(t *testing.T) {
	base := NewBaseAgent("worker")
	ctx := context.Background()

	agentCtx := core.NewAgentContext("session-1")
	require.NoError(t, base.Initialize(ctx, agentCtx))
	require.NoError(t, base.Start(ctx))
	assert.True(t, base.Running())
	assert.Equal(t, core.StatusIdle, base.Status())

	require.NoError(t, base.Stop(ctx))
	assert.False(t, base.Running())
	assert.Equal(t, core.StatusCompleted, base.Status())
}

func TestBaseAgentEnqueueDequeue(t *testing.T) {
	base := NewBaseAgent("postbox")

	msg := core.NewMessage(core.MessageTask, "mail")
	require.NoError(t, base.Enqueue(msg))

	got, ok := base.Dequeue(context.Background(), 100*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, msg.ID, got.ID)

	_, ok = base.Dequeue(context.Background(), 20*time.Millisecond)
	assert.False(t, ok)
}

func TestBaseAgentMailboxFull(t *testing.T) {
	base := NewBaseAgent("tiny", func(o *Options) {
		o.MailboxSize = 1
	})

	require.NoError(t, base.Enqueue(core.NewMessage(core.MessageTask, "one")))
	err := base.Enqueue(core.NewMessage(core.MessageTask, "two"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox full")
}

func TestBaseAgentRegisterToolMirrorsContext(t *testing.T) {
	base := NewBaseAgent("tooluser")
	agentCtx := core.NewAgentContext("session")
	require.NoError(t, base.Initialize(context.Background(), agentCtx))

	base.RegisterTool(&echoTool{})

	_, ok := base.Tool("echo")
	assert.True(t, ok)
	assert.Contains(t, agentCtx.Tools, "echo")
}

func TestBaseAgentExecuteTool(t *testing.T) {
	base := NewBaseAgent("tooluser")
	base.RegisterTool(&echoTool{})

	call := core.NewToolCall("echo", map[string]any{"text": "hi"})
	result := base.ExecuteTool(context.Background(), call)

	assert.True(t, result.Success)
	assert.Equal(t, "echo: hi", result.Result)
	assert.Equal(t, call.ID, result.ToolCallID)
}

func TestBaseAgentExecuteUnknownTool(t *testing.T) {
	base := NewBaseAgent("toolless")

	result := base.ExecuteTool(context.Background(), core.NewToolCall("missing", nil))
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestBaseAgentState(t *testing.T) {
	base := NewBaseAgent("snapshot")
	base.RegisterTool(&echoTool{})
	require.NoError(t, base.Enqueue(core.NewMessage(core.MessageTask, "queued")))

	state := base.State()
	assert.Equal(t, "snapshot", state.Name)
	assert.Equal(t, []string{"echo"}, state.Tools)
	assert.Equal(t, 1, state.QueueLen)
}

// scriptedModel replays a fixed response sequence and records every request's
// transcript. When the script runs out it repeats the last entry.
type scriptedModel struct {
	mu     sync.Mutex
	script []model.Response
	calls  [][]model.ChatMessage
}

func (m *scriptedModel) Generate(_ context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	m.mu.Lock()
	messages := make([]model.ChatMessage, len(req.Messages))
	copy(messages, req.Messages)
	m.calls = append(m.calls, messages)

	var resp model.Response
	if len(m.script) > 0 {
		resp = m.script[0]
		if len(m.script) > 1 {
			m.script = m.script[1:]
		}
	}
	m.mu.Unlock()

	out := make(chan model.Response, 1)
	out <- resp
	close(out)
	errCh := make(chan error, 1)
	close(errCh)
	return out, errCh
}

func (m *scriptedModel) Info() model.Info {
	return model.Info{Name: "scripted", Provider: "test", SupportsTools: true}
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func drainRun(t *testing.T, stream <-chan core.Message) []core.Message {
	t.Helper()
	var messages []core.Message
	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-stream:
			if !ok {
				return messages
			}
			messages = append(messages, msg)
		case <-timeout:
			t.Fatal("run stream never closed")
		}
	}
}

func TestModelAgentProcessMessageAnswersTasks(t *testing.T) {
	mock := model.NewMockModel("mock", "test")
	mock.AddResponse("summarize", "the summary")

	a := NewModelAgent("assistant", mock)

	task := core.NewMessage(core.MessageTask, "summarize")
	task.Sender = "caller-id"
	task.Metadata[core.MetaConversationID] = "conv-7"

	reply, err := a.ProcessMessage(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, reply)

	assert.Equal(t, core.MessageResponse, reply.Type)
	assert.Equal(t, "the summary", reply.Content)
	assert.Equal(t, a.ID(), reply.Sender)
	assert.Equal(t, "caller-id", reply.Recipient)
	assert.Equal(t, task.ID, reply.Metadata[core.MetaInResponseTo])
	assert.Equal(t, "conv-7", reply.ConversationID())
}

func TestModelAgentIgnoresNonTaskMessages(t *testing.T) {
	a := NewModelAgent("assistant", model.NewMockModel("mock", "test"))

	reply, err := a.ProcessMessage(context.Background(), core.NewMessage(core.MessageStatus, "idle"))
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestModelAgentRunStreamsStatusAndResponse(t *testing.T) {
	mock := model.NewMockModel("mock", "test")
	mock.AddResponse("hi", "hello there")

	a := NewModelAgent("assistant", mock)

	stream, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)

	messages := drainRun(t, stream)
	require.NotEmpty(t, messages)

	assert.Equal(t, core.MessageStatus, messages[0].Type)
	last := messages[len(messages)-1]
	assert.Equal(t, core.MessageResponse, last.Type)
	assert.Equal(t, "hello there", last.Content)
}

func TestModelAgentExecutesToolCalls(t *testing.T) {
	scripted := &scriptedModel{script: []model.Response{
		{
			ToolCalls: []model.ToolCall{
				{ID: "call-1", Name: "echo", Arguments: `{"text":"ping"}`},
			},
			FinishReason: "tool_calls",
		},
		{Content: "tool said: echo: ping", FinishReason: "stop"},
	}}

	a := NewModelAgent("tooluser", scripted)
	a.RegisterTool(&echoTool{})

	stream, err := a.Run(context.Background(), "use the tool")
	require.NoError(t, err)

	messages := drainRun(t, stream)
	require.NotEmpty(t, messages)

	var types []core.MessageType
	for _, msg := range messages {
		types = append(types, msg.Type)
	}
	assert.Contains(t, types, core.MessageToolCall)
	assert.Contains(t, types, core.MessageToolResult)

	last := messages[len(messages)-1]
	assert.Equal(t, core.MessageResponse, last.Type)
	assert.Equal(t, "tool said: echo: ping", last.Content)

	// Second round's transcript carries the assistant tool call and the
	// tool result turn.
	require.Equal(t, 2, scripted.callCount())
	second := scripted.calls[1]
	require.Len(t, second, 3)
	assert.Equal(t, "assistant", second[1].Role)
	assert.Equal(t, "tool", second[2].Role)
	assert.Equal(t, "echo: ping", second[2].Content)
	assert.Equal(t, "call-1", second[2].ToolCallID)
}

func TestModelAgentUnknownToolFeedsErrorBack(t *testing.T) {
	scripted := &scriptedModel{script: []model.Response{
		{
			ToolCalls:    []model.ToolCall{{ID: "call-1", Name: "missing", Arguments: `{}`}},
			FinishReason: "tool_calls",
		},
		{Content: "could not use the tool", FinishReason: "stop"},
	}}

	a := NewModelAgent("tooluser", scripted)

	stream, err := a.Run(context.Background(), "try it")
	require.NoError(t, err)
	messages := drainRun(t, stream)

	last := messages[len(messages)-1]
	assert.Equal(t, core.MessageResponse, last.Type)

	require.Equal(t, 2, scripted.callCount())
	toolTurn := scripted.calls[1][2]
	assert.Contains(t, toolTurn.Content, "not found")
}

func TestModelAgentToolRoundCap(t *testing.T) {
	// The script never stops requesting tools; the repeat-last behavior keeps
	// returning the same tool call.
	scripted := &scriptedModel{script: []model.Response{
		{
			ToolCalls:    []model.ToolCall{{ID: "call-x", Name: "echo", Arguments: `{"text":"again"}`}},
			FinishReason: "tool_calls",
		},
	}}

	a := NewModelAgent("loopy", scripted, func(o *ModelOptions) {
		o.MaxToolRounds = 2
	})
	a.RegisterTool(&echoTool{})

	stream, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	messages := drainRun(t, stream)

	require.NotEmpty(t, messages)
	last := messages[len(messages)-1]
	assert.Equal(t, core.MessageError, last.Type)
	assert.Contains(t, last.Content, fmt.Sprintf("exceeded %d tool rounds", 2))
}

func TestModelAgentRunWithoutModelFails(t *testing.T) {
	a := NewModelAgent("empty", nil)

	_, err := a.Run(context.Background(), "anything")
	assert.Error(t, err)
}
