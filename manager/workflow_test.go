package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhinavShaw09/agten/core"
)

// respondAfter builds a run hook that emits a status then one response,
// optionally delayed, and records the inputs it was given.
func respondAfter(agent *stubAgent, response string, delay time.Duration, inputs *inputLog) {
	agent.run = func(input string) (<-chan core.Message, error) {
		if inputs != nil {
			inputs.add(agent.name, input)
		}
		out := make(chan core.Message, 2)
		go func() {
			defer close(out)
			if delay > 0 {
				time.Sleep(delay)
			}
			status := core.NewMessage(core.MessageStatus, string(core.StatusThinking))
			status.Sender = agent.id
			out <- status

			resp := core.NewMessage(core.MessageResponse, response)
			resp.Sender = agent.id
			out <- resp
		}()
		return out, nil
	}
}

type inputLog struct {
	mu      sync.Mutex
	entries map[string]string
}

func newInputLog() *inputLog {
	return &inputLog{entries: make(map[string]string)}
}

func (l *inputLog) add(agent, input string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[agent] = input
}

func (l *inputLog) get(agent string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[agent]
}

func drain(t *testing.T, stream <-chan core.Message) []core.Message {
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
			t.Fatal("workflow stream never closed")
		}
	}
}

func TestExecuteWorkflowUnknownNameFails(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)

	_, err := o.ExecuteWorkflow(context.Background(), "missing", "input")
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestRegisterWorkflowReplacesSteps(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)

	o.RegisterWorkflow("w", []Step{{Agent: "a"}})
	o.RegisterWorkflow("w", []Step{{Agent: "b"}, {Agent: "c"}})

	assert.Equal(t, []string{"w"}, o.Workflows())
}

func TestPipelineChainsResponses(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)
	ctx := context.Background()

	inputs := newInputLog()

	a := newStub("A")
	respondAfter(a, "mid", 0, inputs)
	b := newStub("B")
	respondAfter(b, "done", 0, inputs)

	_, err := m.CreateAgent(ctx, a.constructor, "A", nil)
	require.NoError(t, err)
	_, err = m.CreateAgent(ctx, b.constructor, "B", nil)
	require.NoError(t, err)

	o.RegisterWorkflow("pipeline", []Step{{Agent: "A"}, {Agent: "B"}})

	stream, err := o.ExecuteWorkflow(ctx, "pipeline", "start")
	require.NoError(t, err)

	messages := drain(t, stream)
	require.NotEmpty(t, messages)

	last := messages[len(messages)-1]
	assert.Equal(t, core.MessageResponse, last.Type)
	assert.Equal(t, "done", last.Content)

	assert.Equal(t, "start", inputs.get("A"))
	assert.Equal(t, "mid", inputs.get("B"))
}

func TestParallelStepJoinsInListOrder(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)
	ctx := context.Background()

	inputs := newInputLog()

	// A is slower than B so completion order differs from list order.
	a := newStub("A")
	respondAfter(a, "x", 100*time.Millisecond, inputs)
	b := newStub("B")
	respondAfter(b, "y", 0, inputs)
	sink := newStub("Sink")
	respondAfter(sink, "final", 0, inputs)

	for _, s := range []*stubAgent{a, b, sink} {
		_, err := m.CreateAgent(ctx, s.constructor, s.name, nil)
		require.NoError(t, err)
	}

	o.RegisterWorkflow("fanout", []Step{
		{Agents: []string{"A", "B"}},
		{Agent: "Sink"},
	})

	stream, err := o.ExecuteWorkflow(ctx, "fanout", "go")
	require.NoError(t, err)
	drain(t, stream)

	assert.Equal(t, "go", inputs.get("A"))
	assert.Equal(t, "go", inputs.get("B"))
	assert.Equal(t, "x y", inputs.get("Sink"))
}

func TestParallelStepSkipsEmptyResponses(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)
	ctx := context.Background()

	inputs := newInputLog()

	a := newStub("A")
	respondAfter(a, "", 0, inputs)
	b := newStub("B")
	respondAfter(b, "y", 0, inputs)
	sink := newStub("Sink")
	respondAfter(sink, "final", 0, inputs)

	for _, s := range []*stubAgent{a, b, sink} {
		_, err := m.CreateAgent(ctx, s.constructor, s.name, nil)
		require.NoError(t, err)
	}

	o.RegisterWorkflow("fanout", []Step{
		{Agents: []string{"A", "B"}},
		{Agent: "Sink"},
	})

	stream, err := o.ExecuteWorkflow(ctx, "fanout", "go")
	require.NoError(t, err)
	drain(t, stream)

	assert.Equal(t, "y", inputs.get("Sink"))
}

func TestParallelStepSynthesizesErrorForSilentAgent(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)
	ctx := context.Background()

	silent := newStub("Silent")
	silent.run = func(string) (<-chan core.Message, error) {
		out := make(chan core.Message)
		close(out)
		return out, nil
	}
	talker := newStub("Talker")
	respondAfter(talker, "y", 0, nil)
	sink := newStub("Sink")
	inputs := newInputLog()
	respondAfter(sink, "final", 0, inputs)

	for _, s := range []*stubAgent{silent, talker, sink} {
		_, err := m.CreateAgent(ctx, s.constructor, s.name, nil)
		require.NoError(t, err)
	}

	o.RegisterWorkflow("fanout", []Step{
		{Agents: []string{"Silent", "Talker"}},
		{Agent: "Sink"},
	})

	stream, err := o.ExecuteWorkflow(ctx, "fanout", "go")
	require.NoError(t, err)
	messages := drain(t, stream)

	var sawError bool
	for _, msg := range messages {
		if msg.Type == core.MessageError {
			sawError = true
		}
	}
	assert.True(t, sawError, "expected a synthesized error for the silent agent")
	assert.Equal(t, "y", inputs.get("Sink"))
}

func TestWorkflowUnknownAgentEndsWithError(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)

	o.RegisterWorkflow("broken", []Step{{Agent: "Ghost"}})

	stream, err := o.ExecuteWorkflow(context.Background(), "broken", "go")
	require.NoError(t, err)

	messages := drain(t, stream)
	require.NotEmpty(t, messages)
	assert.Equal(t, core.MessageError, messages[len(messages)-1].Type)
}

func TestSingleStepStopsConsumingAfterResponse(t *testing.T) {
	m, _ := newTestManager()
	o := NewOrchestrator(m)
	ctx := context.Background()

	chatty := newStub("Chatty")
	chatty.run = func(string) (<-chan core.Message, error) {
		out := make(chan core.Message, 3)
		resp := core.NewMessage(core.MessageResponse, "first")
		out <- resp
		trailing := core.NewMessage(core.MessageStatus, "ignored")
		out <- trailing
		close(out)
		return out, nil
	}

	_, err := m.CreateAgent(ctx, chatty.constructor, "Chatty", nil)
	require.NoError(t, err)

	o.RegisterWorkflow("short", []Step{{Agent: "Chatty"}})

	stream, err := o.ExecuteWorkflow(ctx, "short", "go")
	require.NoError(t, err)
	messages := drain(t, stream)

	require.NotEmpty(t, messages)
	last := messages[len(messages)-1]
	assert.Equal(t, core.MessageResponse, last.Type)
	assert.Equal(t, "first", last.Content)
}
