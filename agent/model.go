package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AbhinavShaw09/agten/core"
	"github.com/AbhinavShaw09/agten/executor"
	"github.com/AbhinavShaw09/agten/logging"
	"github.com/AbhinavShaw09/agten/model"
)

// defaultMaxToolRounds bounds the plan/act loop so a model that keeps
// requesting tools cannot spin forever.
const defaultMaxToolRounds = 8

// ModelOptions configures a ModelAgent.
type ModelOptions struct {
	// Description documents the agent's purpose.
	Description string
	// Instructions is the system prompt sent with every generation.
	Instructions string
	// MaxToolRounds caps consecutive tool-call rounds per task (default 8).
	MaxToolRounds int
	// MailboxSize overrides the inbound channel buffer.
	MailboxSize int
	// Executor governs tool invocations. A nil executor gets defaults.
	Executor *executor.Executor
	// Logger receives generation and tool diagnostics.
	Logger logging.Logger
}

// ModelAgent is an LLM-backed agent. It plans with a model.Model and acts
// through the tool executor: the model's tool calls are executed under the
// executor's timeout and process governance, their results fed back into the
// transcript, and the loop repeats until the model produces a plain response
// or the round cap is hit.
type ModelAgent struct {
	BaseAgent

	model         model.Model
	executor      *executor.Executor
	instructions  string
	maxToolRounds int
	logger        logging.Logger
}

// NewModelAgent constructs a ModelAgent around the given model.
func NewModelAgent(name string, m model.Model, optFns ...func(o *ModelOptions)) *ModelAgent {
	opts := ModelOptions{
		Description:   fmt.Sprintf("Model-backed agent %s", name),
		MaxToolRounds: defaultMaxToolRounds,
		MailboxSize:   defaultMailboxSize,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Executor == nil {
		opts.Executor = executor.New(func(o *executor.Options) {
			o.Logger = opts.Logger
		})
	}

	base := NewBaseAgent(name, func(o *Options) {
		o.Description = opts.Description
		o.MailboxSize = opts.MailboxSize
		o.Logger = opts.Logger
	})

	return &ModelAgent{
		BaseAgent:     base,
		model:         m,
		executor:      opts.Executor,
		instructions:  opts.Instructions,
		maxToolRounds: opts.MaxToolRounds,
		logger:        opts.Logger,
	}
}

// Model returns the underlying model.
func (a *ModelAgent) Model() model.Model { return a.model }

// ProcessMessage handles one inbound message. Task messages run the full
// plan/act loop and yield a Response addressed to the sender; other message
// types are acknowledged without a reply.
func (a *ModelAgent) ProcessMessage(ctx context.Context, msg core.Message) (*core.Message, error) {
	if msg.Type != core.MessageTask {
		return nil, nil
	}

	a.SetStatus(core.StatusThinking)
	defer a.SetStatus(core.StatusIdle)

	content, err := a.generate(ctx, msg.Content, nil)
	if err != nil {
		return nil, err
	}

	reply := core.NewMessage(core.MessageResponse, content)
	reply.Sender = a.ID()
	reply.Recipient = msg.Sender
	reply.Metadata[core.MetaInResponseTo] = msg.ID
	if convID := msg.ConversationID(); convID != "" {
		reply.Metadata[core.MetaConversationID] = convID
	}

	return &reply, nil
}

// Run executes a one-off task and streams progress as messages: a thinking
// status, one ToolCall/ToolResult pair per executed tool, and the final
// Response. The channel closes when the task completes or fails.
func (a *ModelAgent) Run(ctx context.Context, input string) (<-chan core.Message, error) {
	if a.model == nil {
		return nil, fmt.Errorf("agent %s has no model", a.Name())
	}

	out := make(chan core.Message, 16)

	go func() {
		defer close(out)

		a.SetStatus(core.StatusThinking)
		defer a.SetStatus(core.StatusIdle)

		a.emit(ctx, out, a.statusMessage(string(core.StatusThinking)))

		content, err := a.generate(ctx, input, func(msg core.Message) {
			a.emit(ctx, out, msg)
		})
		if err != nil {
			a.SetStatus(core.StatusError)
			errMsg := core.NewMessage(core.MessageError, err.Error())
			errMsg.Sender = a.ID()
			a.emit(ctx, out, errMsg)
			return
		}

		reply := core.NewMessage(core.MessageResponse, content)
		reply.Sender = a.ID()
		a.emit(ctx, out, reply)
	}()

	return out, nil
}

// generate runs the plan/act loop. The optional observe callback receives
// ToolCall and ToolResult messages as tools run.
func (a *ModelAgent) generate(ctx context.Context, input string, observe func(core.Message)) (string, error) {
	messages := []model.ChatMessage{{Role: "user", Content: input}}

	for round := 0; round <= a.maxToolRounds; round++ {
		resp, err := a.complete(ctx, messages)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		if round == a.maxToolRounds {
			return "", fmt.Errorf("agent %s exceeded %d tool rounds", a.Name(), a.maxToolRounds)
		}

		messages = append(messages, model.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result := a.invokeTool(ctx, tc, observe)
			messages = append(messages, model.ChatMessage{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	return "", fmt.Errorf("agent %s produced no final response", a.Name())
}

// complete performs one non-streaming model call and returns the final chunk.
func (a *ModelAgent) complete(ctx context.Context, messages []model.ChatMessage) (model.Response, error) {
	req := model.Request{
		Instructions: a.instructions,
		Messages:     messages,
		Tools:        a.toolDefinitions(),
	}

	respCh, errCh := a.model.Generate(ctx, req)

	var final model.Response
	for resp := range respCh {
		if !resp.Partial {
			final = resp
		}
	}
	if err := <-errCh; err != nil {
		return model.Response{}, fmt.Errorf("model generation failed: %w", err)
	}

	return final, nil
}

// invokeTool executes one model tool call through the executor and returns
// the textual result fed back to the model.
func (a *ModelAgent) invokeTool(ctx context.Context, tc model.ToolCall, observe func(core.Message)) string {
	args := map[string]any{}
	if tc.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
			a.logger.Warn("malformed tool arguments", "agent", a.Name(), "tool", tc.Name, "error", err.Error())
		}
	}

	if observe != nil {
		callMsg := core.NewMessage(core.MessageToolCall, tc.Name)
		callMsg.Sender = a.ID()
		callMsg.Metadata["tool_call_id"] = tc.ID
		callMsg.Metadata["arguments"] = args
		observe(callMsg)
	}

	var result core.ToolResult

	tool, ok := a.Tool(tc.Name)
	if !ok {
		result = core.ToolResult{
			ToolCallID: tc.ID,
			Success:    false,
			Error:      fmt.Sprintf("tool %q not found", tc.Name),
		}
	} else {
		a.SetStatus(core.StatusActing)
		result = a.executor.Execute(ctx, tool, args, a.Context())
		result.ToolCallID = tc.ID
		a.SetStatus(core.StatusThinking)
	}

	if observe != nil {
		content := result.Error
		if result.Success {
			content = stringifyResult(result.Result)
		}
		resMsg := core.NewMessage(core.MessageToolResult, content)
		resMsg.Sender = a.ID()
		resMsg.Metadata["tool_call_id"] = tc.ID
		resMsg.Metadata["success"] = result.Success
		observe(resMsg)
	}

	if !result.Success {
		return fmt.Sprintf("error: %s", result.Error)
	}
	return stringifyResult(result.Result)
}

// toolDefinitions converts the registered tools into model definitions.
func (a *ModelAgent) toolDefinitions() []model.ToolDefinition {
	tools := a.Tools()
	if len(tools) == 0 {
		return nil
	}

	defs := make([]model.ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return defs
}

func (a *ModelAgent) statusMessage(status string) core.Message {
	msg := core.NewMessage(core.MessageStatus, status)
	msg.Sender = a.ID()
	return msg
}

// emit delivers a progress message unless the context is already done.
func (a *ModelAgent) emit(ctx context.Context, out chan<- core.Message, msg core.Message) {
	select {
	case out <- msg:
	case <-ctx.Done():
	}
}

// stringifyResult renders a tool result for the model transcript. Structured
// results are JSON-encoded, plain strings pass through.
func stringifyResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	default:
		if data, err := json.Marshal(r); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", r)
	}
}

// compile-time interface assertion
var _ core.Agent = (*ModelAgent)(nil)
