// Package anthropic provides a model.Gateway backed by the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

const provider = "anthropic"

// Options configures the Anthropic gateway (temperature, model id, max tokens, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Gateway wraps the Anthropic Messages API behind model.Gateway.
type Gateway struct {
	client *anthropic.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// NewGateway creates a new Anthropic gateway using the official client.
func NewGateway(optFns ...func(o *Options)) *Gateway {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Gateway{client: &client, opts: opts}
}

// NewGatewayFromClient creates a new Anthropic gateway from an existing client.
func NewGatewayFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Gateway {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{client: client, opts: opts}
}

// Complete implements model.Gateway.
func (g *Gateway) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	resp, err := g.client.Messages.New(ctx, g.buildParams(req))
	if err != nil {
		return nil, g.wrap(ctx, "complete", err)
	}
	return toResponse(resp), nil
}

// Stream implements model.Gateway. Text deltas are forwarded as chunk events;
// the accumulated message becomes the final response.
func (g *Gateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	stream := g.client.Messages.NewStreaming(ctx, g.buildParams(req))

	out := make(chan model.StreamEvent, 32)

	go func() {
		defer close(out)
		defer stream.Close()

		message := anthropic.Message{}
		messageID := ""

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				model.Send(ctx, out, model.StreamEvent{Type: model.StreamError, MessageID: messageID, Err: core.NewGatewayError(provider, "stream", err)})
				return
			}

			switch ev := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				messageID = ev.Message.ID
				if messageID == "" {
					messageID = core.NewID()
				}
				if !model.Send(ctx, out, model.StreamEvent{Type: model.StreamStart, MessageID: messageID}) {
					return
				}
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !model.Send(ctx, out, model.StreamEvent{Type: model.StreamChunk, MessageID: messageID, Delta: delta.Text}) {
						return
					}
				}
			}
		}

		if err := stream.Err(); err != nil {
			model.Send(ctx, out, model.StreamEvent{Type: model.StreamError, MessageID: messageID, Err: g.wrap(ctx, "stream", err)})
			return
		}

		resp := toResponse(&message)
		if resp.ID == "" {
			resp.ID = messageID
		}
		model.Send(ctx, out, model.StreamEvent{Type: model.StreamComplete, MessageID: messageID, Response: resp})
	}()

	return out, nil
}

// Info returns metadata describing this Anthropic gateway.
func (g *Gateway) Info() model.Info {
	return model.Info{
		Name:          string(g.opts.Model),
		Provider:      provider,
		SupportsTools: true,
	}
}

func (g *Gateway) wrap(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return core.FromContext(ctx)
	}
	return core.NewGatewayError(provider, op, err)
}

func (g *Gateway) buildParams(req model.Request) anthropic.MessageNewParams {
	modelName := g.opts.Model
	if req.Model != "" {
		modelName = anthropic.Model(req.Model)
	}
	temperature := g.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := g.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       modelName,
		Messages:    buildMessages(req.Turns),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(temperature),
	}

	if systemBlocks := systemPrompt(req); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	return params
}

func toResponse(msg *anthropic.Message) *model.Response {
	var parts []core.Part

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if txt := block.AsText().Text; txt != "" {
				parts = append(parts, core.TextPart{Text: txt})
			}
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := ""
			if len(toolBlock.Input) > 0 {
				args = string(toolBlock.Input)
			}
			parts = append(parts, core.FunctionCallPart{
				FunctionCall: core.FunctionCall{
					ID:        toolBlock.ID,
					Name:      toolBlock.Name,
					Arguments: args,
				},
			})
		}
	}

	return &model.Response{
		ID:           msg.ID,
		Turn:         core.NewTurn(core.RoleAssistant, "", parts...),
		FinishReason: finishReason(msg.StopReason),
		Usage: &core.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}

func finishReason(reason anthropic.StopReason) string {
	switch reason {
	case anthropic.StopReasonToolUse:
		return model.FinishToolCalls
	case anthropic.StopReasonMaxTokens:
		return model.FinishLength
	case "", anthropic.StopReasonEndTurn:
		return model.FinishStop
	default:
		return string(reason)
	}
}

// systemPrompt collects the request instructions plus any system turns.
func systemPrompt(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, t := range req.Turns {
		if t.Role != core.RoleSystem {
			continue
		}
		if txt := model.TurnText(t); txt != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: txt})
		}
	}
	return blocks
}

// buildMessages converts turns to Anthropic messages. Tool results travel in
// user messages as tool_result blocks.
func buildMessages(turns []core.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, t := range turns {
		switch t.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			if content := assistantContent(t); len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		case core.RoleTool:
			var content []anthropic.ContentBlockParamUnion
			for _, fr := range t.FunctionResponses() {
				content = append(content, anthropic.NewToolResultBlock(fr.ID, model.ToolResultText(fr), fr.Error != ""))
			}
			if len(content) > 0 {
				messages = append(messages, anthropic.NewUserMessage(content...))
			}
		default:
			if txt := strings.TrimSpace(model.TurnText(t)); txt != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(txt)))
			}
		}
	}

	return messages
}

func assistantContent(t core.Turn) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion

	for _, p := range t.Parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				content = append(content, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionCallPart:
			var input any = map[string]any{}
			if part.FunctionCall.Arguments != "" {
				if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &input); err != nil {
					input = part.FunctionCall.Arguments
				}
			}
			content = append(content, anthropic.NewToolUseBlock(
				part.FunctionCall.ID,
				input,
				part.FunctionCall.Name,
			))
		}
	}

	return content
}

func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, tool := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := tool.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				inputSchema.Properties = properties
			}
			switch req := params["required"].(type) {
			case []string:
				inputSchema.Required = req
			case []any:
				for _, r := range req {
					if s, ok := r.(string); ok {
						inputSchema.Required = append(inputSchema.Required, s)
					}
				}
			}
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Function.Name)
		if tool.Function.Description != "" && out[i].OfTool != nil {
			out[i].OfTool.Description = anthropic.String(tool.Function.Description)
		}
	}

	return out
}
