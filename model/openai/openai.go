// Package openai provides a model.Gateway backed by the OpenAI Chat
// Completions API (including streaming and function/tool calling). It adapts
// normalized requests into the SDK's message format and back.
package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

const provider = "openai"

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// so complete function call parts can be reconstructed on finish.
type aggCall struct{ id, name, args string }

// Options configure the OpenAI gateway.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Gateway wraps the OpenAI Chat Completions API behind model.Gateway.
type Gateway struct {
	client *openai.Client
	opts   Options
}

// NewGateway creates a new OpenAI gateway using the official client, which
// reads OPENAI_API_KEY from the environment.
func NewGateway(optFns ...func(o *Options)) *Gateway {
	client := openai.NewClient()
	return NewGatewayFromClient(&client, optFns...)
}

// NewGatewayFromClient creates a new OpenAI gateway from an existing client.
func NewGatewayFromClient(client *openai.Client, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{client: client, opts: opts}
}

// Complete implements model.Gateway.
func (g *Gateway) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	params := g.buildParams(req, buildMessages(req))

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, g.wrap(ctx, "complete", err)
	}
	if len(resp.Choices) == 0 {
		return nil, core.NewGatewayError(provider, "complete", errors.New("no choices returned"))
	}

	ch0 := resp.Choices[0]
	parts := make([]core.Part, 0, len(ch0.Message.ToolCalls)+1)
	if ch0.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: ch0.Message.Content})
	}
	for _, tc := range ch0.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}

	return &model.Response{
		ID:           resp.ID,
		Turn:         core.NewTurn(core.RoleAssistant, "", parts...),
		FinishReason: ch0.FinishReason,
		Usage: &core.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Stream implements model.Gateway using the streaming Chat Completions API.
func (g *Gateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	params := g.buildParams(req, buildMessages(req))
	stream := g.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan model.StreamEvent, 32)

	go func() {
		defer close(out)
		defer stream.Close()

		var (
			textBuilder strings.Builder
			messageID   string
			started     bool
			usage       *core.Usage
			finish      string
		)
		toolAgg := map[int64]*aggCall{}
		toolOrder := []int64{}

		for stream.Next() {
			ck := stream.Current()
			if !started {
				messageID = ck.ID
				if messageID == "" {
					messageID = core.NewID()
				}
				if !model.Send(ctx, out, model.StreamEvent{Type: model.StreamStart, MessageID: messageID}) {
					return
				}
				started = true
			}
			if ck.Usage.TotalTokens > 0 {
				usage = &core.Usage{
					PromptTokens:     int(ck.Usage.PromptTokens),
					CompletionTokens: int(ck.Usage.CompletionTokens),
					TotalTokens:      int(ck.Usage.TotalTokens),
				}
			}
			for _, ch := range ck.Choices {
				if ch.Delta.Content != "" {
					textBuilder.WriteString(ch.Delta.Content)
					if !model.Send(ctx, out, model.StreamEvent{Type: model.StreamChunk, MessageID: messageID, Delta: ch.Delta.Content}) {
						return
					}
				}
				for _, tc := range ch.Delta.ToolCalls {
					ac, ok := toolAgg[tc.Index]
					if !ok {
						ac = &aggCall{}
						toolAgg[tc.Index] = ac
						toolOrder = append(toolOrder, tc.Index)
					}
					if tc.ID != "" {
						ac.id = tc.ID
					}
					if tc.Function.Name != "" {
						ac.name = tc.Function.Name
					}
					ac.args += tc.Function.Arguments
				}
				if ch.FinishReason != "" {
					finish = ch.FinishReason
				}
			}
		}

		if err := stream.Err(); err != nil {
			model.Send(ctx, out, model.StreamEvent{Type: model.StreamError, MessageID: messageID, Err: g.wrap(ctx, "stream", err)})
			return
		}

		parts := make([]core.Part, 0, len(toolAgg)+1)
		if textBuilder.Len() > 0 {
			parts = append(parts, core.TextPart{Text: textBuilder.String()})
		}
		for _, idx := range toolOrder {
			ac := toolAgg[idx]
			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        ac.id,
				Name:      ac.name,
				Arguments: ac.args,
			}})
		}
		if finish == "" {
			finish = model.FinishStop
		}

		model.Send(ctx, out, model.StreamEvent{
			Type:      model.StreamComplete,
			MessageID: messageID,
			Response: &model.Response{
				ID:           messageID,
				Turn:         core.NewTurn(core.RoleAssistant, "", parts...),
				FinishReason: finish,
				Usage:        usage,
			},
		})
	}()

	return out, nil
}

// Info returns metadata describing this OpenAI gateway.
func (g *Gateway) Info() model.Info {
	return model.Info{
		Name:          g.opts.Model,
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

// buildMessages converts normalized turns into OpenAI chat messages. Tool
// turns become tool messages keyed by call id, in conversation order.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, t := range req.Turns {
		switch t.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(model.TurnText(t)))
		case core.RoleAssistant:
			toolCalls := extractToolCalls(t)
			if len(toolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(model.TurnText(t)))
				continue
			}
			msg := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if txt := t.Text(); txt != "" {
				msg.Content.OfString = openai.String(txt)
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		case core.RoleTool:
			for _, fr := range t.FunctionResponses() {
				messages = append(messages, openai.ToolMessage(model.ToolResultText(fr), fr.ID))
			}
		default:
			if txt := model.TurnText(t); txt != "" {
				messages = append(messages, openai.UserMessage(txt))
			}
		}
	}

	return messages
}

func extractToolCalls(t core.Turn) []openai.ChatCompletionMessageToolCallParam {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	for _, fc := range t.FunctionCalls() {
		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: fc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: fc.Arguments,
			},
		})
	}
	return toolCalls
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (g *Gateway) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	modelName := g.opts.Model
	if req.Model != "" {
		modelName = req.Model
	}
	temperature := g.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := g.opts.MaxCompletionTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               modelName,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}
