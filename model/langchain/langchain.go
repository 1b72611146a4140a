// Package langchain adapts any langchaingo llms.Model (Ollama, Bedrock,
// Mistral, an OpenAI-compatible endpoint, ...) into a model.Gateway.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

const provider = "langchain"

// Options configures the langchaingo gateway.
type Options struct {
	// Name reported by Info.
	Name        string
	Temperature float64
	MaxTokens   int
}

// Gateway wraps a langchaingo llms.Model.
type Gateway struct {
	llm  llms.Model
	opts Options
}

// NewGateway wraps llm.
func NewGateway(llm llms.Model, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Name:        "langchaingo",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{llm: llm, opts: opts}
}

// Complete implements model.Gateway.
func (g *Gateway) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	return g.generate(ctx, req)
}

// Stream implements model.Gateway using langchaingo's streaming callback.
func (g *Gateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	out := make(chan model.StreamEvent, 32)
	messageID := core.NewID()

	go func() {
		defer close(out)

		if !model.Send(ctx, out, model.StreamEvent{Type: model.StreamStart, MessageID: messageID}) {
			return
		}

		resp, err := g.generate(ctx, req, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if !model.Send(ctx, out, model.StreamEvent{Type: model.StreamChunk, MessageID: messageID, Delta: string(chunk)}) {
				return ctx.Err()
			}
			return nil
		}))
		if err != nil {
			model.Send(ctx, out, model.StreamEvent{Type: model.StreamError, MessageID: messageID, Err: err})
			return
		}

		resp.ID = messageID
		model.Send(ctx, out, model.StreamEvent{Type: model.StreamComplete, MessageID: messageID, Response: resp})
	}()

	return out, nil
}

// Info implements model.Gateway.
func (g *Gateway) Info() model.Info {
	return model.Info{Name: g.opts.Name, Provider: provider, SupportsTools: true}
}

func (g *Gateway) generate(ctx context.Context, req model.Request, extra ...llms.CallOption) (*model.Response, error) {
	temperature := g.opts.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := g.opts.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = int(req.MaxTokens)
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	}
	if req.Model != "" {
		callOpts = append(callOpts, llms.WithModel(req.Model))
	}
	if len(req.Tools) > 0 {
		callOpts = append(callOpts,
			llms.WithFunctions(buildFunctions(req.Tools)),
			llms.WithFunctionCallBehavior(llms.FunctionCallBehaviorAuto),
		)
	}
	callOpts = append(callOpts, extra...)

	resp, err := g.llm.GenerateContent(ctx, buildMessages(req), callOpts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.FromContext(ctx)
		}
		return nil, core.NewGatewayError(provider, "complete", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, core.NewGatewayError(provider, "complete", errors.New("no choices returned"))
	}

	choice := resp.Choices[0]
	parts := make([]core.Part, 0, 2)
	if choice.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Content})
	}

	finish := model.FinishStop
	if choice.StopReason != "" {
		finish = choice.StopReason
	}

	// The function calling API returns at most one call and no call id.
	if fc := choice.FuncCall; fc != nil && fc.Name != "" {
		args := fc.Arguments
		if args == "" {
			args = "{}"
		}
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        core.NewID(),
			Name:      fc.Name,
			Arguments: args,
		}})
		finish = model.FinishToolCalls
	}

	return &model.Response{
		ID:           core.NewID(),
		Turn:         core.NewTurn(core.RoleAssistant, "", parts...),
		FinishReason: finish,
	}, nil
}

// buildMessages renders the conversation. Function traffic is replayed as
// text, since not every langchaingo backend accepts the function role.
func buildMessages(req model.Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Turns)+1)
	if req.Instructions != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, req.Instructions))
	}

	for _, t := range req.Turns {
		switch t.Role {
		case core.RoleSystem:
			messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, model.TurnText(t)))
		case core.RoleAssistant:
			var texts []string
			if txt := t.Text(); txt != "" {
				texts = append(texts, txt)
			}
			for _, fc := range t.FunctionCalls() {
				texts = append(texts, fmt.Sprintf("call %s(%s)", fc.Name, fc.Arguments))
			}
			if len(texts) > 0 {
				messages = append(messages, llms.TextParts(schema.ChatMessageTypeAI, strings.Join(texts, "\n")))
			}
		case core.RoleTool:
			var texts []string
			for _, fr := range t.FunctionResponses() {
				texts = append(texts, fmt.Sprintf("result %s: %s", fr.Name, model.ToolResultText(fr)))
			}
			if len(texts) > 0 {
				messages = append(messages, llms.TextParts(schema.ChatMessageTypeGeneric, strings.Join(texts, "\n")))
			}
		default:
			if txt := model.TurnText(t); txt != "" {
				messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, txt))
			}
		}
	}

	return messages
}

func buildFunctions(defs []model.ToolDefinition) []llms.FunctionDefinition {
	fns := make([]llms.FunctionDefinition, len(defs))
	for i, d := range defs {
		fns[i] = llms.FunctionDefinition{
			Name:        d.Function.Name,
			Description: d.Function.Description,
			Parameters:  d.Function.Parameters,
		}
	}
	return fns
}
