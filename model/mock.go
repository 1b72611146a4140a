package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/meshflow/core"
)

// GatewayFunc adapts a plain function into a Gateway. Stream is derived from
// the function via StreamFromComplete.
type GatewayFunc func(ctx context.Context, req Request) (*Response, error)

// Complete implements Gateway.
func (f GatewayFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// Stream implements Gateway.
func (f GatewayFunc) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	return StreamFromComplete(ctx, req, f)
}

// Info implements Gateway.
func (f GatewayFunc) Info() Info {
	return Info{Name: "func", Provider: "func", SupportsTools: true}
}

// MockGateway is a lightweight in-memory Gateway useful for tests, examples
// and offline runs of the CLI. Queued responses are served first (FIFO);
// afterwards canned completions are looked up by the last text of the
// request, falling back to "Mock response to: <text>".
type MockGateway struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	queue     []*Response
	calls     []Request
}

// NewMockGateway constructs a MockGateway with basic tool support enabled.
func NewMockGateway(name string) *MockGateway {
	return &MockGateway{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockGateway) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends responses served in order before any canned lookup.
func (m *MockGateway) Enqueue(responses ...*Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, responses...)
}

// Calls returns a copy of every request received so far.
func (m *MockGateway) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Complete implements Gateway.
func (m *MockGateway) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, core.FromContext(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		cp := *next
		cp.Turn = next.Turn.Clone()
		if cp.ID == "" {
			cp.ID = core.NewID()
		}
		return &cp, nil
	}

	input := req.LastText()
	full, ok := m.responses[input]
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", input)
	}

	return &Response{
		ID:           core.NewID(),
		Turn:         core.NewTextTurn(core.RoleAssistant, "", full),
		FinishReason: FinishStop,
	}, nil
}

// Stream implements Gateway by emitting the completion as one chunk per rune.
func (m *MockGateway) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	resp, err := m.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamEvent)

	go func() {
		defer close(out)

		if !Send(ctx, out, StreamEvent{Type: StreamStart, MessageID: resp.ID}) {
			return
		}
		for _, r := range resp.Turn.Text() {
			if !Send(ctx, out, StreamEvent{Type: StreamChunk, MessageID: resp.ID, Delta: string(r)}) {
				return
			}
		}
		Send(ctx, out, StreamEvent{Type: StreamComplete, MessageID: resp.ID, Response: resp})
	}()

	return out, nil
}

// Info implements Gateway.
func (m *MockGateway) Info() Info { return m.info }
