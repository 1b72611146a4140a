package testutil

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

func textResponse(text string) *model.Response {
	return &model.Response{
		ID:           core.NewID(),
		Turn:         core.NewTextTurn(core.RoleAssistant, "", text),
		FinishReason: model.FinishStop,
	}
}

// EchoGateway answers "<agent id>:" + text of the last request turn.
type EchoGateway struct {
	calls atomic.Int64
}

// NewEchoGateway returns an echo gateway.
func NewEchoGateway() *EchoGateway { return &EchoGateway{} }

// Calls returns how many completions were served.
func (g *EchoGateway) Calls() int { return int(g.calls.Load()) }

// Complete implements model.Gateway.
func (g *EchoGateway) Complete(_ context.Context, req model.Request) (*model.Response, error) {
	g.calls.Add(1)
	return textResponse(req.AgentID + ":" + req.LastText()), nil
}

// Stream implements model.Gateway.
func (g *EchoGateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	return model.StreamFromComplete(ctx, req, g.Complete)
}

// Info implements model.Gateway.
func (g *EchoGateway) Info() model.Info { return model.Info{Name: "echo", Provider: "test"} }

// Responder produces the response for one call of an agent. n is the
// zero-based call index for that agent.
type Responder func(req model.Request, n int) (*model.Response, error)

// Text returns a Responder answering with a fixed text.
func Text(text string) Responder {
	return func(model.Request, int) (*model.Response, error) { return textResponse(text), nil }
}

// Fail returns a Responder failing with err.
func Fail(err error) Responder {
	return func(model.Request, int) (*model.Response, error) { return nil, err }
}

// Turn returns a Responder answering with a prepared turn.
func Turn(t core.Turn) Responder {
	return func(model.Request, int) (*model.Response, error) {
		return &model.Response{ID: core.NewID(), Turn: t.Clone(), FinishReason: model.FinishToolCalls}, nil
	}
}

// ScriptedGateway replays per-agent scripts. Once an agent's script is
// exhausted its last responder repeats; agents without a script are echoed.
type ScriptedGateway struct {
	mu       sync.Mutex
	scripts  map[string][]Responder
	counts   map[string]int
	requests []model.Request
}

// NewScriptedGateway returns an empty scripted gateway.
func NewScriptedGateway() *ScriptedGateway {
	return &ScriptedGateway{scripts: map[string][]Responder{}, counts: map[string]int{}}
}

// On appends responders to agentID's script (chainable).
func (g *ScriptedGateway) On(agentID string, rs ...Responder) *ScriptedGateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scripts[agentID] = append(g.scripts[agentID], rs...)
	return g
}

// CallCount returns how often agentID reached the gateway.
func (g *ScriptedGateway) CallCount(agentID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[agentID]
}

// Requests returns every request received, in arrival order.
func (g *ScriptedGateway) Requests() []model.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Request(nil), g.requests...)
}

// Complete implements model.Gateway.
func (g *ScriptedGateway) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	g.mu.Lock()
	n := g.counts[req.AgentID]
	g.counts[req.AgentID] = n + 1
	g.requests = append(g.requests, req)
	script := g.scripts[req.AgentID]
	g.mu.Unlock()

	if len(script) == 0 {
		return textResponse(req.AgentID + ":" + req.LastText()), nil
	}
	idx := n
	if idx >= len(script) {
		idx = len(script) - 1
	}
	return script[idx](req, n)
}

// Stream implements model.Gateway.
func (g *ScriptedGateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	return model.StreamFromComplete(ctx, req, g.Complete)
}

// Info implements model.Gateway.
func (g *ScriptedGateway) Info() model.Info { return model.Info{Name: "scripted", Provider: "test"} }

// ConcurrencyGateway sleeps for a (optionally randomized) delay per call and
// records the peak number of calls in flight.
type ConcurrencyGateway struct {
	Delay     time.Duration
	Randomize bool

	inflight atomic.Int64
	peak     atomic.Int64
	total    atomic.Int64

	mu    sync.Mutex
	order []string
}

// Peak returns the maximum number of simultaneously in-flight calls observed.
func (g *ConcurrencyGateway) Peak() int { return int(g.peak.Load()) }

// Total returns the number of calls served.
func (g *ConcurrencyGateway) Total() int { return int(g.total.Load()) }

// CompletionOrder returns agent ids in the order their calls finished.
func (g *ConcurrencyGateway) CompletionOrder() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.order...)
}

// Complete implements model.Gateway.
func (g *ConcurrencyGateway) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	cur := g.inflight.Add(1)
	defer g.inflight.Add(-1)
	for {
		p := g.peak.Load()
		if cur <= p || g.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	delay := g.Delay
	if g.Randomize && delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay))) + time.Millisecond
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	g.total.Add(1)
	g.mu.Lock()
	g.order = append(g.order, req.AgentID)
	g.mu.Unlock()

	return textResponse(fmt.Sprintf("%s:done", req.AgentID)), nil
}

// Stream implements model.Gateway.
func (g *ConcurrencyGateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	return model.StreamFromComplete(ctx, req, g.Complete)
}

// Info implements model.Gateway.
func (g *ConcurrencyGateway) Info() model.Info {
	return model.Info{Name: "concurrency", Provider: "test"}
}

// SlowGateway blocks each call for Delay (or until the call context ends)
// then echoes like EchoGateway.
type SlowGateway struct {
	Delay time.Duration
}

// Complete implements model.Gateway.
func (g *SlowGateway) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(g.Delay):
	}
	return textResponse(req.AgentID + ":" + req.LastText()), nil
}

// Stream implements model.Gateway.
func (g *SlowGateway) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	return model.StreamFromComplete(ctx, req, g.Complete)
}

// Info implements model.Gateway.
func (g *SlowGateway) Info() model.Info { return model.Info{Name: "slow", Provider: "test"} }
