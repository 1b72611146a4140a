// Package model defines the Completion Gateway contract: the single capability
// that turns conversational turns plus per-call configuration into a new turn,
// either all at once (Complete) or incrementally (Stream). Implementations wrap
// provider SDKs (see subpackages openai, anthropic and langchain) and must
// translate normalized requests into vendor requests without leaking vendor
// types upward.
//
// Typical usage (inside an executor):
//
//	resp, err := gw.Complete(ctx, model.Request{Instructions: sys, Turns: turns, Tools: defs})
//
// or, for streaming:
//
//	events, err := gw.Stream(ctx, req)
//	resp, err := model.Collect(ctx, events, onDelta)
package model
