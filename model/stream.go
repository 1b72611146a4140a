package model

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/meshflow/core"
)

// Collect folds a stream of events into the final Response. onDelta (may be
// nil) is invoked synchronously for every chunk. An error event, a closed
// channel without a complete event, or ctx expiry all produce an error.
func Collect(ctx context.Context, events <-chan StreamEvent, onDelta func(messageID, delta string)) (*Response, error) {
	var (
		text      strings.Builder
		messageID string
	)

	for {
		select {
		case <-ctx.Done():
			return nil, core.FromContext(ctx)
		case ev, ok := <-events:
			if !ok {
				return nil, core.NewGatewayError("", "stream", errors.New("stream closed before completion"))
			}

			switch ev.Type {
			case StreamStart:
				messageID = ev.MessageID
			case StreamChunk:
				text.WriteString(ev.Delta)
				if onDelta != nil {
					onDelta(ev.MessageID, ev.Delta)
				}
			case StreamError:
				err := ev.Err
				if err == nil {
					err = errors.New("stream error event without cause")
				}
				var gwErr *core.GatewayError
				if errors.As(err, &gwErr) {
					return nil, err
				}
				return nil, core.NewGatewayError("", "stream", err)
			case StreamComplete:
				resp := ev.Response
				if resp == nil {
					// Providers that only stream text deltas finish with a bare event.
					resp = &Response{
						Turn:         core.NewTextTurn(core.RoleAssistant, "", text.String()),
						FinishReason: FinishStop,
					}
				}
				if resp.ID == "" {
					resp.ID = firstNonEmpty(ev.MessageID, messageID)
				}
				return resp, nil
			}
		}
	}
}

// Send delivers ev on out unless ctx ends first. It reports whether the
// event was delivered; producers stop on false.
func Send(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- ev:
		return true
	}
}

// StreamFromComplete adapts a single Complete call into a start / chunk /
// complete event sequence. Gateways without native streaming use it to
// satisfy the Stream half of the contract.
func StreamFromComplete(ctx context.Context, req Request, complete func(context.Context, Request) (*Response, error)) (<-chan StreamEvent, error) {
	out := make(chan StreamEvent, 3)

	go func() {
		defer close(out)

		messageID := core.NewID()
		out <- StreamEvent{Type: StreamStart, MessageID: messageID}

		resp, err := complete(ctx, req)
		if err != nil {
			out <- StreamEvent{Type: StreamError, MessageID: messageID, Err: err}
			return
		}
		if resp.ID == "" {
			resp.ID = messageID
		}
		if txt := resp.Turn.Text(); txt != "" {
			out <- StreamEvent{Type: StreamChunk, MessageID: messageID, Delta: txt}
		}
		out <- StreamEvent{Type: StreamComplete, MessageID: messageID, Response: resp}
	}()

	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
