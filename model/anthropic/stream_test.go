package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

func deltaServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"type\":\"message\",\"role\":\"assistant\",\"model\":\"claude\",\"content\":[],\"stop_reason\":null,\"stop_sequence\":null,\"usage\":{\"input_tokens\":1,\"output_tokens\":1}}}\n\n")
		fmt.Fprint(w, "event: content_block_start\ndata: {\"type\":\"content_block_start\",\"index\":0,\"content_block\":{\"type\":\"text\",\"text\":\"\"}}\n\n")
		for i := 0; i < n; i++ {
			fmt.Fprint(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"x\"}}\n\n")
		}
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_StopsWhenConsumerGivesUp(t *testing.T) {
	srv := deltaServer(t, 64)
	client := anthropic.NewClient(option.WithBaseURL(srv.URL), option.WithAPIKey("test"), option.WithMaxRetries(0))
	gw := NewGatewayFromClient(&client)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := gw.Stream(ctx, model.Request{Turns: []core.Turn{core.NewUserTurn("hi")}})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(events) == cap(events) }, 2*time.Second, 5*time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	var got []model.StreamEvent
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				assert.Len(t, got, cap(events), "producer must not send past the buffer once ctx is done")
				assert.Equal(t, model.StreamStart, got[0].Type)
				return
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatal("stream producer did not exit after cancellation")
		}
	}
}
