package progressfeed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/nexus/internal/graph"
	"github.com/dusk-indust/nexus/internal/orchestrator"
)

// ---------------------------------------------------------------------------
// SSE writer and reader
// ---------------------------------------------------------------------------

func TestSSEWriter_WritesValidSSEFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	events := []orchestrator.ProgressEvent{
		orchestrator.StartedEvent(2),
		orchestrator.ParsingEvent("a.ts", 1, 2),
		orchestrator.CancelledEvent(),
	}
	for _, ev := range events {
		require.NoError(t, w.WriteEvent(ev))
	}

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))

	var frames []string
	for _, f := range strings.Split(rec.Body.String(), "\n\n") {
		if strings.TrimSpace(f) != "" {
			frames = append(frames, f)
		}
	}
	require.Len(t, frames, 3)
	for _, frame := range frames {
		lines := strings.Split(frame, "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "event: progress", lines[0])
		assert.True(t, strings.HasPrefix(lines[1], "data: {"), "got %s", lines[1])
	}
}

func TestSSEWriter_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	sent := []orchestrator.ProgressEvent{
		orchestrator.DiscoveredEvent("src/app.ts"),
		orchestrator.ParsingEvent("src/app.ts", 1, 4),
		orchestrator.ResolvingEvent(4, 4),
		orchestrator.CompletedEvent(graph.Stats{TotalFiles: 4, TotalSymbols: 9, TotalRelationships: 3}),
	}
	for _, ev := range sent {
		require.NoError(t, w.WriteEvent(ev))
	}

	ch := ReadEvents(context.Background(), io.NopCloser(strings.NewReader(rec.Body.String())))
	var received []orchestrator.ProgressEvent
	for f := range ch {
		require.NoError(t, f.Err)
		received = append(received, f.Event)
	}
	assert.Equal(t, sent, received)
}

func TestReadEvents(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   []string // status of each frame, or "err"
	}{
		{
			name:   "data with and without space",
			stream: "data: {\"status\":\"analyzing\"}\n\ndata:{\"status\":\"complete\"}\n\n",
			want:   []string{"analyzing", "complete"},
		},
		{
			name:   "comments and unknown fields ignored",
			stream: ": keepalive\nevent: progress\nid: 7\ndata: {\"status\":\"idle\"}\n\n",
			want:   []string{"idle"},
		},
		{
			name:   "multi-line data is joined",
			stream: "data: {\"status\":\ndata: \"error\",\"errorMessage\":\"boom\"}\n\n",
			want:   []string{"error"},
		},
		{
			name:   "malformed frame does not stop the reader",
			stream: "data: {not json}\n\ndata: {\"status\":\"cancelled\"}\n\n",
			want:   []string{"err", "cancelled"},
		},
		{
			name:   "trailing frame without blank line",
			stream: "data: {\"status\":\"complete\"}",
			want:   []string{"complete"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := ReadEvents(context.Background(), io.NopCloser(strings.NewReader(tt.stream)))
			var got []string
			for f := range ch {
				if f.Err != nil {
					assert.Contains(t, f.Err.Error(), "unmarshal")
					got = append(got, "err")
					continue
				}
				got = append(got, string(f.Event.Status))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadEvents_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadEvents(ctx, pr)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open, "channel should be closed after context cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel to close after context cancellation")
	}
}

// ---------------------------------------------------------------------------
// Hub
// ---------------------------------------------------------------------------

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe("p")
	b, cancelB := h.Subscribe("p")
	other, cancelOther := h.Subscribe("q")
	defer cancelOther()
	assert.Equal(t, 2, h.Subscribers("p"))

	h.Sink("p")(orchestrator.StartedEvent(3))

	assert.Equal(t, orchestrator.StartedEvent(3), <-a)
	assert.Equal(t, orchestrator.StartedEvent(3), <-b)
	assert.Empty(t, other)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, h.Subscribers("p"))

	cancelB()
	assert.Zero(t, h.Subscribers("p"))
	assert.NotPanics(t, func() { h.Publish("p", orchestrator.IdleEvent()) })
}

func TestHub_FullSubscriberKeepsTerminalEvent(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("p")
	defer cancel()

	for i := 0; i < subscriberBuffer+10; i++ {
		h.Publish("p", orchestrator.ParsingEvent("f", i+1, 100))
	}
	h.Publish("p", orchestrator.CancelledEvent())

	var last orchestrator.ProgressEvent
	n := 0
	for len(ch) > 0 {
		last = <-ch
		n++
	}
	assert.Equal(t, subscriberBuffer, n)
	assert.Equal(t, orchestrator.StatusCancelled, last.Status)
}

// ---------------------------------------------------------------------------
// Handler
// ---------------------------------------------------------------------------

func TestHandler_StreamsProjectEvents(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Handler("default"))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"?projectId=p", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Headers arrive after the subscription exists.
	h.Publish("other", orchestrator.StartedEvent(99))
	h.Publish("p", orchestrator.StartedEvent(1))
	h.Publish("p", orchestrator.CompletedEvent(graph.Stats{TotalFiles: 1}))

	frames := ReadEvents(ctx, resp.Body)
	first := <-frames
	require.NoError(t, first.Err)
	assert.Equal(t, orchestrator.StartedEvent(1), first.Event)
	second := <-frames
	require.NoError(t, second.Err)
	assert.Equal(t, orchestrator.StatusComplete, second.Event.Status)

	cancel()
	require.Eventually(t, func() bool { return h.Subscribers("p") == 0 }, 2*time.Second, 10*time.Millisecond,
		"the subscription ends with the request")
}

func TestHandler_DefaultProject(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(h.Handler("default"))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 1, h.Subscribers("default"))
}

func TestHandler_Errors(t *testing.T) {
	h := NewHub()

	rec := httptest.NewRecorder()
	h.Handler("").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Handler("p").ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodGet, rec.Header().Get("Allow"))
}
