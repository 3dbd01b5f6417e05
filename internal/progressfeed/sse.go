// Package progressfeed streams analysis progress events to HTTP clients as
// Server-Sent Events.
package progressfeed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dusk-indust/nexus/internal/orchestrator"
)

// SSEWriter writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any events to set the required headers.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSEWriter wrapping the given ResponseWriter.
// The ResponseWriter must implement http.Flusher for streaming to work;
// if it does not, writes will still succeed but may be buffered.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{
		w:       w,
		flusher: f,
	}
}

// Init sets the SSE response headers and flushes them to the client.
// Call this exactly once before the first WriteEvent call.
func (sw *SSEWriter) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	sw.w.WriteHeader(http.StatusOK)
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// WriteEvent serializes the event as JSON and writes it in SSE format:
//
//	event: progress
//	data: {json}
//
// After writing, the underlying connection is flushed so the client receives
// the event immediately.
func (sw *SSEWriter) WriteEvent(event orchestrator.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "event: progress\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return nil
}

// Frame is one event read from a stream. Err is set when the frame's data
// was not a valid progress event.
type Frame struct {
	Event orchestrator.ProgressEvent
	Err   error
}

// ReadEvents reads SSE frames from body and delivers them on the returned
// channel. The channel is closed when the body is exhausted, an unrecoverable
// read error occurs, or ctx is cancelled. The body is closed when reading
// finishes.
//
// Lines prefixed with "data:" carry the JSON payload; several data lines in
// one frame are joined with newlines. Comment lines (":") and other fields
// are ignored. An empty line ends a frame.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan Frame {
	ch := make(chan Frame)
	done := make(chan struct{})

	// Closing the body unblocks a pending read when ctx ends.
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(ch)
		defer close(done)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		var dataBuf strings.Builder

		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}
			line := scanner.Text()

			switch {
			case line == "":
				if dataBuf.Len() > 0 {
					emit(ctx, ch, dataBuf.String())
					dataBuf.Reset()
				}

			case strings.HasPrefix(line, ":"):
				// Comment.

			case strings.HasPrefix(line, "data:"):
				payload := strings.TrimPrefix(line, "data:")
				payload = strings.TrimPrefix(payload, " ")
				if dataBuf.Len() > 0 {
					dataBuf.WriteByte('\n')
				}
				dataBuf.WriteString(payload)
			}
		}
		if dataBuf.Len() > 0 && ctx.Err() == nil {
			emit(ctx, ch, dataBuf.String())
		}
	}()
	return ch
}

// emit unmarshals raw into a progress event and sends it on ch.
// If unmarshaling fails, a Frame with Err set is sent instead.
func emit(ctx context.Context, ch chan<- Frame, raw string) {
	var f Frame
	if err := json.Unmarshal([]byte(raw), &f.Event); err != nil {
		f = Frame{Err: fmt.Errorf("sse: unmarshal event: %w", err)}
	}
	select {
	case ch <- f:
	case <-ctx.Done():
	}
}
