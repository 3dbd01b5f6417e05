package progressfeed

import (
	"net/http"
	"sync"

	"github.com/dusk-indust/nexus/internal/orchestrator"
)

// subscriberBuffer bounds how far a slow client may lag before parse events
// are dropped for it.
const subscriberBuffer = 64

// Hub fans progress events out to subscribers of a project.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan orchestrator.ProgressEvent]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan orchestrator.ProgressEvent]struct{})}
}

// Publish delivers ev to every subscriber of projectID without blocking.
// A full subscriber loses non-terminal events; a terminal event displaces
// the oldest queued event instead of being dropped.
func (h *Hub) Publish(projectID string, ev orchestrator.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[projectID] {
		select {
		case ch <- ev:
			continue
		default:
		}
		if !ev.Status.Terminal() {
			continue
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Sink adapts the hub to a ProgressSink for one project.
func (h *Hub) Sink(projectID string) orchestrator.ProgressSink {
	return func(ev orchestrator.ProgressEvent) { h.Publish(projectID, ev) }
}

// Subscribe registers a subscriber for projectID. The returned cancel
// function unregisters it and closes the channel; it is safe to call twice.
func (h *Hub) Subscribe(projectID string) (<-chan orchestrator.ProgressEvent, func()) {
	ch := make(chan orchestrator.ProgressEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[chan orchestrator.ProgressEvent]struct{})
	}
	h.subs[projectID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[projectID], ch)
			if len(h.subs[projectID]) == 0 {
				delete(h.subs, projectID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers reports how many subscribers projectID has.
func (h *Hub) Subscribers(projectID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[projectID])
}

// Handler streams a project's events as SSE until the client goes away.
// The project comes from the projectId query parameter, falling back to
// defaultProject.
func (h *Hub) Handler(defaultProject string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		projectID := r.URL.Query().Get("projectId")
		if projectID == "" {
			projectID = defaultProject
		}
		if projectID == "" {
			http.Error(w, "projectId is required", http.StatusBadRequest)
			return
		}

		events, cancel := h.Subscribe(projectID)
		defer cancel()

		sw := NewSSEWriter(w)
		sw.Init()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := sw.WriteEvent(ev); err != nil {
					return
				}
			}
		}
	})
}
