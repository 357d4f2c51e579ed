package http

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

// reloadTopic carries story reload notifications.
const reloadTopic = ""

// StreamManager fans messages out to server-sent event subscribers,
// keyed by session ID.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan string]struct{}
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{subscribers: make(map[string]map[chan string]struct{})}
}

// Subscribe registers a buffered channel for topic. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(topic string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[topic]; !ok {
		sm.subscribers[topic] = make(map[chan string]struct{})
	}
	sm.subscribers[topic][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			subs := sm.subscribers[topic]
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, topic)
			}
		})
	}
}

// Broadcast delivers msg to every subscriber of topic. Slow subscribers
// with a full buffer miss the message.
func (sm *StreamManager) Broadcast(topic, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// NotifyReload tells reload subscribers that the story changed.
func (s *Server) NotifyReload(name string) {
	s.Streams.Broadcast(reloadTopic, fmt.Sprintf(`{"story":%q}`, name))
}

// SubscribeEvents handles GET /sessions/{id}/events with a stream of
// session diffs.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, chi.URLParam(r, "id"))
}

// SubscribeReloads handles GET /events.
func (s *Server) SubscribeReloads(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, reloadTopic)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
