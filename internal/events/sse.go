package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// SSEHub is both a Sink and an http.Handler: it broadcasts every event to
// all connected Server-Sent-Events clients. Slow clients lose events rather
// than backpressure the tick loop.
type SSEHub struct {
	mu      sync.RWMutex
	clients map[string]chan Event
	nextID  atomic.Int64
}

func NewSSEHub() *SSEHub {
	return &SSEHub{clients: make(map[string]chan Event)}
}

func (h *SSEHub) Emit(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *SSEHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	return nil
}

func (h *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientID := fmt.Sprintf("client-%d", time.Now().UnixNano())
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.clients[clientID] = ch
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if _, live := h.clients[clientID]; live {
			delete(h.clients, clientID)
			close(ch)
		}
		h.mu.Unlock()
	}()

	heartbeat := time.NewTicker(10 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", h.nextID.Add(1), ev.Kind, data)
			flusher.Flush()
		}
	}
}
