package audit

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Hub is an io.Writer that broadcasts audit lines to websocket subscribers,
// letting an external harness tail a live run. Subscribers that fail a write
// are dropped; a slow consumer never blocks the mixing run beyond one write.
type Hub struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*websocket.Conn]struct{})}
}

// Subscribe registers a websocket connection to receive audit lines.
func (h *Hub) Subscribe(conn *websocket.Conn) {
	h.mu.Lock()
	h.subs[conn] = struct{}{}
	h.mu.Unlock()
}

// Unsubscribe removes a connection. The caller closes the connection.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.subs, conn)
	h.mu.Unlock()
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Write broadcasts one log event to every subscriber. Always reports
// success to the logger: a broken subscriber must not fail the run.
func (h *Hub) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subs {
		if err := conn.WriteMessage(websocket.TextMessage, p); err != nil {
			conn.Close()
			delete(h.subs, conn)
		}
	}
	return len(p), nil
}

// Close drops and closes all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subs {
		conn.Close()
		delete(h.subs, conn)
	}
}
