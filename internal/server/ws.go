package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/howlong/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// DefaultStateInterval paces state broadcasts at about 15 per second.
const DefaultStateInterval = 66 * time.Millisecond

// StateHub broadcasts the latest session snapshot to WebSocket clients.
// Publish is cheap; encoding and writes happen on the hub's own goroutine.
type StateHub struct {
	interval time.Duration
	clients  map[*websocket.Conn]uint64 // last sequence sent
	latest   session.FrameOutput
	seq      uint64
	mu       sync.Mutex
	done     chan struct{}
	once     sync.Once
}

// NewStateHub creates a StateHub and starts its broadcast loop.
func NewStateHub(interval time.Duration) *StateHub {
	if interval <= 0 {
		interval = DefaultStateInterval
	}
	h := &StateHub{
		interval: interval,
		clients:  make(map[*websocket.Conn]uint64),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// Publish replaces the snapshot sent to clients.
func (h *StateHub) Publish(out session.FrameOutput) {
	h.mu.Lock()
	h.latest = out
	h.seq++
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *StateHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close stops the broadcast loop and disconnects every client.
func (h *StateHub) Close() {
	h.once.Do(func() {
		close(h.done)
		h.mu.Lock()
		for conn := range h.clients {
			conn.Close()
			delete(h.clients, conn)
		}
		h.mu.Unlock()
	})
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *StateHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = 0
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends the latest snapshot to every client that has not seen it.
// Only the pending set is taken under the lock; encoding and writes happen
// outside it so a stalled client never blocks Publish.
func (h *StateHub) broadcast() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}

		out, seq, pending := h.pending()
		if len(pending) == 0 {
			continue
		}

		msg, err := json.Marshal(out)
		if err != nil {
			log.Printf("state encode error: %v", err)
			continue
		}

		for _, conn := range pending {
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			err := conn.WriteMessage(websocket.TextMessage, msg)

			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				if err != nil {
					delete(h.clients, conn)
				} else {
					h.clients[conn] = seq
				}
			}
			h.mu.Unlock()
			if err != nil {
				conn.Close()
			}
		}
	}
}

// pending returns the latest snapshot and the clients still behind it.
func (h *StateHub) pending() (session.FrameOutput, uint64, []*websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.seq == 0 {
		return session.FrameOutput{}, 0, nil
	}
	var conns []*websocket.Conn
	for conn, sent := range h.clients {
		if sent != h.seq {
			conns = append(conns, conn)
		}
	}
	return h.latest, h.seq, conns
}
