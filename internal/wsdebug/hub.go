// Package wsdebug broadcasts the emulated framebuffer to connected
// websocket spectators. It is a debug/spectator feature, independent of
// the emulation core: the core never imports this package.
package wsdebug

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024 * 64,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans frame updates out to every connected spectator client.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte

	broadcast chan []byte
}

// NewHub creates an idle hub. Call Serve to start accepting connections
// and Broadcast to push frames.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]chan []byte),
		broadcast: make(chan []byte, 4),
	}
}

// Serve registers the hub's websocket endpoint on mux at path and starts
// the broadcast loop in a goroutine. It does not block.
func (h *Hub) Serve(mux *http.ServeMux, path string) {
	mux.HandleFunc(path, h.handleConn)
	go h.run()
}

func (h *Hub) run() {
	for frame := range h.broadcast {
		h.mu.Lock()
		for conn, send := range h.clients {
			select {
			case send <- frame:
			default:
				// client too slow, drop it rather than block the emulator
				delete(h.clients, conn)
				close(send)
				conn.Close()
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	send := make(chan []byte, 2)
	h.mu.Lock()
	h.clients[conn] = send
	h.mu.Unlock()

	go func() {
		for frame := range send {
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				h.mu.Lock()
				delete(h.clients, conn)
				h.mu.Unlock()
				conn.Close()
				return
			}
		}
	}()

	// Spectators are read-only; drain and discard any inbound message so
	// the connection's read deadline doesn't trip.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.mu.Lock()
			if send, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(send)
			}
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
}

// Broadcast queues frame (an RGBA framebuffer) for delivery to every
// connected client. It never blocks the caller: a full queue drops the
// frame rather than stall emulation.
func (h *Hub) Broadcast(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case h.broadcast <- cp:
	default:
	}
}

// ListenAndServe starts an HTTP server exposing the hub at /ws on addr.
// It runs until the server errors, logging the error, so callers
// typically invoke it in a goroutine.
func (h *Hub) ListenAndServe(addr string) {
	mux := http.NewServeMux()
	h.Serve(mux, "/ws")
	log.Printf("wsdebug: spectator server listening on %s/ws", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("wsdebug: server stopped: %v", err)
	}
}
