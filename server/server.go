// Package server streams simulation snapshots to websocket clients so runs
// can be watched remotely or recorded without the native viewer.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roadevo/sim"
	"roadevo/track"
)

// Envelope wraps every message on the wire with a type tag.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message types sent to clients.
const (
	EventTrack    = "track"
	EventSnapshot = "snapshot"
)

// TrackPayload describes the static track layout, sent once per connection.
type TrackPayload struct {
	Rows     int     `json:"rows"`
	Cols     int     `json:"cols"`
	CellSize float32 `json:"cell_size"`
	Tiles    [][]int `json:"tiles"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshot frames out to all connected clients. Slow clients are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	trackMsg []byte
}

// NewHub creates a hub that greets each client with the given track layout.
func NewHub(tiles *track.TileMap) *Hub {
	return &Hub{
		clients:    map[*client]bool{},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		trackMsg:   encodeTrack(tiles),
	}
}

func encodeTrack(tiles *track.TileMap) []byte {
	payload := TrackPayload{
		Rows:     tiles.Rows(),
		Cols:     tiles.Cols(),
		CellSize: tiles.CellSize(),
		Tiles:    make([][]int, tiles.Rows()),
	}
	for r := 0; r < tiles.Rows(); r++ {
		row := make([]int, tiles.Cols())
		for c := 0; c < tiles.Cols(); c++ {
			row[c] = int(tiles.KindAt(r, c))
		}
		payload.Tiles[r] = row
	}
	return envelope(EventTrack, payload)
}

func envelope(kind string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshaling payload", "type", kind, "error", err)
		return nil
	}
	b, err := json.Marshal(Envelope{Type: kind, Payload: raw})
	if err != nil {
		slog.Error("marshaling envelope", "type", kind, "error", err)
		return nil
	}
	return b
}

// Run processes register, unregister, and broadcast events until the process
// exits. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			c.send <- h.trackMsg
			slog.Info("client connected", "client", c.id)
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
				slog.Info("client disconnected", "client", c.id)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
					slog.Warn("dropping slow client", "client", c.id)
				}
			}
		}
	}
}

// Broadcast queues a snapshot for delivery to all clients. Non-blocking; the
// frame is skipped when the hub is backed up.
func (h *Hub) Broadcast(snap sim.Snapshot) {
	msg := envelope(EventSnapshot, snap)
	if msg == nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Handler returns the websocket upgrade handler for the hub.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &client{
			id:   uuid.New().String(),
			conn: conn,
			send: make(chan []byte, 128),
		}
		h.register <- c
		go c.writer()
		go c.reader(h)
	}
}

// Serve starts an HTTP server exposing the websocket endpoint at /ws. Blocks
// until the listener fails.
func (h *Hub) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", h.Handler())
	slog.Info("snapshot server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

func (c *client) writer() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// reader drains incoming messages so pings and close frames are processed.
// Clients are view-only.
func (c *client) reader(h *Hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
