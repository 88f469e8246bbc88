package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"holidayd/internal/banner"
	appLog "holidayd/internal/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// pageEvent is pushed to connected banner pages.
type pageEvent struct {
	Type string `json:"type"` // mount | fade | unmount
	HTML string `json:"html,omitempty"`
}

// Hub tracks the banner pages connected over websocket. It is also a
// banner.Surface: banner transitions are pushed to every page.
//
// A connected page is what makes the testBanner action deliverable.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*pageConn]struct{}
	attach  func() (detach func())
}

type pageConn struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*pageConn]struct{}),
	}
}

// OnAttach sets the callback run for each connecting page. The returned
// func runs when the page goes away.
func (h *Hub) OnAttach(f func() (detach func())) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attach = f
}

// Clients is the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Mount(n banner.Notice) error {
	var buf bytes.Buffer
	if err := banner.RenderElement(&buf, n, false); err != nil {
		return err
	}
	h.broadcast(pageEvent{Type: "mount", HTML: buf.String()})
	return nil
}

func (h *Hub) Fade() {
	h.broadcast(pageEvent{Type: "fade"})
}

func (h *Hub) Unmount() {
	h.broadcast(pageEvent{Type: "unmount"})
}

func (h *Hub) broadcast(ev pageEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		appLog.Error("hub: marshal event failed", err, "type", ev.Type)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			appLog.Warn("hub: page too slow; dropping event", "type", ev.Type)
		}
	}
}

// ServeWS upgrades the request and keeps the page attached until the
// connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("hub: websocket upgrade failed", err, "remote", r.RemoteAddr)
		return
	}

	c := &pageConn{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	attach := h.attach
	h.mu.Unlock()

	detach := func() {}
	if attach != nil {
		detach = attach()
	}
	appLog.Info("banner page connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go h.writePump(c, done)
	h.readPump(c)

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(done)
	detach()
	_ = conn.Close()
	appLog.Info("banner page disconnected", "remote", r.RemoteAddr)
}

// readPump discards client frames; it exists to notice the close and to
// process pongs.
func (h *Hub) readPump(c *pageConn) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *pageConn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.conn.Close()
				return
			}
		}
	}
}
