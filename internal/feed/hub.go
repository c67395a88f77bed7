package feed

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event is one realtime message pushed to a connected app.
type Event struct {
	Type    string    `json:"type"`
	AlarmID string    `json:"alarmId,omitempty"`
	Day     string    `json:"day,omitempty"`
	Title   string    `json:"title,omitempty"`
	Body    string    `json:"body,omitempty"`
	FiredAt time.Time `json:"firedAt,omitempty"`
}

type registerMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type client struct {
	conn   *websocket.Conn
	userID string
	sendCh chan Event
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.sendCh)
		c.conn.Close()
	})
}

// Hub fans fired-reminder events out to the owner's connected devices. A
// client must register with a valid ID token before it receives anything.
type Hub struct {
	upgrader websocket.Upgrader
	verify   func(ctx context.Context, token string) (string, error)
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

func NewHub(verify func(ctx context.Context, token string) (string, error)) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		verify:  verify,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ Feed upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, sendCh: make(chan Event, 16)}

	// The first frame must be a register message carrying the ID token.
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var reg registerMessage
	if err := conn.ReadJSON(&reg); err != nil || reg.Type != "register" {
		conn.WriteJSON(map[string]string{"type": "error", "message": "register first"})
		conn.Close()
		return
	}
	userID, err := h.verify(r.Context(), reg.Token)
	if err != nil {
		conn.WriteJSON(map[string]string{"type": "error", "message": "invalid token"})
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})
	c.userID = userID

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	conn.WriteJSON(map[string]string{"type": "registered"})
	log.Printf("🔔 Feed client connected: %s", userID)

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		// Inbound frames beyond registration are ignored; the read keeps
		// the connection's close state visible.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	for ev := range c.sendCh {
		if err := c.conn.WriteJSON(ev); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if present {
		log.Printf("🔌 Feed client disconnected: %s", c.userID)
	}
	c.close()
}

// Broadcast delivers an event to every connection registered for userID.
// Slow clients are skipped rather than blocking the dispatcher.
func (h *Hub) Broadcast(userID string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.userID != userID {
			continue
		}
		select {
		case c.sendCh <- ev:
		default:
		}
	}
}

func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
