package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/alanyang/prompt-vault/internal/domain/event"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client serialises writes; gorilla allows one concurrent writer per conn.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex

	channels []event.Channel // empty means every channel
	entityID string          // empty means every entity
}

func (cl *client) wants(e event.Event) bool {
	if len(cl.channels) > 0 && !slices.Contains(cl.channels, event.ChannelFor(e.Type)) {
		return false
	}
	return cl.entityID == "" || cl.entityID == e.EntityID
}

func (cl *client) write(messageType int, data []byte) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
	return cl.conn.WriteMessage(messageType, data)
}

// Hub fans domain events out to connected browsers. A client narrows what it
// receives with ?channel=<name> (repeatable) and ?entity=<entity id>.
type Hub struct {
	clients map[*client]bool
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
	}
}

func (h *Hub) Register(rg *gin.RouterGroup) {
	rg.GET("", h.handleWS)
}

// Clients returns the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) handleWS(c *gin.Context) {
	var channels []event.Channel
	for _, name := range c.QueryArray("channel") {
		ch := event.Channel(name)
		if !slices.Contains(event.Channels, ch) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel " + name})
			return
		}
		channels = append(channels, ch)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	cl := &client{conn: conn, channels: channels, entityID: c.Query("entity")}
	h.mu.Lock()
	h.clients[cl] = true
	h.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		conn.Close()
	}()

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := cl.write(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Hub) Broadcast(e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Error("websocket broadcast marshal failed", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients {
		if !cl.wants(e) {
			continue
		}
		if err := cl.write(websocket.TextMessage, data); err != nil {
			slog.Error("websocket write failed", "error", err)
		}
	}
}
