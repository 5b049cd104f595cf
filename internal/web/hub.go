package web

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/interfaces"
)

// Client represents a WebSocket client connection. StoryID scopes what the
// client hears: empty means every story (a parent dashboard), otherwise only
// events for that one story.
type Client struct {
	ID      string
	StoryID string
	Conn    *websocket.Conn
	Send    chan []byte
	Hub     *StoryHub
	mu      sync.Mutex
	closed  bool
}

// StoryHub manages WebSocket connections and broadcasts story events. It
// implements interfaces.EventPublisher, so the illustration and narration
// services can announce finished assets through it.
type StoryHub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *interfaces.StoryEvent
	mu         sync.RWMutex
}

// NewStoryHub creates a new event hub.
func NewStoryHub() *StoryHub {
	return &StoryHub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan *interfaces.StoryEvent, 1000),
	}
}

// Run starts the hub's event loop.
func (h *StoryHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)
		}
	}
}

// Publish queues an event for broadcast, dropping it when the hub is
// saturated rather than blocking a generation worker.
func (h *StoryHub) Publish(event *interfaces.StoryEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Warnf("[Hub] broadcast channel full, dropping %s for %s", event.Type, event.StoryID)
	}
}

// ClientCount returns the number of connected clients.
func (h *StoryHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *StoryHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	log.Infof("[Hub] client connected: %s (story %q, total %d)", client.ID, client.StoryID, len(h.clients))

	go client.writePump()
}

func (h *StoryHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
		log.Infof("[Hub] client disconnected: %s (total %d)", client.ID, len(h.clients))
	}
}

func (h *StoryHub) broadcastEvent(event *interfaces.StoryEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(map[string]interface{}{
		"type": event.Type,
		"data": event,
		"time": time.Now().Unix(),
	})
	if err != nil {
		log.Warnf("[Hub] failed to marshal event: %v", err)
		return
	}

	for _, client := range h.clients {
		if client.StoryID != "" && client.StoryID != event.StoryID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			log.Warnf("[Hub] client send buffer full: %s", client.ID)
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.mu.Lock()
			if !ok {
				c.closed = true
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				c.mu.Unlock()
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warnf("[Hub] error writing to %s: %v", c.ID, err)
				c.closed = true
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()

		case <-ticker.C:
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.closed = true
				c.mu.Unlock()
				return
			}
			c.mu.Unlock()
		}
	}
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.Conn.Close()
}

// readPump drains the WebSocket connection so pongs and closes are seen.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("[Hub] unexpected close from %s: %v", c.ID, err)
			}
			break
		}
	}
}
