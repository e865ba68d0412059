package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans invitation lifecycle events out to connected recruiter
// dashboards. Connections subscribe to their organization's channel
// only; cross-org delivery is impossible by construction.
type Hub struct {
	mu      sync.RWMutex
	subs    map[string]map[*Conn]bool // orgID -> connections
	publish chan Event
	log     *zap.Logger
}

// Conn represents one recruiter dashboard connection.
type Conn struct {
	ws    *websocket.Conn
	send  chan []byte
	hub   *Hub
	orgID string
}

// Event is a message bound for every connection of one organization.
type Event struct {
	OrgID   string
	Message map[string]interface{}
}

// NewHub creates a new WebSocket hub
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs:    make(map[string]map[*Conn]bool),
		publish: make(chan Event, 256),
		log:     log,
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for event := range h.publish {
		h.mu.RLock()
		conns := h.subs[event.OrgID]
		h.mu.RUnlock()

		if conns != nil {
			msg, _ := json.Marshal(event.Message)
			for conn := range conns {
				select {
				case conn.send <- msg:
				default:
					h.unregister(conn)
				}
			}
		}
	}
}

// Publish queues an event for all of an organization's connections.
// Drops the event if the hub is saturated; the feed is advisory and
// the database remains the source of truth.
func (h *Hub) Publish(orgID string, message map[string]interface{}) {
	select {
	case h.publish <- Event{OrgID: orgID, Message: message}:
	default:
		h.log.Warn("WebSocket hub saturated, dropping event", zap.String("org_id", orgID))
	}
}

// Register attaches an upgraded connection to its org channel and
// starts its pumps.
func (h *Hub) Register(wsConn *websocket.Conn, orgID string) *Conn {
	conn := &Conn{
		ws:    wsConn,
		send:  make(chan []byte, 64),
		hub:   h,
		orgID: orgID,
	}

	h.mu.Lock()
	if h.subs[orgID] == nil {
		h.subs[orgID] = make(map[*Conn]bool)
	}
	h.subs[orgID][conn] = true
	h.mu.Unlock()

	go conn.writePump()
	go conn.readPump()
	return conn
}

func (h *Hub) unregister(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.subs[conn.orgID]; subs != nil {
		if _, ok := subs[conn]; ok {
			delete(subs, conn)
			close(conn.send)
			if len(subs) == 0 {
				delete(h.subs, conn.orgID)
			}
		}
	}
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// readPump discards inbound frames; the feed is one-way. It exists to
// process control messages and detect closed connections.
func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.ws.Close()
	}()
	c.ws.SetReadLimit(512)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
