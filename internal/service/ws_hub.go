package service

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"tradepilot/backend/internal/model"
	"tradepilot/backend/pkg/logger"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 64
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin is enforced by the CORS middleware in front of the upgrade
		return true
	},
}

// WSClient is one connected dashboard websocket
type WSClient struct {
	hub    *WSHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

type wsEnvelope struct {
	userID string // empty means broadcast to everyone
	data   []byte
}

// WSHub fans orchestrator events out to connected dashboard clients, scoped
// per user. All client set mutation happens on the Run goroutine.
type WSHub struct {
	byUser map[string]map[*WSClient]bool

	register   chan *WSClient
	unregister chan *WSClient
	outbound   chan wsEnvelope

	log *logger.Logger
}

func NewWSHub() *WSHub {
	return &WSHub{
		byUser:     make(map[string]map[*WSClient]bool),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
		outbound:   make(chan wsEnvelope, 256),
		log:        logger.GetLogger(),
	}
}

// Run processes registrations and outbound messages until the process exits
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			clients, ok := h.byUser[client.userID]
			if !ok {
				clients = make(map[*WSClient]bool)
				h.byUser[client.userID] = clients
			}
			clients[client] = true
			h.log.Debugf("WebSocket client connected for user %s (%d total)", client.userID, len(clients))

		case client := <-h.unregister:
			if clients, ok := h.byUser[client.userID]; ok {
				if clients[client] {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.byUser, client.userID)
					}
				}
			}

		case env := <-h.outbound:
			if env.userID != "" {
				h.deliver(h.byUser[env.userID], env.data)
				continue
			}
			for _, clients := range h.byUser {
				h.deliver(clients, env.data)
			}
		}
	}
}

// deliver drops messages for clients whose send buffer is full rather than
// blocking the hub
func (h *WSHub) deliver(clients map[*WSClient]bool, data []byte) {
	for client := range clients {
		select {
		case client.send <- data:
		default:
			delete(clients, client)
			close(client.send)
		}
	}
}

// SendToUser pushes a message to all of one user's connections
func (h *WSHub) SendToUser(userID string, msg model.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal websocket message", err)
		return
	}
	h.enqueue(wsEnvelope{userID: userID, data: data})
}

// Broadcast pushes a message to every connected client
func (h *WSHub) Broadcast(msg model.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal websocket message", err)
		return
	}
	h.enqueue(wsEnvelope{data: data})
}

func (h *WSHub) enqueue(env wsEnvelope) {
	select {
	case h.outbound <- env:
	default:
		h.log.Warn("WebSocket outbound queue full, dropping message")
	}
}

// ServeWS upgrades the request and attaches the connection to the hub. The
// caller has already authenticated the user.
func (h *WSHub) ServeWS(c *gin.Context, userID string) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", err)
		return
	}

	client := &WSClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, wsSendBuffer),
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames; the dashboard socket is push-only. It
// exists to process control frames and detect disconnects.
func (c *WSClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
