package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"encrypted-quest-backend/internal/middleware"
	"encrypted-quest-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	MessagePing         = "PING"
	MessagePong         = "PONG"
	MessageWelcome      = "WELCOME"
	MessagePlayerJoined = "PLAYER_JOINED"
	MessageReceipt      = "TX_RECEIPT"
)

type WebSocketHandler struct {
	hub *WebSocketHub
	log *logrus.Logger
}

// WebSocketHub fans ledger notifications out to connected players. Receipts
// go to the sender only; joins are announced to everyone.
type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	log        *logrus.Logger
}

type Client struct {
	Address models.Address
	Conn    *websocket.Conn
	send    chan *Message
}

type Message struct {
	Type    string          `json:"type"`
	Address *models.Address `json:"address,omitempty"`
	Data    interface{}     `json:"data"`
}

func NewWebSocketHandler(log *logrus.Logger) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		log:        log,
	}

	go hub.run()

	return &WebSocketHandler{hub: hub, log: log}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	player, ok := middleware.Address(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": models.CodeUnauthorized})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade to websocket")
		return
	}

	client := &Client{
		Address: player,
		Conn:    conn,
		send:    make(chan *Message, 16),
	}

	h.hub.register <- client
	go client.writePump(h.log)

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	client.send <- &Message{
		Type: MessageWelcome,
		Data: gin.H{"address": player, "timestamp": time.Now().Unix()},
	}

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("websocket error")
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessagePing:
		select {
		case client.send <- &Message{Type: MessagePong, Data: gin.H{"timestamp": time.Now().Unix()}}:
		default:
		}
	}
}

func (c *Client) writePump(log *logrus.Logger) {
	for msg := range c.send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			log.WithError(err).WithField("address", c.Address.Hex()).Debug("websocket write failed")
			return
		}
	}
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true
			hub.log.WithField("address", client.Address.Hex()).Debug("client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				close(client.send)
				hub.log.WithField("address", client.Address.Hex()).Debug("client unregistered")
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)
		}
	}
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	for client := range hub.clients {
		if message.Address != nil && *message.Address != client.Address {
			continue
		}
		select {
		case client.send <- message:
		default:
			hub.log.WithField("address", client.Address.Hex()).Warn("dropping message for slow client")
		}
	}
}

// BroadcastPlayerJoined announces a new player to every connection.
func (h *WebSocketHandler) BroadcastPlayerJoined(player models.Address, receipt *models.Receipt) {
	h.hub.broadcast <- &Message{
		Type: MessagePlayerJoined,
		Data: gin.H{
			"player":    player,
			"tx_hash":   receipt.TxHash,
			"block":     receipt.Block,
			"timestamp": receipt.CreatedAt.Unix(),
		},
	}
}

// BroadcastReceipt delivers a committed receipt to its sender.
func (h *WebSocketHandler) BroadcastReceipt(receipt *models.Receipt) {
	from := receipt.From
	h.hub.broadcast <- &Message{
		Type:    MessageReceipt,
		Address: &from,
		Data:    receipt,
	}
}
