package server

import (
	"net/http"
	"strings"
	"sync"

	"restaurant-chatbot/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Device ids stand in for auth, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// event is the JSON envelope used in both directions on the chat channel.
type event struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

const (
	eventUserMessage     = "user_message"
	eventPaymentSuccess  = "payment_success"
	eventBotMessage      = "bot_message"
	eventPaymentRedirect = "payment_redirect"
	eventSetDeviceID     = "set_device_id"
)

// wsClient serializes writes; reads happen on the single handler goroutine.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(ev, data string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(event{Event: ev, Data: data})
}

// handleWebsocket runs the realtime chat channel. The handshake carries an
// optional device id; when absent the server assigns one and tells the client.
func (h *handlers) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	client := &wsClient{conn: conn}

	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		deviceID = uuid.NewString()
		if err := client.send(eventSetDeviceID, deviceID); err != nil {
			return
		}
	}
	h.logger.Info("client connected", zap.String("device_id", deviceID))

	if err := client.send(eventBotMessage, services.WelcomeMessage); err != nil {
		return
	}

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.String("device_id", deviceID), zap.Error(err))
			}
			h.logger.Info("client disconnected", zap.String("device_id", deviceID))
			return
		}

		switch ev.Event {
		case eventUserMessage:
			h.handleUserMessage(r, client, deviceID, ev.Data)
		case eventPaymentSuccess:
			reply := h.chat.ProcessPayment(r.Context(), deviceID, ev.Data)
			if err := client.send(eventBotMessage, reply); err != nil {
				return
			}
		}
	}
}

// handleUserMessage mirrors the top-level command handling of the HTTP chat
// path, except that a successful "pay" becomes a payment_redirect event
// instead of plain text.
func (h *handlers) handleUserMessage(r *http.Request, client *wsClient, deviceID, text string) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "pay":
		init := h.chat.InitializePayment(r.Context(), deviceID)
		if init.Success {
			_ = client.send(eventPaymentRedirect, init.AuthorizationURL)
		} else {
			_ = client.send(eventBotMessage, init.Message)
		}
	case "cancel":
		_ = client.send(eventBotMessage, services.WelcomeMessage)
	default:
		reply := h.chat.ProcessMessage(r.Context(), deviceID, text)
		_ = client.send(eventBotMessage, reply)
	}
}
