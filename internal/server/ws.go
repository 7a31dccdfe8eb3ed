package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kdimtricp/streamguard/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsFrame mirrors the client-side event envelope.
type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsClient struct {
	userID string
	role   string
	send   chan wsFrame
	// closed is guarded by Hub.mu; once set, send is closed and no
	// goroutine may write to it again.
	closed bool
}

// Hub routes chat and presence events between connected consoles.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*wsClient
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*wsClient)}
}

// ServeWS upgrades one console connection. Viewer identity arrives as
// userId/role query parameters.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	role := r.URL.Query().Get("role")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] ws upgrade failed: %v", err)
		return
	}

	client := &wsClient{userID: userID, role: role, send: make(chan wsFrame, 32)}
	h.register(userID, client)

	go h.writeLoop(conn, client)
	h.broadcastRoster()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var f wsFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			log.Printf("[SERVER] ws client %s sent malformed frame", userID)
			continue
		}
		h.route(client, f)
	}

	h.drop(userID, client)
	conn.Close()
	h.broadcastRoster()
}

// register installs a client, closing any prior connection for the same
// user.
func (h *Hub) register(userID string, client *wsClient) {
	h.mu.Lock()
	if prev, ok := h.clients[userID]; ok {
		prev.closed = true
		close(prev.send)
	}
	h.clients[userID] = client
	h.mu.Unlock()
}

// drop unregisters a client and closes its send channel exactly once. The
// closed flag is flipped under the mutex so deliveries racing a disconnect
// see it before they write.
func (h *Hub) drop(userID string, client *wsClient) {
	h.mu.Lock()
	if h.clients[userID] == client {
		delete(h.clients, userID)
	}
	if !client.closed {
		client.closed = true
		close(client.send)
	}
	h.mu.Unlock()
}

func (h *Hub) writeLoop(conn *websocket.Conn, client *wsClient) {
	for f := range client.send {
		if err := conn.WriteJSON(f); err != nil {
			break
		}
	}
	conn.Close()
}

func (h *Hub) route(from *wsClient, f wsFrame) {
	switch f.Event {
	case "send_message":
		var msg models.ChatMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			log.Printf("[SERVER] bad send_message from %s: %v", from.userID, err)
			return
		}
		msg.SenderID = from.userID
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now()
		}
		data, _ := json.Marshal(msg)
		echo := wsFrame{Event: "receive_message", Data: data}
		// Echo to the receiver and back to the sender: the sender's own
		// view updates only on this round trip.
		h.deliver(msg.ReceiverID, echo)
		h.deliver(from.userID, echo)

	case "typing":
		var state models.TypingState
		if err := json.Unmarshal(f.Data, &state); err != nil {
			return
		}
		state.From = from.userID
		data, _ := json.Marshal(state)
		h.deliver(state.To, wsFrame{Event: "typing", Data: data})

	case "user_activity":
		// heartbeat only

	default:
		log.Printf("[SERVER] ws client %s sent unknown event %q", from.userID, f.Event)
	}
}

func (h *Hub) deliver(userID string, f wsFrame) {
	// The send stays under the mutex: drop closes the channel under the
	// same lock, so a delivery can never race the close.
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[userID]
	if !ok || client.closed {
		return
	}
	select {
	case client.send <- f:
	default:
		log.Printf("[SERVER] dropping %s event for slow client %s", f.Event, userID)
	}
}

// NotifyForwarded pushes a notification_forwarded event to one agent.
func (h *Hub) NotifyForwarded(userID string, fwd models.ForwardedNotification) {
	data, err := json.Marshal(fwd)
	if err != nil {
		return
	}
	h.deliver(userID, wsFrame{Event: "notification_forwarded", Data: data})
}

func (h *Hub) broadcastRoster() {
	h.mu.Lock()
	defer h.mu.Unlock()

	roster := make([]models.PresenceEntry, 0, len(h.clients))
	for _, c := range h.clients {
		roster = append(roster, models.PresenceEntry{
			UserID: c.userID,
			Name:   c.userID,
			Role:   c.role,
			Online: true,
		})
	}
	data, err := json.Marshal(roster)
	if err != nil {
		return
	}

	f := wsFrame{Event: "online_users", Data: data}
	for _, c := range h.clients {
		if c.closed {
			continue
		}
		select {
		case c.send <- f:
		default:
		}
	}
}
