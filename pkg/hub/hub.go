package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ezchat/ezchat/pkg/models"
	"github.com/ezchat/ezchat/pkg/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024 // 1MB
)

type Hub struct {
	Storage *store.Store

	// instanceID stamps this instance's pub/sub publications so its own
	// echo from the shared channel can be dropped.
	instanceID string

	// Registered clients by userID (multiple devices per user)
	Clients map[string]map[*Client]bool

	// Chat rooms for broadcasting
	ChatRooms map[string]map[*Client]bool

	// Broadcast channel for all inbound events
	Broadcast chan WsMessage

	// Channels for client management
	Register   chan *Client
	Unregister chan *Client

	// Chat-list deltas queued for fan-out; all delivery happens on the run
	// loop so per-client ChatLists see a single writer.
	deltas chan deltaJob

	mu sync.RWMutex
}

type deltaJob struct {
	delta        models.ChatDelta
	participants []string

	// publish forwards the job to other instances; false for jobs that
	// arrived from Redis in the first place.
	publish bool
}

type WsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	RoomID  string          `json:"room_id,omitempty"`
	Sender  string          `json:"sender,omitempty"`
}

type EventType string

const (
	EventMessage      EventType = "message"
	EventStatusUpdate EventType = "status_update"
	EventChatDelta    EventType = "chat_delta"
	EventChatSnapshot EventType = "chat_snapshot"
	EventError        EventType = "error"
)

// ChatDeltaEvent is what subscribers receive for each live chat-list change:
// the delta itself plus the positions it touched in their ordering, so only
// the affected rows need redrawing.
type ChatDeltaEvent struct {
	Delta models.ChatDelta `json:"delta"`
	From  int              `json:"from"`
	To    int              `json:"to"`
}

// ChatSnapshotEvent is sent once on subscribe. An empty Chats slice is an
// explicit "no chats" state, never omitted.
type ChatSnapshotEvent struct {
	Chats []models.Chat `json:"chats"`
}

func NewHub(s *store.Store) *Hub {
	return &Hub{
		Storage:    s,
		instanceID: uuid.New().String(),
		Clients:    make(map[string]map[*Client]bool),
		ChatRooms:  make(map[string]map[*Client]bool),
		Broadcast:  make(chan WsMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		deltas:     make(chan deltaJob, 64),
	}
}

func (h *Hub) Run() {
	log.Println("WebSocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.handleRegister(client)

		case client := <-h.Unregister:
			h.handleUnregister(client)

		case message := <-h.Broadcast:
			h.handleBroadcast(message)

		case job := <-h.deltas:
			h.deliverChatDelta(job)
		}
	}
}

// handleRegister starts the client's live chat-list subscription: join all
// chat rooms, seed the ordered list and push the snapshot.
func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.Clients[client.UserID] == nil {
		h.Clients[client.UserID] = make(map[*Client]bool)
	}
	h.Clients[client.UserID][client] = true

	chats, err := h.Storage.GetUserChats(client.UserID)
	if err != nil {
		log.Printf("Error loading chats for subscription: user=%s err=%v", client.UserID, err)
		chats = nil
	}

	for _, chat := range chats {
		if h.ChatRooms[chat.ID] == nil {
			h.ChatRooms[chat.ID] = make(map[*Client]bool)
		}
		h.ChatRooms[chat.ID][client] = true
		client.ActiveChats[chat.ID] = true
	}

	client.ChatList.Reset(chats)
	h.send(client, WsMessage{
		Type:    string(EventChatSnapshot),
		Payload: marshalPayload(ChatSnapshotEvent{Chats: client.ChatList.Chats()}),
	})

	h.Storage.UpdateUserLastSeen(client.UserID, time.Now())
	log.Printf("Client registered: user=%s, session=%s", client.UserID, client.SessionID)
}

// handleUnregister is the subscription teardown: once the screen goes away
// no further deltas are delivered to its binding.
func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.Clients[client.UserID]; ok {
		if _, ok := userClients[client]; !ok {
			return
		}
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.Clients, client.UserID)
		}
	} else {
		return
	}

	for chatID := range client.ActiveChats {
		if room, ok := h.ChatRooms[chatID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.ChatRooms, chatID)
			}
		}
	}

	close(client.Send)
	log.Printf("Client unregistered: user=%s, session=%s", client.UserID, client.SessionID)
}

func (h *Hub) handleBroadcast(message WsMessage) {
	switch EventType(message.Type) {
	case EventMessage:
		h.handleChatMessage(message)
	case EventStatusUpdate:
		h.handleStatusUpdate(message)
	default:
		log.Printf("Unknown message type: %s", message.Type)
	}
}

// send delivers to one client if its buffer still has room; a full buffer
// means the binding is gone or stuck, so the client is dropped instead of
// blocking the hub.
func (h *Hub) send(client *Client, msg WsMessage) {
	select {
	case client.Send <- marshalMessage(msg):
	default:
		h.dropClient(client)
	}
}

// dropClient must run under h.mu (write lock).
func (h *Hub) dropClient(client *Client) {
	if userClients, ok := h.Clients[client.UserID]; ok {
		if _, ok := userClients[client]; !ok {
			return
		}
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.Clients, client.UserID)
		}
	} else {
		return
	}

	for chatID := range client.ActiveChats {
		if room, ok := h.ChatRooms[chatID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(h.ChatRooms, chatID)
			}
		}
	}

	close(client.Send)
	log.Printf("Client dropped (send buffer full): user=%s, session=%s", client.UserID, client.SessionID)
}

// Helper functions
func marshalMessage(msg WsMessage) []byte {
	data, _ := json.Marshal(msg)
	return data
}

func marshalPayload(payload interface{}) json.RawMessage {
	data, _ := json.Marshal(payload)
	return data
}
