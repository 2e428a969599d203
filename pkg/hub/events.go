package hub

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/ezchat/ezchat/pkg/models"
)

// handleChatMessage appends an inbound websocket message and fans it out to
// everyone in the chat room, then queues the chat-list delta.
func (h *Hub) handleChatMessage(msg WsMessage) {
	var messageReq models.MessageRequest
	if err := json.Unmarshal(msg.Payload, &messageReq); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if strings.TrimSpace(messageReq.Content) == "" {
		h.sendErrorToUser(msg.Sender, "message text must not be empty")
		return
	}

	isMember, err := h.Storage.IsChatMember(messageReq.ChatID, msg.Sender)
	if err != nil {
		log.Printf("Error checking chat membership: %v", err)
		return
	}
	if !isMember {
		h.sendErrorToUser(msg.Sender, "sender is not a participant of this chat")
		return
	}

	savedMsg, err := h.Storage.AppendMessage(messageReq.ChatID, msg.Sender, messageReq.Content)
	if err != nil {
		log.Printf("Error saving message: %v", err)
		h.sendErrorToUser(msg.Sender, "message could not be saved")
		return
	}

	response := WsMessage{
		Type:   string(EventMessage),
		RoomID: messageReq.ChatID,
		Sender: msg.Sender,
		Payload: marshalPayload(models.MessageResponse{
			Message: *savedMsg,
		}),
	}

	h.mu.Lock()
	if room, ok := h.ChatRooms[messageReq.ChatID]; ok {
		for client := range room {
			if client.UserID == msg.Sender {
				continue
			}

			// Online recipients get the message now; mark it delivered
			go h.Storage.UpdateMessageStatus(savedMsg.ID, string(models.MessageStatusDelivered))

			h.send(client, response)
		}
	}
	h.mu.Unlock()

	// Publish to Redis for other instances
	go func() {
		payload, err := json.Marshal(syncEnvelope{Kind: "message", Origin: h.instanceID, Message: &response})
		if err != nil {
			log.Printf("Error marshaling message for Redis: %v", err)
			return
		}
		h.Storage.RDB.Publish(h.Storage.Ctx, "chat_sync", payload)
	}()

	// Every participant's chat list just changed
	chat, err := h.Storage.GetChat(messageReq.ChatID)
	if err != nil || chat == nil {
		log.Printf("Error loading chat after append: chat=%s err=%v", messageReq.ChatID, err)
		return
	}
	h.NotifyChatUpdated(chat)
}

func (h *Hub) handleStatusUpdate(msg WsMessage) {
	var statusUpdate models.MessageStatusUpdate
	if err := json.Unmarshal(msg.Payload, &statusUpdate); err != nil {
		log.Printf("Error unmarshaling status update: %v", err)
		return
	}

	if err := h.Storage.UpdateMessageStatus(statusUpdate.MessageID, statusUpdate.Status); err != nil {
		log.Printf("Error updating message status: %v", err)
		return
	}

	message, err := h.Storage.GetMessage(statusUpdate.MessageID)
	if err != nil || message == nil {
		log.Printf("Error getting message: %v", err)
		return
	}

	// Notify the original sender that their message was delivered/read
	response := WsMessage{
		Type:   string(EventStatusUpdate),
		RoomID: message.ChatID,
		Sender: msg.Sender,
		Payload: marshalPayload(models.MessageStatusUpdate{
			MessageID: statusUpdate.MessageID,
			Status:    statusUpdate.Status,
			ChatID:    message.ChatID,
		}),
	}

	h.mu.Lock()
	if userClients, ok := h.Clients[message.SenderID]; ok {
		for client := range userClients {
			h.send(client, response)
		}
	}
	h.mu.Unlock()
}

// NotifyChatCreated queues a chat_added delta for every participant, local
// and on other instances.
func (h *Hub) NotifyChatCreated(chat *models.Chat) {
	h.enqueueDelta(deltaJob{
		delta:        models.ChatDelta{Type: models.ChatAdded, Chat: *chat},
		participants: chat.ParticipantIDs,
		publish:      true,
	})
}

func (h *Hub) NotifyChatUpdated(chat *models.Chat) {
	h.enqueueDelta(deltaJob{
		delta:        models.ChatDelta{Type: models.ChatModified, Chat: *chat},
		participants: chat.ParticipantIDs,
		publish:      true,
	})
}

func (h *Hub) NotifyChatRemoved(chat *models.Chat) {
	h.enqueueDelta(deltaJob{
		delta:        models.ChatDelta{Type: models.ChatRemoved, Chat: *chat},
		participants: chat.ParticipantIDs,
		publish:      true,
	})
}

// enqueueDelta never blocks. The run loop itself queues deltas while
// handling inbound messages, so a blocking send on a full buffer would
// deadlock the hub; the overflow path keeps ordering best-effort, which
// idempotent delta application tolerates.
func (h *Hub) enqueueDelta(job deltaJob) {
	select {
	case h.deltas <- job:
	default:
		go func() { h.deltas <- job }()
	}
}

// deliverChatDelta applies one delta to every subscribed participant's
// ordered list and sends them the change with the affected positions.
func (h *Hub) deliverChatDelta(job deltaJob) {
	h.mu.Lock()
	for _, userID := range job.participants {
		userClients, ok := h.Clients[userID]
		if !ok {
			continue
		}

		for client := range userClients {
			switch job.delta.Type {
			case models.ChatAdded:
				h.joinRoomLocked(client, job.delta.Chat.ID)
			case models.ChatRemoved:
				h.leaveRoomLocked(client, job.delta.Chat.ID)
			}

			change := client.ChatList.Apply(job.delta)
			h.send(client, WsMessage{
				Type:   string(EventChatDelta),
				RoomID: job.delta.Chat.ID,
				Payload: marshalPayload(ChatDeltaEvent{
					Delta: job.delta,
					From:  change.From,
					To:    change.To,
				}),
			})
		}

		h.Storage.InvalidateUserChatsCache(userID)
	}
	h.mu.Unlock()

	if job.publish {
		go h.publishDelta(job)
	}
}

func (h *Hub) sendErrorToUser(userID, reason string) {
	payload := marshalPayload(map[string]string{"error": reason})

	h.mu.Lock()
	if userClients, ok := h.Clients[userID]; ok {
		for client := range userClients {
			h.send(client, WsMessage{Type: string(EventError), Payload: payload})
		}
	}
	h.mu.Unlock()
}

func (h *Hub) joinRoomLocked(client *Client, chatID string) {
	if h.ChatRooms[chatID] == nil {
		h.ChatRooms[chatID] = make(map[*Client]bool)
	}
	h.ChatRooms[chatID][client] = true
	client.ActiveChats[chatID] = true
}

func (h *Hub) leaveRoomLocked(client *Client, chatID string) {
	if room, ok := h.ChatRooms[chatID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.ChatRooms, chatID)
		}
	}
	delete(client.ActiveChats, chatID)
}
