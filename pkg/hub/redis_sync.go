package hub

import (
	"encoding/json"
	"log"

	"github.com/ezchat/ezchat/pkg/models"
)

// syncEnvelope is the cross-instance wire format on the chat_sync channel.
type syncEnvelope struct {
	Kind         string            `json:"kind"`
	Origin       string            `json:"origin"`
	Message      *WsMessage        `json:"message,omitempty"`
	Delta        *models.ChatDelta `json:"delta,omitempty"`
	Participants []string          `json:"participants,omitempty"`
}

// ListenToRedis forwards events published by other instances to clients
// connected to this one. Delivery is at least once; the per-client chat
// list reconciler tolerates replays.
func (h *Hub) ListenToRedis() {
	pubsub := h.Storage.RDB.Subscribe(h.Storage.Ctx, "chat_sync")
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("Listening for Redis Pub/Sub messages...")

	for msg := range ch {
		var incoming syncEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &incoming); err != nil {
			log.Printf("Error unmarshaling Redis message: %v", err)
			continue
		}

		h.dispatchSync(incoming)
	}
}

// dispatchSync routes one envelope from the shared channel. Publications
// from this instance were already delivered locally, so their echo is
// dropped here.
func (h *Hub) dispatchSync(incoming syncEnvelope) {
	if incoming.Origin == h.instanceID {
		return
	}

	switch incoming.Kind {
	case "message":
		if incoming.Message != nil {
			h.forwardChatMessage(*incoming.Message)
		}
	case "chat_delta":
		if incoming.Delta != nil {
			h.deltas <- deltaJob{
				delta:        *incoming.Delta,
				participants: incoming.Participants,
				publish:      false,
			}
		}
	default:
		log.Printf("Unknown Redis message kind: %s", incoming.Kind)
	}
}

// forwardChatMessage relays a message that was appended on another instance
// to local room members.
func (h *Hub) forwardChatMessage(msg WsMessage) {
	h.mu.Lock()
	if room, ok := h.ChatRooms[msg.RoomID]; ok {
		for client := range room {
			if client.UserID != msg.Sender {
				h.send(client, msg)
			}
		}
	}
	h.mu.Unlock()
}

func (h *Hub) publishDelta(job deltaJob) {
	payload, err := json.Marshal(syncEnvelope{
		Kind:         "chat_delta",
		Origin:       h.instanceID,
		Delta:        &job.delta,
		Participants: job.participants,
	})
	if err != nil {
		log.Printf("Error marshaling chat delta for Redis: %v", err)
		return
	}

	if err := h.Storage.RDB.Publish(h.Storage.Ctx, "chat_sync", payload).Err(); err != nil {
		log.Printf("Error publishing chat delta to Redis: %v", err)
	}
}
