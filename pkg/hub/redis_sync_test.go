package hub

import (
	"testing"
	"time"

	"github.com/ezchat/ezchat/pkg/models"
)

func TestDispatchSyncDropsOwnEcho(t *testing.T) {
	h := &Hub{
		instanceID: "instance-a",
		deltas:     make(chan deltaJob, 1),
	}

	delta := models.ChatDelta{Type: models.ChatModified, Chat: models.Chat{ID: "chat-1"}}
	h.dispatchSync(syncEnvelope{
		Kind:         "chat_delta",
		Origin:       "instance-a",
		Delta:        &delta,
		Participants: []string{"u1"},
	})

	select {
	case job := <-h.deltas:
		t.Fatalf("expected own publication to be dropped, got delta for chat %q", job.delta.Chat.ID)
	default:
	}
}

func TestDispatchSyncQueuesForeignDelta(t *testing.T) {
	h := &Hub{
		instanceID: "instance-a",
		deltas:     make(chan deltaJob, 1),
	}

	delta := models.ChatDelta{Type: models.ChatAdded, Chat: models.Chat{ID: "chat-1"}}
	h.dispatchSync(syncEnvelope{
		Kind:         "chat_delta",
		Origin:       "instance-b",
		Delta:        &delta,
		Participants: []string{"u1", "u2"},
	})

	select {
	case job := <-h.deltas:
		if job.delta.Chat.ID != "chat-1" {
			t.Fatalf("expected delta for chat-1, got %q", job.delta.Chat.ID)
		}
		if job.publish {
			t.Fatalf("a delta received from the channel must not be republished")
		}
		if len(job.participants) != 2 {
			t.Fatalf("expected 2 participants, got %d", len(job.participants))
		}
	case <-time.After(time.Second):
		t.Fatalf("expected foreign delta to be queued")
	}
}
