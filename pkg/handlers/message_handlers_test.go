package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/ezchat/ezchat/pkg/models"
)

func seedChat(t *testing.T, store *fakeChatStore, createdBy, firstMessage string, others ...string) *models.Chat {
	t.Helper()
	chat, _, err := store.CreateChat(&models.ChatRequest{ParticipantIDs: others}, createdBy, firstMessage)
	if err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return chat
}

func TestSendMessageUpdatesLastMessageSnapshot(t *testing.T) {
	store := newFakeChatStore("u1", "u2")
	notifier := &fakeNotifier{}
	h := NewMessageHandler(store, notifier, testLogger())

	chat := seedChat(t, store, "u1", "hi", "u2")
	prevAt := *store.chats[chat.ID].LastMessageAt

	w := authedDo(t, h.SendMessage, "u1", http.MethodPost, "/api/messages",
		`{"chat_id":"`+chat.ID+`","content":"second"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var message models.Message
	if err := json.NewDecoder(w.Body).Decode(&message); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if message.SentAt.Before(prevAt) {
		t.Fatalf("new message timestamp %v precedes previous newest %v", message.SentAt, prevAt)
	}

	// The snapshot must equal the newest message exactly
	updated := store.chats[chat.ID]
	if updated.LastMessage == nil || *updated.LastMessage != "second" {
		t.Fatalf("expected snapshot text %q, got %v", "second", updated.LastMessage)
	}
	if updated.LastMessageSenderID == nil || *updated.LastMessageSenderID != "u1" {
		t.Fatalf("expected snapshot sender u1, got %v", updated.LastMessageSenderID)
	}
	if updated.LastMessageAt == nil || !updated.LastMessageAt.Equal(message.SentAt) {
		t.Fatalf("expected snapshot time %v, got %v", message.SentAt, updated.LastMessageAt)
	}
	if notifier.updated != 1 {
		t.Fatalf("expected 1 updated notification, got %d", notifier.updated)
	}
}

func TestSendMessageRejectsNonMember(t *testing.T) {
	store := newFakeChatStore("u1", "u2", "outsider")
	h := NewMessageHandler(store, &fakeNotifier{}, testLogger())

	chat := seedChat(t, store, "u1", "hi", "u2")

	w := authedDo(t, h.SendMessage, "outsider", http.MethodPost, "/api/messages",
		`{"chat_id":"`+chat.ID+`","content":"let me in"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", w.Code)
	}
	if got := len(store.messages[chat.ID]); got != 1 {
		t.Fatalf("expected no message appended, got %d", got)
	}
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	store := newFakeChatStore("u1", "u2")
	h := NewMessageHandler(store, &fakeNotifier{}, testLogger())

	chat := seedChat(t, store, "u1", "hi", "u2")

	w := authedDo(t, h.SendMessage, "u1", http.MethodPost, "/api/messages",
		`{"chat_id":"`+chat.ID+`","content":"   "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank content, got %d", w.Code)
	}
	if got := len(store.messages[chat.ID]); got != 1 {
		t.Fatalf("expected no message appended, got %d", got)
	}
}
