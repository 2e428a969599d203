package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/models"
)

type fakeChatStore struct {
	users    map[string]models.User
	chats    map[string]*models.Chat
	members  map[string][]string
	messages map[string][]models.Message
	nextID   int
}

func newFakeChatStore(userIDs ...string) *fakeChatStore {
	s := &fakeChatStore{
		users:    make(map[string]models.User),
		chats:    make(map[string]*models.Chat),
		members:  make(map[string][]string),
		messages: make(map[string][]models.Message),
	}
	for _, id := range userIDs {
		s.users[id] = models.User{ID: id, Phone: "+1415555" + id, Username: "user " + id}
	}
	return s
}

func (s *fakeChatStore) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *fakeChatStore) GetUserChats(userID string) ([]models.Chat, error) {
	var chats []models.Chat
	for chatID, members := range s.members {
		for _, m := range members {
			if m == userID {
				chats = append(chats, *s.chats[chatID])
				break
			}
		}
	}
	return chats, nil
}

func (s *fakeChatStore) GetUsersByIDs(userIDs []string) ([]models.User, error) {
	var users []models.User
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *fakeChatStore) GetDirectChat(user1ID, user2ID string) (*models.Chat, error) {
	for chatID, members := range s.members {
		if len(members) != 2 {
			continue
		}
		has := map[string]bool{members[0]: true, members[1]: true}
		if has[user1ID] && has[user2ID] {
			return s.chats[chatID], nil
		}
	}
	return nil, nil
}

func (s *fakeChatStore) CreateChat(chatReq *models.ChatRequest, createdBy, firstMessage string) (*models.Chat, *models.Message, error) {
	now := time.Now()
	chat := &models.Chat{
		ID:        s.newID("chat"),
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	participants := []string{createdBy}
	for _, id := range chatReq.ParticipantIDs {
		if id != createdBy {
			participants = append(participants, id)
		}
	}
	chat.ParticipantIDs = participants

	s.chats[chat.ID] = chat
	s.members[chat.ID] = participants

	var message *models.Message
	if firstMessage != "" {
		var err error
		message, err = s.AppendMessage(chat.ID, createdBy, firstMessage)
		if err != nil {
			return nil, nil, err
		}
	}

	return chat, message, nil
}

func (s *fakeChatStore) GetChat(chatID string) (*models.Chat, error) {
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, nil
	}
	chat.ParticipantIDs = s.members[chatID]
	return chat, nil
}

func (s *fakeChatStore) DeleteChat(chatID string) error {
	delete(s.chats, chatID)
	delete(s.members, chatID)
	delete(s.messages, chatID)
	return nil
}

func (s *fakeChatStore) GetChatMembers(chatID string) ([]models.ChatMember, error) {
	var members []models.ChatMember
	for _, userID := range s.members[chatID] {
		members = append(members, models.ChatMember{ChatID: chatID, UserID: userID})
	}
	return members, nil
}

func (s *fakeChatStore) IsChatMember(chatID, userID string) (bool, error) {
	for _, m := range s.members[chatID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeChatStore) UpdateMemberLastRead(chatID, userID string) error { return nil }

func (s *fakeChatStore) InvalidateUserChatsCache(userID string) error { return nil }

// AppendMessage mirrors the real store: the message and the chat's
// last-message snapshot change together.
func (s *fakeChatStore) AppendMessage(chatID, senderID, content string) (*models.Message, error) {
	chat, ok := s.chats[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", chatID, models.ErrNotFound)
	}

	message := models.Message{
		ID:       s.newID("msg"),
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		Status:   string(models.MessageStatusSent),
		SentAt:   time.Now(),
	}
	s.messages[chatID] = append(s.messages[chatID], message)

	chat.LastMessage = &message.Content
	chat.LastMessageSenderID = &message.SenderID
	chat.LastMessageAt = &message.SentAt

	return &message, nil
}

func (s *fakeChatStore) GetMessage(messageID string) (*models.Message, error) {
	for _, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				return &msgs[i], nil
			}
		}
	}
	return nil, nil
}

func (s *fakeChatStore) GetMessages(chatID string, offset, limit int) ([]models.Message, error) {
	msgs := s.messages[chatID]
	if offset >= len(msgs) {
		return []models.Message{}, nil
	}
	end := offset + limit
	if end > len(msgs) {
		end = len(msgs)
	}
	return msgs[offset:end], nil
}

func (s *fakeChatStore) UpdateMessageStatus(messageID, status string) error {
	for _, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == messageID {
				if models.MessageStatus(msgs[i].Status).CanTransition(models.MessageStatus(status)) {
					msgs[i].Status = status
				}
				return nil
			}
		}
	}
	return fmt.Errorf("message %s: %w", messageID, models.ErrNotFound)
}

type fakeNotifier struct {
	created int
	updated int
	removed int
}

func (n *fakeNotifier) NotifyChatCreated(chat *models.Chat) { n.created++ }
func (n *fakeNotifier) NotifyChatUpdated(chat *models.Chat) { n.updated++ }
func (n *fakeNotifier) NotifyChatRemoved(chat *models.Chat) { n.removed++ }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// authedDo runs the handler behind the real JWT middleware, the way the
// router wires it.
func authedDo(t *testing.T, handler http.HandlerFunc, userID, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	auth.InitJWT("test-secret", time.Hour)
	token, _, err := auth.GenerateJWT(userID, "session-"+userID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	r.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	auth.AuthMiddleware(handler).ServeHTTP(w, r)
	return w
}

func TestCreateChatWithFirstMessage(t *testing.T) {
	store := newFakeChatStore("u1", "u2")
	notifier := &fakeNotifier{}
	h := NewChatHandler(store, notifier, testLogger())

	w := authedDo(t, h.CreateChat, "u1", http.MethodPost, "/api/chats",
		`{"participant_ids":["u2"],"first_message":"hi"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(resp.Chat.ParticipantIDs) != 2 {
		t.Fatalf("expected 2 participants, got %v", resp.Chat.ParticipantIDs)
	}
	if resp.Message == nil || resp.Message.Content != "hi" {
		t.Fatalf("expected first message %q in response, got %+v", "hi", resp.Message)
	}
	if got := len(store.messages[resp.Chat.ID]); got != 1 {
		t.Fatalf("expected exactly 1 stored message, got %d", got)
	}

	chat := store.chats[resp.Chat.ID]
	if chat.LastMessage == nil || *chat.LastMessage != "hi" {
		t.Fatalf("expected last-message snapshot %q, got %v", "hi", chat.LastMessage)
	}
	if chat.LastMessageSenderID == nil || *chat.LastMessageSenderID != "u1" {
		t.Fatalf("expected last-message sender u1, got %v", chat.LastMessageSenderID)
	}
	if notifier.created != 1 {
		t.Fatalf("expected 1 created notification, got %d", notifier.created)
	}
}

func TestCreateChatReusesDirectChat(t *testing.T) {
	store := newFakeChatStore("u1", "u2")
	notifier := &fakeNotifier{}
	h := NewChatHandler(store, notifier, testLogger())

	w := authedDo(t, h.CreateChat, "u1", http.MethodPost, "/api/chats",
		`{"participant_ids":["u2"],"first_message":"hi"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var first models.ChatResponse
	json.NewDecoder(w.Body).Decode(&first)

	// A second "new chat" with the same contact lands in the existing chat
	w = authedDo(t, h.CreateChat, "u1", http.MethodPost, "/api/chats",
		`{"participant_ids":["u2"],"first_message":"again"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for reused chat, got %d", w.Code)
	}
	var second models.ChatResponse
	json.NewDecoder(w.Body).Decode(&second)

	if second.Chat.ID != first.Chat.ID {
		t.Fatalf("expected reuse of chat %s, got %s", first.Chat.ID, second.Chat.ID)
	}
	if got := len(store.messages[first.Chat.ID]); got != 2 {
		t.Fatalf("expected 2 messages in the reused chat, got %d", got)
	}
	if len(store.chats) != 1 {
		t.Fatalf("expected no duplicate chat, got %d chats", len(store.chats))
	}
}

func TestCreateChatRejectsUnknownParticipant(t *testing.T) {
	store := newFakeChatStore("u1")
	h := NewChatHandler(store, &fakeNotifier{}, testLogger())

	w := authedDo(t, h.CreateChat, "u1", http.MethodPost, "/api/chats",
		`{"participant_ids":["ghost"]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown participant, got %d", w.Code)
	}
	if len(store.chats) != 0 {
		t.Fatalf("expected no chat created, got %d", len(store.chats))
	}
}
