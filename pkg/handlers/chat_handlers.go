package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/models"
)

type ChatHandler struct {
	store  ChatStore
	hub    ChatNotifier
	logger *slog.Logger
}

func NewChatHandler(store ChatStore, h ChatNotifier, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{store: store, hub: h, logger: logger}
}

// GetChats lists the caller's chats, newest message first.
// @Summary List own chats
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ChatListResponse
// @Router /api/chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	chats, err := h.store.GetUserChats(userID)
	if err != nil {
		h.logger.Error("GetChats: failed to get chats", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// An empty chat list is an explicit state, never null
	if chats == nil {
		chats = []models.Chat{}
	}

	writeJSON(w, http.StatusOK, models.ChatListResponse{
		Chats: chats,
		Total: len(chats),
	})
}

// CreateChat starts a conversation, optionally with its first message. For
// two participants an existing direct chat is reused; the first message
// then lands in it via the transactional appender.
// @Summary Create a chat
// @Tags chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChatRequest true "Participants and optional first message"
// @Success 201 {object} models.ChatResponse
// @Failure 400 {string} string "validation failed"
// @Router /api/chats [post]
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("CreateChat: invalid request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var others []string
	for _, id := range req.ParticipantIDs {
		id = strings.TrimSpace(id)
		if id == "" || id == userID {
			continue
		}
		others = append(others, id)
	}
	if len(others) == 0 {
		http.Error(w, "At least one other participant required", http.StatusBadRequest)
		return
	}

	firstMessage := strings.TrimSpace(req.FirstMessage)

	// Every participant must exist
	users, err := h.store.GetUsersByIDs(others)
	if err != nil {
		h.logger.Error("CreateChat: failed to look up participants", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if len(users) != len(others) {
		http.Error(w, "Unknown participant", http.StatusBadRequest)
		return
	}

	// Reuse an existing direct chat between the same two users
	if len(others) == 1 {
		existing, err := h.store.GetDirectChat(userID, others[0])
		if err != nil {
			h.logger.Error("CreateChat: failed to check direct chat", "error", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if existing != nil {
			h.logger.Info("CreateChat: reusing direct chat",
				"chat_id", existing.ID, "user_id", userID)

			var message *models.Message
			if firstMessage != "" {
				message, err = h.store.AppendMessage(existing.ID, userID, firstMessage)
				if err != nil {
					h.logger.Error("CreateChat: failed to append to existing chat",
						"error", err, "chat_id", existing.ID)
					http.Error(w, "Failed to send message", http.StatusInternalServerError)
					return
				}
				existing, _ = h.store.GetChat(existing.ID)
				h.hub.NotifyChatUpdated(existing)
			}

			writeJSON(w, http.StatusOK, models.ChatResponse{
				Chat:    *existing,
				Users:   users,
				Message: message,
			})
			return
		}
	}

	chat, message, err := h.store.CreateChat(&req, userID, firstMessage)
	if err != nil {
		h.logger.Error("CreateChat: failed to create chat", "error", err, "user_id", userID)
		http.Error(w, "Failed to create chat", http.StatusInternalServerError)
		return
	}

	h.hub.NotifyChatCreated(chat)

	writeJSON(w, http.StatusCreated, models.ChatResponse{
		Chat:    *chat,
		Users:   users,
		Message: message,
	})
}

// GetChat returns one chat the caller belongs to.
// @Summary Get a chat
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} models.ChatResponse
// @Router /api/chats/{id} [get]
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	chatID := r.PathValue("id")

	chat, err := h.requireMemberChat(w, chatID, userID)
	if chat == nil || err != nil {
		return
	}

	users, err := h.store.GetUsersByIDs(chat.ParticipantIDs)
	if err != nil {
		h.logger.Error("GetChat: failed to load participants", "error", err, "chat_id", chatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{
		Chat:  *chat,
		Users: users,
	})
}

// DeleteChat removes the chat and all of its messages.
// @Summary Delete a chat
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} map[string]string
// @Router /api/chats/{id} [delete]
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	chatID := r.PathValue("id")

	chat, err := h.requireMemberChat(w, chatID, userID)
	if chat == nil || err != nil {
		return
	}

	if err := h.store.DeleteChat(chatID); err != nil {
		h.logger.Error("DeleteChat: failed to delete chat", "error", err, "chat_id", chatID)
		http.Error(w, "Failed to delete chat", http.StatusInternalServerError)
		return
	}

	h.hub.NotifyChatRemoved(chat)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Chat deleted",
	})
}

// GetChatMembers lists a chat's members.
// @Summary List chat members
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {array} models.ChatMember
// @Router /api/chats/{id}/members [get]
func (h *ChatHandler) GetChatMembers(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	chatID := r.PathValue("id")

	chat, err := h.requireMemberChat(w, chatID, userID)
	if chat == nil || err != nil {
		return
	}

	members, err := h.store.GetChatMembers(chatID)
	if err != nil {
		h.logger.Error("GetChatMembers: failed to get members", "error", err, "chat_id", chatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// MarkChatAsRead moves the caller's read marker to now.
// @Summary Mark a chat read
// @Tags chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} map[string]string
// @Router /api/chats/{id}/read [post]
func (h *ChatHandler) MarkChatAsRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	chatID := r.PathValue("id")

	chat, err := h.requireMemberChat(w, chatID, userID)
	if chat == nil || err != nil {
		return
	}

	if err := h.store.UpdateMemberLastRead(chatID, userID); err != nil {
		h.logger.Error("MarkChatAsRead: failed to update", "error", err, "chat_id", chatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.store.InvalidateUserChatsCache(userID)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Chat marked as read",
	})
}

// requireMemberChat loads a chat and enforces that the caller participates
// in it; on failure it has already written the response.
func (h *ChatHandler) requireMemberChat(w http.ResponseWriter, chatID, userID string) (*models.Chat, error) {
	if chatID == "" {
		http.Error(w, "Chat ID required", http.StatusBadRequest)
		return nil, nil
	}

	chat, err := h.store.GetChat(chatID)
	if err != nil {
		h.logger.Error("Failed to get chat", "error", err, "chat_id", chatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, err
	}
	if chat == nil {
		http.Error(w, "Chat not found", http.StatusNotFound)
		return nil, nil
	}

	isMember, err := h.store.IsChatMember(chatID, userID)
	if err != nil {
		h.logger.Error("Failed to check membership", "error", err, "chat_id", chatID, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return nil, err
	}
	if !isMember {
		http.Error(w, "Not a member of this chat", http.StatusForbidden)
		return nil, nil
	}

	return chat, nil
}
