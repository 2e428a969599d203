package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/models"
)

const defaultMessagePageSize = 50

type MessageHandler struct {
	store  ChatStore
	hub    ChatNotifier
	logger *slog.Logger
}

func NewMessageHandler(store ChatStore, h ChatNotifier, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{store: store, hub: h, logger: logger}
}

// SendMessage appends a message to a chat over REST. The message and the
// chat's last-message snapshot commit together, then connected clients get
// the updated chat pushed.
// @Summary Send a message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.MessageRequest true "Chat and content"
// @Success 201 {object} models.Message
// @Failure 400 {string} string "validation failed"
// @Failure 403 {string} string "not a member"
// @Router /api/messages [post]
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ChatID == "" {
		http.Error(w, "Chat ID required", http.StatusBadRequest)
		return
	}
	content, err := ValidateMessageContent(req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	isMember, err := h.store.IsChatMember(req.ChatID, userID)
	if err != nil {
		h.logger.Error("SendMessage: failed to check membership", "error", err, "chat_id", req.ChatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		http.Error(w, "Not a member of this chat", http.StatusForbidden)
		return
	}

	message, err := h.store.AppendMessage(req.ChatID, userID, content)
	if err != nil {
		h.logger.Error("SendMessage: failed to append message", "error", err, "chat_id", req.ChatID)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	if chat, err := h.store.GetChat(req.ChatID); err == nil && chat != nil {
		h.hub.NotifyChatUpdated(chat)
	}

	writeJSON(w, http.StatusCreated, message)
}

// GetMessages pages backwards through a chat's history.
// @Summary List chat messages
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {object} models.MessageListResponse
// @Router /api/chats/{id}/messages [get]
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	chatID := r.PathValue("id")

	if chatID == "" {
		http.Error(w, "Chat ID required", http.StatusBadRequest)
		return
	}

	isMember, err := h.store.IsChatMember(chatID, userID)
	if err != nil {
		h.logger.Error("GetMessages: failed to check membership", "error", err, "chat_id", chatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		http.Error(w, "Not a member of this chat", http.StatusForbidden)
		return
	}

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = defaultMessagePageSize
	}

	messages, err := h.store.GetMessages(chatID, offset, limit)
	if err != nil {
		h.logger.Error("GetMessages: failed to get messages", "error", err, "chat_id", chatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}

	writeJSON(w, http.StatusOK, models.MessageListResponse{
		Messages: messages,
		Total:    len(messages),
		HasMore:  len(messages) == limit,
	})
}

// UpdateMessageStatus advances a message's delivery status. Transitions
// only move forward, so replayed updates are harmless.
// @Summary Update message status
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.MessageStatusUpdate true "Message and status"
// @Success 200 {object} models.Message
// @Router /api/messages/status [post]
func (h *MessageHandler) UpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.MessageStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MessageID == "" {
		http.Error(w, "Message ID required", http.StatusBadRequest)
		return
	}

	message, err := h.store.GetMessage(req.MessageID)
	if err != nil {
		h.logger.Error("UpdateMessageStatus: failed to get message", "error", err, "message_id", req.MessageID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if message == nil {
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	// Senders don't ack their own messages
	if message.SenderID == userID {
		http.Error(w, "Cannot update own message status", http.StatusForbidden)
		return
	}

	isMember, err := h.store.IsChatMember(message.ChatID, userID)
	if err != nil {
		h.logger.Error("UpdateMessageStatus: failed to check membership", "error", err, "chat_id", message.ChatID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if !isMember {
		http.Error(w, "Not a member of this chat", http.StatusForbidden)
		return
	}

	if err := h.store.UpdateMessageStatus(req.MessageID, req.Status); err != nil {
		h.logger.Error("UpdateMessageStatus: failed to update", "error", err, "message_id", req.MessageID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	updated, err := h.store.GetMessage(req.MessageID)
	if err != nil || updated == nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}
