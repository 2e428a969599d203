package models

import (
	"time"
)

type Message struct {
	ID          string     `json:"id" db:"id"`
	ChatID      string     `json:"chat_id" db:"chat_id"`
	SenderID    string     `json:"sender_id" db:"sender_id"`
	Content     string     `json:"content" db:"content"`
	Status      string     `json:"status" db:"status"`
	SentAt      time.Time  `json:"sent_at" db:"sent_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt      *time.Time `json:"read_at,omitempty" db:"read_at"`
}

type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// statusRank orders the status lifecycle; transitions only move forward.
var statusRank = map[MessageStatus]int{
	MessageStatusSent:      0,
	MessageStatusDelivered: 1,
	MessageStatusRead:      2,
}

// CanTransition reports whether a message status may move from one value to
// another. Equal or backward moves are rejected.
func (s MessageStatus) CanTransition(to MessageStatus) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	next, ok := statusRank[to]
	if !ok {
		return false
	}
	return next > from
}

type MessageRequest struct {
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

type MessageStatusUpdate struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
	ChatID    string `json:"chat_id,omitempty"`
}

type MessageResponse struct {
	Message Message `json:"message"`
	Chat    *Chat   `json:"chat,omitempty"`
}

type MessageListResponse struct {
	Messages []Message `json:"messages"`
	Total    int       `json:"total"`
	HasMore  bool      `json:"has_more"`
}
