package models

import (
	"time"
)

type Chat struct {
	ID                  string     `json:"id" db:"id"`
	ParticipantIDs      []string   `json:"participant_ids" db:"-"`
	CreatedBy           string     `json:"created_by" db:"created_by"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
	LastMessage         *string    `json:"last_message,omitempty" db:"last_message"`
	LastMessageSenderID *string    `json:"last_message_sender_id,omitempty" db:"last_message_sender_id"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	UnreadCount         int        `json:"unread_count,omitempty" db:"-"`
}

type ChatMember struct {
	ChatID     string    `json:"chat_id" db:"chat_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	JoinedAt   time.Time `json:"joined_at" db:"joined_at"`
	LastReadAt time.Time `json:"last_read_at" db:"last_read_at"`
}

type ChatRequest struct {
	ParticipantIDs []string `json:"participant_ids"`
	FirstMessage   string   `json:"first_message,omitempty"`
}

type ChatResponse struct {
	Chat    Chat     `json:"chat"`
	Users   []User   `json:"users,omitempty"`
	Message *Message `json:"message,omitempty"`
}

type ChatListResponse struct {
	Chats []Chat `json:"chats"`
	Total int    `json:"total"`
}

// ChatDeltaType tags a change delivered by the live chat-list subscription.
type ChatDeltaType string

const (
	ChatAdded    ChatDeltaType = "chat_added"
	ChatModified ChatDeltaType = "chat_modified"
	ChatRemoved  ChatDeltaType = "chat_removed"
)

type ChatDelta struct {
	Type ChatDeltaType `json:"type"`
	Chat Chat          `json:"chat"`
}
