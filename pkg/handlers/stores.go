package handlers

import (
	"github.com/ezchat/ezchat/pkg/models"
)

// ChatStore is the slice of the store the chat and message handlers use.
// *store.Store satisfies it; tests substitute an in-memory fake.
type ChatStore interface {
	GetUserChats(userID string) ([]models.Chat, error)
	GetUsersByIDs(userIDs []string) ([]models.User, error)
	GetDirectChat(user1ID, user2ID string) (*models.Chat, error)
	CreateChat(chatReq *models.ChatRequest, createdBy, firstMessage string) (*models.Chat, *models.Message, error)
	GetChat(chatID string) (*models.Chat, error)
	DeleteChat(chatID string) error
	GetChatMembers(chatID string) ([]models.ChatMember, error)
	IsChatMember(chatID, userID string) (bool, error)
	UpdateMemberLastRead(chatID, userID string) error
	InvalidateUserChatsCache(userID string) error
	AppendMessage(chatID, senderID, content string) (*models.Message, error)
	GetMessage(messageID string) (*models.Message, error)
	GetMessages(chatID string, offset, limit int) ([]models.Message, error)
	UpdateMessageStatus(messageID, status string) error
}

// ChatNotifier pushes chat-list deltas to live subscribers.
type ChatNotifier interface {
	NotifyChatCreated(chat *models.Chat)
	NotifyChatUpdated(chat *models.Chat)
	NotifyChatRemoved(chat *models.Chat)
}
