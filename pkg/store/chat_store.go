package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/ezchat/ezchat/pkg/models"
)

// CreateChat inserts a chat, its members and, when firstMessage is not empty,
// the opening message plus the chat's last-message snapshot, all in a single
// transaction so a partial failure cannot leave the snapshot inconsistent.
func (s *Store) CreateChat(chatReq *models.ChatRequest, createdBy, firstMessage string) (*models.Chat, *models.Message, error) {
	s.logger.Info("Creating chat",
		"created_by", createdBy, "participant_count", len(chatReq.ParticipantIDs), "has_first_message", firstMessage != "")

	tx, err := s.DB.Begin()
	if err != nil {
		s.logger.Error("Failed to begin transaction for CreateChat", "error", err)
		return nil, nil, err
	}
	defer tx.Rollback()

	chatID := uuid.New().String()
	now := time.Now()

	chat := &models.Chat{
		ID:        chatID,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO chats (id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err = tx.QueryRow(query, chat.ID, chat.CreatedBy, chat.CreatedAt, chat.UpdatedAt).Scan(&chat.ID)
	if err != nil {
		s.logger.Error("Failed to insert chat", "error", err, "chat_id", chatID)
		return nil, nil, err
	}

	// Creator is always a participant
	participants := []string{createdBy}
	for _, userID := range chatReq.ParticipantIDs {
		if userID == createdBy {
			continue
		}
		participants = append(participants, userID)
	}

	for _, userID := range participants {
		_, err = tx.Exec(`
			INSERT INTO chat_members (chat_id, user_id, joined_at)
			VALUES ($1, $2, $3)`,
			chatID, userID, now,
		)
		if err != nil {
			s.logger.Error("Failed to add chat member",
				"error", err, "chat_id", chatID, "user_id", userID)
			return nil, nil, err
		}
	}
	chat.ParticipantIDs = participants

	var message *models.Message
	if firstMessage != "" {
		message = &models.Message{
			ID:       uuid.New().String(),
			ChatID:   chatID,
			SenderID: createdBy,
			Content:  firstMessage,
			Status:   string(models.MessageStatusSent),
			SentAt:   now,
		}

		_, err = tx.Exec(`
			INSERT INTO messages (id, chat_id, sender_id, content, status, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			message.ID, message.ChatID, message.SenderID,
			message.Content, message.Status, message.SentAt,
		)
		if err != nil {
			s.logger.Error("Failed to insert first message",
				"error", err, "chat_id", chatID)
			return nil, nil, err
		}

		_, err = tx.Exec(`
			UPDATE chats
			SET last_message = $2, last_message_sender_id = $3, last_message_at = $4
			WHERE id = $1`,
			chatID, message.Content, message.SenderID, message.SentAt,
		)
		if err != nil {
			s.logger.Error("Failed to set last-message snapshot",
				"error", err, "chat_id", chatID)
			return nil, nil, err
		}

		chat.LastMessage = &message.Content
		chat.LastMessageSenderID = &message.SenderID
		chat.LastMessageAt = &message.SentAt
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction for CreateChat", "error", err)
		return nil, nil, err
	}

	// Invalidate cache
	for _, userID := range participants {
		s.InvalidateUserChatsCache(userID)
	}

	s.logger.Info("Chat created successfully",
		"chat_id", chatID, "total_members", len(participants))

	return chat, message, nil
}

func (s *Store) GetChat(chatID string) (*models.Chat, error) {
	s.logger.Debug("Getting chat", "chat_id", chatID)

	query := `
		SELECT id, created_by, created_at, updated_at,
		       last_message, last_message_sender_id, last_message_at
		FROM chats WHERE id = $1`

	chat := &models.Chat{}
	err := s.DB.QueryRow(query, chatID).Scan(
		&chat.ID, &chat.CreatedBy, &chat.CreatedAt, &chat.UpdatedAt,
		&chat.LastMessage, &chat.LastMessageSenderID, &chat.LastMessageAt,
	)

	if err == sql.ErrNoRows {
		s.logger.Debug("Chat not found", "chat_id", chatID)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get chat", "error", err, "chat_id", chatID)
		return nil, err
	}

	participants, err := s.GetChatParticipantIDs(chatID)
	if err != nil {
		return nil, err
	}
	chat.ParticipantIDs = participants

	return chat, nil
}

// GetDirectChat finds the existing two-person chat between two users, so a
// second "new chat" with the same contact reuses it instead of forking a
// duplicate conversation.
func (s *Store) GetDirectChat(user1ID, user2ID string) (*models.Chat, error) {
	s.logger.Debug("Getting direct chat", "user1_id", user1ID, "user2_id", user2ID)

	query := `
		SELECT c.id
		FROM chats c
		JOIN chat_members cm1 ON c.id = cm1.chat_id
		JOIN chat_members cm2 ON c.id = cm2.chat_id
		WHERE cm1.user_id = $1 AND cm2.user_id = $2
		AND (SELECT COUNT(*) FROM chat_members cm WHERE cm.chat_id = c.id) = 2
		LIMIT 1`

	var chatID string
	err := s.DB.QueryRow(query, user1ID, user2ID).Scan(&chatID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get direct chat",
			"error", err, "user1_id", user1ID, "user2_id", user2ID)
		return nil, err
	}

	return s.GetChat(chatID)
}

// GetUserChats returns all chats the user participates in, newest message
// first. This is the server side of the live query the chat list subscribes to.
func (s *Store) GetUserChats(userID string) ([]models.Chat, error) {
	s.logger.Debug("Getting user chats", "user_id", userID)

	// Try cache first
	if cached, err := s.GetCachedUserChats(userID); err == nil && cached != nil {
		s.logger.Debug("Retrieved user chats from cache", "user_id", userID, "chat_count", len(cached))
		return cached, nil
	}

	query := `
		SELECT c.id, c.created_by, c.created_at, c.updated_at,
		       c.last_message, c.last_message_sender_id, c.last_message_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id AND m.sent_at > cm.last_read_at AND m.sender_id <> $1) as unread_count
		FROM chats c
		JOIN chat_members cm ON c.id = cm.chat_id
		WHERE cm.user_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC`

	rows, err := s.DB.Query(query, userID)
	if err != nil {
		s.logger.Error("Failed to query user chats", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		var chat models.Chat
		err := rows.Scan(
			&chat.ID, &chat.CreatedBy, &chat.CreatedAt, &chat.UpdatedAt,
			&chat.LastMessage, &chat.LastMessageSenderID, &chat.LastMessageAt,
			&chat.UnreadCount,
		)
		if err != nil {
			s.logger.Error("Failed to scan chat row", "error", err, "user_id", userID)
			return nil, err
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range chats {
		participants, err := s.GetChatParticipantIDs(chats[i].ID)
		if err != nil {
			return nil, err
		}
		chats[i].ParticipantIDs = participants
	}

	s.logger.Debug("Retrieved user chats from database", "user_id", userID, "chat_count", len(chats))

	// Cache the result
	go s.CacheUserChats(userID, chats)

	return chats, nil
}

func (s *Store) GetChatParticipantIDs(chatID string) ([]string, error) {
	query := `
		SELECT user_id FROM chat_members
		WHERE chat_id = $1
		ORDER BY joined_at`

	rows, err := s.DB.Query(query, chatID)
	if err != nil {
		s.logger.Error("Failed to query chat participants", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		participants = append(participants, userID)
	}

	return participants, rows.Err()
}

func (s *Store) GetChatMembers(chatID string) ([]models.ChatMember, error) {
	s.logger.Debug("Getting chat members", "chat_id", chatID)

	query := `
		SELECT chat_id, user_id, joined_at, last_read_at
		FROM chat_members
		WHERE chat_id = $1
		ORDER BY joined_at`

	rows, err := s.DB.Query(query, chatID)
	if err != nil {
		s.logger.Error("Failed to query chat members", "error", err, "chat_id", chatID)
		return nil, err
	}
	defer rows.Close()

	var members []models.ChatMember
	for rows.Next() {
		var member models.ChatMember
		err := rows.Scan(&member.ChatID, &member.UserID, &member.JoinedAt, &member.LastReadAt)
		if err != nil {
			s.logger.Error("Failed to scan chat member row", "error", err, "chat_id", chatID)
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

func (s *Store) IsChatMember(chatID, userID string) (bool, error) {
	query := `SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2`
	var exists int
	err := s.DB.QueryRow(query, chatID, userID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		s.logger.Error("Failed to check chat membership",
			"error", err, "chat_id", chatID, "user_id", userID)
		return false, err
	}

	return true, nil
}

func (s *Store) UpdateMemberLastRead(chatID, userID string) error {
	query := `UPDATE chat_members SET last_read_at = CURRENT_TIMESTAMP WHERE chat_id = $1 AND user_id = $2`
	_, err := s.DB.Exec(query, chatID, userID)
	if err != nil {
		s.logger.Error("Failed to update member last read",
			"error", err, "chat_id", chatID, "user_id", userID)
		return err
	}

	return nil
}

// DeleteChat removes the chat row; messages and memberships go with it via
// ON DELETE CASCADE.
func (s *Store) DeleteChat(chatID string) error {
	s.logger.Warn("Deleting chat", "chat_id", chatID)

	participants, err := s.GetChatParticipantIDs(chatID)
	if err != nil {
		return err
	}

	query := `DELETE FROM chats WHERE id = $1`
	if _, err := s.DB.Exec(query, chatID); err != nil {
		s.logger.Error("Failed to delete chat", "error", err, "chat_id", chatID)
		return err
	}

	for _, userID := range participants {
		s.InvalidateUserChatsCache(userID)
	}

	s.logger.Info("Chat deleted successfully", "chat_id", chatID)
	return nil
}
