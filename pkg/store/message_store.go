package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ezchat/ezchat/pkg/models"
)

// AppendMessage writes a message and updates the parent chat's denormalized
// last-message fields in one transaction. The snapshot can never disagree
// with the newest message.
func (s *Store) AppendMessage(chatID, senderID, content string) (*models.Message, error) {
	s.logger.Info("Appending message", "chat_id", chatID, "sender_id", senderID)

	messageID := uuid.New().String()
	now := time.Now()

	message := &models.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		Status:   string(models.MessageStatusSent),
		SentAt:   now,
	}

	tx, err := s.DB.Begin()
	if err != nil {
		s.logger.Error("Failed to begin transaction for AppendMessage", "error", err)
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO messages (id, chat_id, sender_id, content, status, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err = tx.QueryRow(
		query,
		message.ID, message.ChatID, message.SenderID,
		message.Content, message.Status, message.SentAt,
	).Scan(&message.ID)

	if err != nil {
		s.logger.Error("Failed to insert message",
			"error", err, "chat_id", chatID, "sender_id", senderID)
		return nil, err
	}

	_, err = tx.Exec(`
		UPDATE chats
		SET last_message = $2, last_message_sender_id = $3, last_message_at = $4
		WHERE id = $1`,
		chatID, message.Content, message.SenderID, message.SentAt,
	)
	if err != nil {
		s.logger.Error("Failed to update last-message snapshot",
			"error", err, "chat_id", chatID)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction for AppendMessage", "error", err)
		return nil, err
	}

	// The chat list of every participant just changed ordering
	participants, err := s.GetChatParticipantIDs(chatID)
	if err == nil {
		for _, userID := range participants {
			s.InvalidateUserChatsCache(userID)
		}
	}

	s.logger.Info("Message appended successfully",
		"message_id", messageID, "chat_id", chatID, "sender_id", senderID)
	return message, nil
}

func (s *Store) GetMessage(messageID string) (*models.Message, error) {
	s.logger.Debug("Getting message", "message_id", messageID)

	query := `
		SELECT id, chat_id, sender_id, content, status, sent_at, delivered_at, read_at
		FROM messages WHERE id = $1`

	message := &models.Message{}
	err := s.DB.QueryRow(query, messageID).Scan(
		&message.ID, &message.ChatID, &message.SenderID,
		&message.Content, &message.Status, &message.SentAt,
		&message.DeliveredAt, &message.ReadAt,
	)

	if err == sql.ErrNoRows {
		s.logger.Debug("Message not found", "message_id", messageID)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, err
	}

	return message, nil
}

func (s *Store) GetMessages(chatID string, offset, limit int) ([]models.Message, error) {
	s.logger.Debug("Getting messages",
		"chat_id", chatID, "offset", offset, "limit", limit)

	query := `
		SELECT id, chat_id, sender_id, content, status, sent_at, delivered_at, read_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY sent_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := s.DB.Query(query, chatID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to query messages",
			"error", err, "chat_id", chatID, "offset", offset, "limit", limit)
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var message models.Message
		err := rows.Scan(
			&message.ID, &message.ChatID, &message.SenderID,
			&message.Content, &message.Status, &message.SentAt,
			&message.DeliveredAt, &message.ReadAt,
		)
		if err != nil {
			s.logger.Error("Failed to scan message row", "error", err, "chat_id", chatID)
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, rows.Err()
}

// UpdateMessageStatus moves a message's delivery status forward. Backward or
// repeated transitions are ignored so at-least-once delivery of status events
// stays harmless.
func (s *Store) UpdateMessageStatus(messageID, status string) error {
	s.logger.Debug("Updating message status", "message_id", messageID, "status", status)

	message, err := s.GetMessage(messageID)
	if err != nil {
		return err
	}
	if message == nil {
		return fmt.Errorf("message %s: %w", messageID, models.ErrNotFound)
	}

	if !models.MessageStatus(message.Status).CanTransition(models.MessageStatus(status)) {
		s.logger.Debug("Ignoring non-forward status transition",
			"message_id", messageID, "from", message.Status, "to", status)
		return nil
	}

	// The status read above is re-checked in the WHERE clause: if a
	// concurrent ack advanced the row in the meantime, this update matches
	// zero rows instead of moving the status backward.
	now := time.Now()
	query := `
		UPDATE messages
		SET status = $2,
			delivered_at = CASE WHEN $2 IN ('delivered', 'read') AND delivered_at IS NULL THEN $3 ELSE delivered_at END,
			read_at = CASE WHEN $2 = 'read' AND read_at IS NULL THEN $3 ELSE read_at END
		WHERE id = $1 AND status = $4`

	result, err := s.DB.Exec(query, messageID, status, now, message.Status)
	if err != nil {
		s.logger.Error("Failed to update message status",
			"error", err, "message_id", messageID, "status", status)
		return err
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		s.logger.Debug("Message status changed concurrently, update skipped",
			"message_id", messageID, "status", status)
	}

	return nil
}
