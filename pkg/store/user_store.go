package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ezchat/ezchat/pkg/models"
)

func (s *Store) CreateUser(user *models.User) error {
	s.logger.Info("Creating user", "phone", user.Phone, "username", user.Username)

	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	user.LastSeen = time.Now()

	query := `
		INSERT INTO users (id, phone, username, last_seen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := s.DB.QueryRow(
		query,
		user.ID, user.Phone, user.Username,
		user.LastSeen, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		s.logger.Error("Failed to create user",
			"error", err, "phone", user.Phone, "username", user.Username)
		return err
	}

	s.logger.Info("User created successfully", "user_id", user.ID, "phone", user.Phone)
	return nil
}

func (s *Store) GetUserByID(userID string) (*models.User, error) {
	s.logger.Debug("Getting user by ID", "user_id", userID)

	query := `
		SELECT id, phone, username, profile_pic, push_token, last_seen, created_at, updated_at
		FROM users WHERE id = $1`

	user := &models.User{}
	err := s.DB.QueryRow(query, userID).Scan(
		&user.ID, &user.Phone, &user.Username, &user.ProfilePic,
		&user.PushToken, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		s.logger.Debug("User not found by ID", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get user by ID", "error", err, "user_id", userID)
		return nil, err
	}

	return user, nil
}

func (s *Store) GetUserByPhone(phone string) (*models.User, error) {
	s.logger.Debug("Getting user by phone", "phone", phone)

	query := `
		SELECT id, phone, username, profile_pic, push_token, last_seen, created_at, updated_at
		FROM users WHERE phone = $1`

	user := &models.User{}
	err := s.DB.QueryRow(query, phone).Scan(
		&user.ID, &user.Phone, &user.Username, &user.ProfilePic,
		&user.PushToken, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		s.logger.Debug("User not found by phone", "phone", phone)
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get user by phone", "error", err, "phone", phone)
		return nil, err
	}

	return user, nil
}

func (s *Store) GetUsersByIDs(userIDs []string) ([]models.User, error) {
	s.logger.Debug("Getting users by IDs", "count", len(userIDs))

	query := `
		SELECT id, phone, username, profile_pic, push_token, last_seen, created_at, updated_at
		FROM users WHERE id = ANY($1)`

	rows, err := s.DB.Query(query, pq.Array(userIDs))
	if err != nil {
		s.logger.Error("Failed to query users by IDs", "error", err)
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Phone, &user.Username, &user.ProfilePic,
			&user.PushToken, &user.LastSeen, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			s.logger.Error("Failed to scan user row", "error", err)
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *Store) UpdateUser(userID string, updates *models.UserUpdateRequest) error {
	s.logger.Info("Updating user", "user_id", userID)

	query := `
		UPDATE users
		SET username = COALESCE($2, username),
			profile_pic = COALESCE($3, profile_pic),
			push_token = COALESCE($4, push_token),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id`

	err := s.DB.QueryRow(query, userID, updates.Username, updates.ProfilePic, updates.PushToken).Scan(&userID)
	if err != nil {
		s.logger.Error("Failed to update user", "error", err, "user_id", userID)
		return err
	}

	s.logger.Info("User updated successfully", "user_id", userID)
	return nil
}

func (s *Store) UpdateUserLastSeen(userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen = $1 WHERE id = $2`
	_, err := s.DB.Exec(query, lastSeen, userID)
	if err != nil {
		s.logger.Error("Failed to update user last seen",
			"error", err, "user_id", userID, "last_seen", lastSeen)
		return err
	}

	return nil
}

func (s *Store) CreateUserSession(userID, sessionID, deviceInfo, ipAddress string) error {
	s.logger.Debug("Creating user session",
		"user_id", userID, "session_id", sessionID)

	query := `
		INSERT INTO user_sessions (user_id, session_id, device_info, ip_address)
		VALUES ($1, $2, $3, NULLIF($4, ''))`

	_, err := s.DB.Exec(query, userID, sessionID, deviceInfo, ipAddress)
	if err != nil {
		s.logger.Error("Failed to create user session",
			"error", err, "user_id", userID, "session_id", sessionID)
		return err
	}

	return nil
}

func (s *Store) DeleteSession(sessionID string) error {
	s.logger.Debug("Deleting session", "session_id", sessionID)

	query := `DELETE FROM user_sessions WHERE session_id = $1`
	_, err := s.DB.Exec(query, sessionID)
	if err != nil {
		s.logger.Error("Failed to delete session", "error", err, "session_id", sessionID)
		return err
	}

	return nil
}
