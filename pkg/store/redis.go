package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ezchat/ezchat/pkg/models"
)

func InitRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Set connection pool settings
	opt.PoolSize = 100
	opt.MinIdleConns = 10
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second

	return redis.NewClient(opt), nil
}

// Redis keys
func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func otpCodeKey(phone string) string {
	return fmt.Sprintf("otp:%s", phone)
}

func otpAttemptsKey(phone string) string {
	return fmt.Sprintf("otp_attempts:%s", phone)
}

func userChatsKey(userID string) string {
	return fmt.Sprintf("chats:%s", userID)
}

// Session state: the flat key-value record written on login and cleared
// wholesale on logout.

func (s *Store) SaveSessionState(sessionID string, state models.SessionState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	return s.RDB.Set(s.Ctx, sessionKey(sessionID), data, ttl).Err()
}

func (s *Store) GetSessionState(sessionID string) (*models.SessionState, error) {
	data, err := s.RDB.Get(s.Ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var state models.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (s *Store) ClearSessionState(sessionID string) error {
	return s.RDB.Del(s.Ctx, sessionKey(sessionID)).Err()
}

// One-time codes. A code lives under the phone number until it expires or
// is consumed by a successful verification.

func (s *Store) SetOTPCode(phone, code string, ttl time.Duration) error {
	return s.RDB.Set(s.Ctx, otpCodeKey(phone), code, ttl).Err()
}

func (s *Store) GetOTPCode(phone string) (string, error) {
	code, err := s.RDB.Get(s.Ctx, otpCodeKey(phone)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return code, nil
}

func (s *Store) DeleteOTPCode(phone string) error {
	return s.RDB.Del(s.Ctx, otpCodeKey(phone), otpAttemptsKey(phone)).Err()
}

func (s *Store) IncrementOTPAttempts(phone string, ttl time.Duration) (int64, error) {
	attempts, err := s.RDB.Incr(s.Ctx, otpAttemptsKey(phone)).Result()
	if err != nil {
		return 0, err
	}
	if attempts == 1 {
		s.RDB.Expire(s.Ctx, otpAttemptsKey(phone), ttl)
	}
	return attempts, nil
}

// Chat list cache

func (s *Store) CacheUserChats(userID string, chats []models.Chat) error {
	data, err := json.Marshal(chats)
	if err != nil {
		return err
	}

	return s.RDB.Set(s.Ctx, userChatsKey(userID), data, 10*time.Minute).Err()
}

func (s *Store) GetCachedUserChats(userID string) ([]models.Chat, error) {
	data, err := s.RDB.Get(s.Ctx, userChatsKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var chats []models.Chat
	if err := json.Unmarshal(data, &chats); err != nil {
		return nil, err
	}

	return chats, nil
}

func (s *Store) InvalidateUserChatsCache(userID string) error {
	return s.RDB.Del(s.Ctx, userChatsKey(userID)).Err()
}
