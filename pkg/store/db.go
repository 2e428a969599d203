package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
)

type Store struct {
	DB     *sql.DB
	RDB    *redis.Client
	Ctx    context.Context
	logger *slog.Logger
}

func NewStore(ctx context.Context, pgConnStr, redisAddr string, logger *slog.Logger) (*Store, error) {
	var db *sql.DB
	var err error

	logger.Info("Initializing store", "redis_addr", redisAddr)

	// Retry Postgres connection 5 times
	for i := 0; i < 5; i++ {
		db, err = sql.Open("postgres", pgConnStr)
		if err == nil {
			err = db.Ping()
			if err == nil {
				logger.Info("PostgreSQL connection successful", "attempt", i+1)
				break
			}
		}
		logger.Warn("Waiting for PostgreSQL...", "attempt", i+1, "max_attempts", 5, "error", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	rdb, err := InitRedis(redisAddr)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		return nil, err
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to ping Redis", "error", err)
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Successfully connected to PostgreSQL and Redis")

	return &Store{
		DB:     db,
		RDB:    rdb,
		Ctx:    ctx,
		logger: logger,
	}, nil
}

func (s *Store) InitSchema() error {
	s.logger.Info("Initializing database schema")

	schema := `
		-- Users table
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			phone VARCHAR(20) UNIQUE NOT NULL,
			username VARCHAR(100) NOT NULL,
			profile_pic TEXT,
			push_token TEXT,
			last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_users_phone ON users(phone);

		-- User sessions
		CREATE TABLE IF NOT EXISTS user_sessions (
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			session_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			device_info TEXT,
			ip_address INET,
			last_active TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_active BOOLEAN DEFAULT TRUE
		);

		-- Chats table with denormalized last-message snapshot
		CREATE TABLE IF NOT EXISTS chats (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_by UUID REFERENCES users(id),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_message TEXT,
			last_message_sender_id UUID REFERENCES users(id),
			last_message_at TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_chats_last_message_at ON chats(last_message_at);
		CREATE INDEX IF NOT EXISTS idx_chats_created_by ON chats(created_by);

		-- Chat members
		CREATE TABLE IF NOT EXISTS chat_members (
			chat_id UUID REFERENCES chats(id) ON DELETE CASCADE,
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_read_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (chat_id, user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_chat_members_user_id ON chat_members(user_id);

		-- Messages table; deleting a chat cascades to its messages
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			chat_id UUID REFERENCES chats(id) ON DELETE CASCADE,
			sender_id UUID REFERENCES users(id),
			content TEXT NOT NULL,
			status VARCHAR(10) DEFAULT 'sent' CHECK (status IN ('sent', 'delivered', 'read')),
			sent_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			delivered_at TIMESTAMP,
			read_at TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_messages_chat_id_sent_at ON messages(chat_id, sent_at);
		CREATE INDEX IF NOT EXISTS idx_messages_sender_id ON messages(sender_id);

		-- Per-user, per-date task lists stored as whole documents
		CREATE TABLE IF NOT EXISTS task_lists (
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			tasks JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, date)
		);

		-- Triggers for updated_at
		CREATE OR REPLACE FUNCTION update_updated_at_column()
		RETURNS TRIGGER AS $$
		BEGIN
			NEW.updated_at = CURRENT_TIMESTAMP;
			RETURN NEW;
		END;
		$$ language 'plpgsql';

		DROP TRIGGER IF EXISTS update_users_updated_at ON users;
		CREATE TRIGGER update_users_updated_at
			BEFORE UPDATE ON users
			FOR EACH ROW
			EXECUTE FUNCTION update_updated_at_column();

		DROP TRIGGER IF EXISTS update_chats_updated_at ON chats;
		CREATE TRIGGER update_chats_updated_at
			BEFORE UPDATE ON chats
			FOR EACH ROW
			EXECUTE FUNCTION update_updated_at_column();
	`

	_, err := s.DB.Exec(schema)
	if err != nil {
		s.logger.Error("Failed to initialize schema", "error", err)
		return err
	}

	s.logger.Info("Database schema initialized successfully")
	return nil
}

func (s *Store) Close() error {
	s.logger.Info("Closing store connections")

	var errs []error

	if err := s.DB.Close(); err != nil {
		s.logger.Error("Failed to close PostgreSQL connection", "error", err)
		errs = append(errs, fmt.Errorf("postgres close error: %w", err))
	}

	if err := s.RDB.Close(); err != nil {
		s.logger.Error("Failed to close Redis connection", "error", err)
		errs = append(errs, fmt.Errorf("redis close error: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing store: %v", errs)
	}

	s.logger.Info("Store connections closed successfully")
	return nil
}

func (s *Store) StartCleanupWorker(interval time.Duration, maxSessionAge time.Duration) {
	s.logger.Info("Starting cleanup worker", "interval", interval, "max_session_age", maxSessionAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.logger.Debug("Running cleanup cycle")

		// Delete expired sessions
		result, err := s.DB.Exec(`
			DELETE FROM user_sessions
			WHERE last_active < NOW() - $1::interval
		`, maxSessionAge.String())
		if err != nil {
			s.logger.Error("Error cleaning up sessions", "error", err)
		} else {
			rows, _ := result.RowsAffected()
			if rows > 0 {
				s.logger.Debug("Cleaned up expired sessions", "deleted_rows", rows)
			}
		}

		// Drop task-list rows whose list has been emptied
		result, err = s.DB.Exec(`
			DELETE FROM task_lists
			WHERE tasks = '[]'::jsonb
		`)
		if err != nil {
			s.logger.Error("Error cleaning up empty task lists", "error", err)
		} else {
			rows, _ := result.RowsAffected()
			if rows > 0 {
				s.logger.Debug("Removed empty task lists", "deleted_rows", rows)
			}
		}
	}
}
