package store

import (
	"database/sql"
	"encoding/json"
)

// LoadTasks fetches the task list for one (user, date) pair. A missing row
// is an empty list, not an error.
func (s *Store) LoadTasks(userID, date string) ([]string, error) {
	s.logger.Debug("Loading tasks", "user_id", userID, "date", date)

	query := `SELECT tasks FROM task_lists WHERE user_id = $1 AND date = $2`

	var raw []byte
	err := s.DB.QueryRow(query, userID, date).Scan(&raw)
	if err == sql.ErrNoRows {
		return []string{}, nil
	}
	if err != nil {
		s.logger.Error("Failed to load tasks", "error", err, "user_id", userID, "date", date)
		return nil, err
	}

	var tasks []string
	if err := json.Unmarshal(raw, &tasks); err != nil {
		s.logger.Error("Failed to decode task list", "error", err, "user_id", userID, "date", date)
		return nil, err
	}
	if tasks == nil {
		tasks = []string{}
	}

	return tasks, nil
}

// SaveTasks overwrites the whole list for one (user, date) pair. Last writer
// wins; concurrent edits from two devices are not merged.
func (s *Store) SaveTasks(userID, date string, tasks []string) error {
	s.logger.Debug("Saving tasks", "user_id", userID, "date", date, "task_count", len(tasks))

	if tasks == nil {
		tasks = []string{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO task_lists (user_id, date, tasks, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, date) DO UPDATE
		SET tasks = EXCLUDED.tasks, updated_at = EXCLUDED.updated_at`

	_, err = s.DB.Exec(query, userID, date, raw)
	if err != nil {
		s.logger.Error("Failed to save tasks", "error", err, "user_id", userID, "date", date)
		return err
	}

	return nil
}
