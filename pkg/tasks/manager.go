// Package tasks keeps each user's per-date task lists: an in-memory map in
// front of whole-document persistence. Switching dates refetches, so the
// cache self-heals after edits from another device.
package tasks

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ezchat/ezchat/pkg/models"
)

// Store persists one task list per (user, date) as a full-list overwrite.
type Store interface {
	LoadTasks(userID, date string) ([]string, error)
	SaveTasks(userID, date string, tasks []string) error
}

type Manager struct {
	store  Store
	logger *slog.Logger

	mu sync.Mutex
	// lists caches only each user's currently selected date
	lists       map[string][]string // key: userID + "|" + date
	currentDate map[string]string   // userID -> selected date
}

func NewManager(store Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:       store,
		logger:      logger,
		lists:       make(map[string][]string),
		currentDate: make(map[string]string),
	}
}

// GetTasks returns the ordered task list for a date. A date switch evicts
// the previous date's cache and fetches fresh; repeated calls for the same
// date are served from memory.
func (m *Manager) GetTasks(userID, date string) ([]string, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.loadLocked(userID, date)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(tasks))
	copy(out, tasks)
	return out, nil
}

// AddTask appends a task and persists the whole list. The in-memory copy is
// only updated after the write succeeds.
func (m *Manager) AddTask(userID, date, text string) ([]string, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("task text must not be empty: %w", models.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.loadLocked(userID, date)
	if err != nil {
		return nil, err
	}

	updated := append(append([]string{}, tasks...), text)
	if err := m.persistLocked(userID, date, updated); err != nil {
		return nil, err
	}

	m.logger.Debug("Task added", "user_id", userID, "date", date, "task_count", len(updated))
	return m.copyLocked(userID, date), nil
}

// EditTask replaces the task at index in place.
func (m *Manager) EditTask(userID, date string, index int, text string) ([]string, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("task text must not be empty: %w", models.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.loadLocked(userID, date)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(tasks) {
		return nil, fmt.Errorf("task index %d out of range: %w", index, models.ErrNotFound)
	}

	updated := append([]string{}, tasks...)
	updated[index] = text
	if err := m.persistLocked(userID, date, updated); err != nil {
		return nil, err
	}

	m.logger.Debug("Task edited", "user_id", userID, "date", date, "index", index)
	return m.copyLocked(userID, date), nil
}

// DeleteTask removes exactly one task, preserving the relative order of the
// remaining entries.
func (m *Manager) DeleteTask(userID, date string, index int) ([]string, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.loadLocked(userID, date)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(tasks) {
		return nil, fmt.Errorf("task index %d out of range: %w", index, models.ErrNotFound)
	}

	updated := append([]string{}, tasks[:index]...)
	updated = append(updated, tasks[index+1:]...)
	if err := m.persistLocked(userID, date, updated); err != nil {
		return nil, err
	}

	m.logger.Debug("Task deleted", "user_id", userID, "date", date, "index", index)
	return m.copyLocked(userID, date), nil
}

// ValidateDate accepts calendar dates at year-month-day granularity.
func ValidateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", models.ErrValidation)
	}
	return nil
}

func (m *Manager) loadLocked(userID, date string) ([]string, error) {
	key := userID + "|" + date

	if m.currentDate[userID] == date {
		if tasks, ok := m.lists[key]; ok {
			return tasks, nil
		}
	}

	tasks, err := m.store.LoadTasks(userID, date)
	if err != nil {
		m.logger.Error("Failed to load tasks", "error", err, "user_id", userID, "date", date)
		return nil, fmt.Errorf("load tasks: %w", models.ErrBackendUnavailable)
	}

	// Date switch: drop the previously selected date's cache
	if prev, ok := m.currentDate[userID]; ok && prev != date {
		delete(m.lists, userID+"|"+prev)
	}
	m.currentDate[userID] = date
	m.lists[key] = tasks

	return tasks, nil
}

func (m *Manager) persistLocked(userID, date string, tasks []string) error {
	if err := m.store.SaveTasks(userID, date, tasks); err != nil {
		m.logger.Error("Failed to save tasks", "error", err, "user_id", userID, "date", date)
		return fmt.Errorf("save tasks: %w", models.ErrBackendUnavailable)
	}

	m.lists[userID+"|"+date] = tasks
	return nil
}

func (m *Manager) copyLocked(userID, date string) []string {
	tasks := m.lists[userID+"|"+date]
	out := make([]string, len(tasks))
	copy(out, tasks)
	return out
}
