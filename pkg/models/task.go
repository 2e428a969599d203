package models

import (
	"time"
)

// TaskList is the full set of free-text tasks a user keeps for one calendar
// date. Persistence is a whole-list overwrite, last writer wins.
type TaskList struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Date      string    `json:"date" db:"date"`
	Tasks     []string  `json:"tasks" db:"tasks"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type TaskRequest struct {
	Date string `json:"date"`
	Text string `json:"text"`
}

type TaskEditRequest struct {
	Date  string `json:"date"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type TaskListResponse struct {
	Date  string   `json:"date"`
	Tasks []string `json:"tasks"`
}
