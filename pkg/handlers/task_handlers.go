package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/models"
	"github.com/ezchat/ezchat/pkg/tasks"
)

type TaskHandler struct {
	manager *tasks.Manager
	logger  *slog.Logger
}

func NewTaskHandler(manager *tasks.Manager, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{manager: manager, logger: logger}
}

// GetTasks returns the caller's task list for one date.
// @Summary Get tasks for a date
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param date query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} models.TaskListResponse
// @Router /api/tasks [get]
func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	date := r.URL.Query().Get("date")

	list, err := h.manager.GetTasks(userID, date)
	if err != nil {
		h.logger.Error("GetTasks: failed", "error", err, "user_id", userID, "date", date)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TaskListResponse{
		Date:  date,
		Tasks: list,
	})
}

// AddTask appends a task to the end of a date's list.
// @Summary Add a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TaskRequest true "Date and text"
// @Success 201 {object} models.TaskListResponse
// @Router /api/tasks [post]
func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	list, err := h.manager.AddTask(userID, req.Date, req.Text)
	if err != nil {
		h.logger.Warn("AddTask: failed", "error", err, "user_id", userID, "date", req.Date)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.TaskListResponse{
		Date:  req.Date,
		Tasks: list,
	})
}

// EditTask replaces the text of one task in place.
// @Summary Edit a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TaskEditRequest true "Date, index and new text"
// @Success 200 {object} models.TaskListResponse
// @Router /api/tasks [put]
func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.TaskEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	list, err := h.manager.EditTask(userID, req.Date, req.Index, req.Text)
	if err != nil {
		h.logger.Warn("EditTask: failed", "error", err, "user_id", userID, "date", req.Date, "index", req.Index)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TaskListResponse{
		Date:  req.Date,
		Tasks: list,
	})
}

// DeleteTask removes one task by position; the rest keep their order.
// @Summary Delete a task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param index query int true "Task position"
// @Success 200 {object} models.TaskListResponse
// @Router /api/tasks [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	date := r.URL.Query().Get("date")

	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		http.Error(w, "Task index required", http.StatusBadRequest)
		return
	}

	list, err := h.manager.DeleteTask(userID, date, index)
	if err != nil {
		h.logger.Warn("DeleteTask: failed", "error", err, "user_id", userID, "date", date, "index", index)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TaskListResponse{
		Date:  date,
		Tasks: list,
	})
}
