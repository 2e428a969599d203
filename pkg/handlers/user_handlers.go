package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/models"
	"github.com/ezchat/ezchat/pkg/store"
)

type UserHandler struct {
	store  *store.Store
	logger *slog.Logger
}

func NewUserHandler(store *store.Store, logger *slog.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

// GetCurrentUser returns the authenticated user's profile.
// @Summary Get own profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /api/users/me [get]
func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		h.logger.Error("GetCurrentUser: failed to get user", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateUser edits the profile: username (3 characters minimum), profile
// picture reference, push token. A validation failure writes nothing.
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UserUpdateRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {string} string "validation failed"
// @Router /api/users/me [put]
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())

	var req models.UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("UpdateUser: invalid request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username != nil {
		username, err := ValidateUsername(*req.Username)
		if err != nil {
			h.logger.Warn("UpdateUser: invalid username", "user_id", userID)
			writeError(w, err)
			return
		}
		req.Username = &username
	}

	if err := h.store.UpdateUser(userID, &req); err != nil {
		h.logger.Error("UpdateUser: failed to update user", "error", err, "user_id", userID)
		http.Error(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil || user == nil {
		h.logger.Error("UpdateUser: failed to reload user", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetUser returns a user's public profile by id.
// @Summary Get a user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Router /api/users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		http.Error(w, "User ID required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil {
		h.logger.Error("GetUser: failed to get user", "error", err, "user_id", userID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// SearchUsers finds a user by exact phone number, for starting a chat.
// @Summary Search a user by phone
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param phone query string true "Phone number"
// @Success 200 {object} models.User
// @Router /api/users/search [get]
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	phone, err := ValidatePhone(r.URL.Query().Get("phone"))
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Debug("SearchUsers: searching by phone", "phone", phone)

	user, err := h.store.GetUserByPhone(phone)
	if err != nil {
		h.logger.Error("SearchUsers: failed to search", "error", err, "phone", phone)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
