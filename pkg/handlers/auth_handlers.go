package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ezchat/ezchat/pkg/auth"
	"github.com/ezchat/ezchat/pkg/models"
	"github.com/ezchat/ezchat/pkg/store"
)

type AuthHandler struct {
	store      *store.Store
	otp        *auth.OTPManager
	sessionTTL time.Duration
	logger     *slog.Logger
}

func NewAuthHandler(store *store.Store, otp *auth.OTPManager, sessionTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, otp: otp, sessionTTL: sessionTTL, logger: logger}
}

// RequestOTP issues a one-time code for a phone number.
// @Summary Request a one-time login code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.OTPRequest true "Phone number"
// @Success 200 {object} map[string]string
// @Router /api/auth/otp [post]
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req models.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("RequestOTP: invalid request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	phone, err := ValidatePhone(req.Phone)
	if err != nil {
		h.logger.Warn("RequestOTP: invalid phone number", "phone", req.Phone)
		writeError(w, err)
		return
	}

	h.logger.Info("RequestOTP: issuing code", "phone", phone)

	if err := h.otp.Issue(phone); err != nil {
		h.logger.Error("RequestOTP: failed to issue code", "error", err, "phone", phone)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Code sent",
	})
}

// VerifyOTP verifies a submitted code, creating the user on first login.
// @Summary Verify a one-time code and log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.VerifyRequest true "Phone number and code"
// @Success 200 {object} models.AuthResponse
// @Failure 401 {string} string "invalid or expired code"
// @Router /api/auth/verify [post]
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("VerifyOTP: invalid request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	phone, err := ValidatePhone(req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("VerifyOTP: verifying code", "phone", phone)

	if err := h.otp.Verify(phone, strings.TrimSpace(req.Code)); err != nil {
		h.logger.Warn("VerifyOTP: verification failed", "error", err, "phone", phone)
		writeError(w, err)
		return
	}

	// Verified: map the phone number to its user, creating on first login
	user, err := h.store.GetUserByPhone(phone)
	if err != nil {
		h.logger.Error("VerifyOTP: failed to look up user", "error", err, "phone", phone)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		user = &models.User{
			Phone:    phone,
			Username: phone, // placeholder until the profile screen sets one
		}
		if err := h.store.CreateUser(user); err != nil {
			h.logger.Error("VerifyOTP: failed to create user", "error", err, "phone", phone)
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
		h.logger.Info("VerifyOTP: new user created", "user_id", user.ID, "phone", phone)
	} else {
		h.store.UpdateUserLastSeen(user.ID, time.Now())
	}

	// Create session
	sessionID := uuid.New().String()
	deviceInfo := r.UserAgent()
	ipAddress := getIPAddress(r)

	if err := h.store.CreateUserSession(user.ID, sessionID, deviceInfo, ipAddress); err != nil {
		h.logger.Error("VerifyOTP: failed to create session",
			"error", err, "user_id", user.ID, "session_id", sessionID)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	// Persist the flat session state; cleared wholesale on logout
	state := models.SessionState{
		LoggedIn: true,
		Phone:    user.Phone,
		Username: user.Username,
	}
	if err := h.store.SaveSessionState(sessionID, state, h.sessionTTL); err != nil {
		h.logger.Error("VerifyOTP: failed to save session state",
			"error", err, "session_id", sessionID)
	}

	token, expiresAt, err := auth.GenerateJWT(user.ID, sessionID)
	if err != nil {
		h.logger.Error("VerifyOTP: failed to generate JWT", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("VerifyOTP: successful",
		"user_id", user.ID, "session_id", sessionID, "expires_at", expiresAt)

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:     token,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

// Logout revokes the session and clears its key-value state.
// @Summary Log out
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := auth.GetSessionID(r.Context())
	if sessionID == "" {
		h.logger.Warn("Logout: no session ID in context")
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	h.logger.Info("Logout: processing logout", "session_id", sessionID)

	if err := h.store.ClearSessionState(sessionID); err != nil {
		h.logger.Error("Logout: failed to clear session state", "error", err, "session_id", sessionID)
	}

	if err := h.store.DeleteSession(sessionID); err != nil {
		h.logger.Error("Logout: failed to delete session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to logout", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Logout: successful", "session_id", sessionID)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Logged out successfully",
	})
}

// RefreshToken exchanges a still-valid token for a fresh one with a new
// expiry window.
// @Summary Refresh the session token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AuthResponse
// @Router /api/auth/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" || token == authHeader {
		http.Error(w, "Authorization header required", http.StatusUnauthorized)
		return
	}

	refreshed, expiresAt, err := auth.RefreshJWT(token)
	if err != nil {
		h.logger.Warn("RefreshToken: refresh failed", "error", err)
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	userID := auth.GetUserID(r.Context())
	user, err := h.store.GetUserByID(userID)
	if err != nil || user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:     refreshed,
		User:      *user,
		ExpiresAt: expiresAt,
	})
}

// Verify returns the logged-in user for a valid token.
// @Summary Verify the current session
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /api/auth/session [get]
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if userID == "" {
		h.logger.Warn("Verify: no user ID in context")
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	// A token outlives logout; the session state record does not
	sessionID := auth.GetSessionID(r.Context())
	state, err := h.store.GetSessionState(sessionID)
	if err != nil {
		h.logger.Error("Verify: failed to read session state", "error", err, "session_id", sessionID)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if state == nil || !state.LoggedIn {
		http.Error(w, "Session expired", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetUserByID(userID)
	if err != nil || user == nil {
		h.logger.Error("Verify: failed to get user", "error", err, "user_id", userID)
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
