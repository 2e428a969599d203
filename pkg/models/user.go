package models

import (
	"time"
)

type User struct {
	ID         string    `json:"id" db:"id"`
	Phone      string    `json:"phone" db:"phone"`
	Username   string    `json:"username" db:"username"`
	ProfilePic *string   `json:"profile_pic,omitempty" db:"profile_pic"`
	PushToken  *string   `json:"push_token,omitempty" db:"push_token"`
	LastSeen   time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type UserSession struct {
	UserID     string    `json:"user_id" db:"user_id"`
	SessionID  string    `json:"session_id" db:"session_id"`
	DeviceInfo string    `json:"device_info,omitempty" db:"device_info"`
	IPAddress  string    `json:"ip_address,omitempty" db:"ip_address"`
	LastActive time.Time `json:"last_active" db:"last_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	IsActive   bool      `json:"is_active" db:"is_active"`
}

// SessionState is the flat key-value session record kept in Redis for the
// lifetime of a login. It is written on verify and cleared wholesale on logout.
type SessionState struct {
	LoggedIn bool   `json:"logged_in"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type OTPRequest struct {
	Phone string `json:"phone"`
}

type VerifyRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UserUpdateRequest struct {
	Username   *string `json:"username,omitempty"`
	ProfilePic *string `json:"profile_pic,omitempty"`
	PushToken  *string `json:"push_token,omitempty"`
}
