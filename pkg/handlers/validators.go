package handlers

import (
	"fmt"
	"strings"

	"github.com/ezchat/ezchat/pkg/models"
)

const minUsernameLength = 3

// ValidatePhone accepts E.164-style numbers: optional leading +, 7 to 15
// digits.
func ValidatePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)

	digits := phone
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if len(digits) < 7 || len(digits) > 15 {
		return "", fmt.Errorf("phone number must have 7 to 15 digits: %w", models.ErrValidation)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("phone number may contain only digits: %w", models.ErrValidation)
		}
	}

	return phone, nil
}

func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLength {
		return "", fmt.Errorf("username must be at least %d characters: %w", minUsernameLength, models.ErrValidation)
	}
	return username, nil
}

func ValidateMessageContent(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("message text must not be empty: %w", models.ErrValidation)
	}
	return content, nil
}
