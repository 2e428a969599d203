package handlers

import (
	"errors"
	"testing"

	"github.com/ezchat/ezchat/pkg/models"
)

func TestValidatePhone(t *testing.T) {
	valid := []string{"+14155552671", "14155552671", "+919876543210", "1234567"}
	for _, phone := range valid {
		got, err := ValidatePhone(phone)
		if err != nil {
			t.Fatalf("phone %q: unexpected error %v", phone, err)
		}
		if got != phone {
			t.Fatalf("phone %q: got %q back", phone, got)
		}
	}

	invalid := []string{"", "123456", "+1234567890123456", "555-0100", "+1 415 555", "abcdefgh"}
	for _, phone := range invalid {
		if _, err := ValidatePhone(phone); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("phone %q: expected validation error, got %v", phone, err)
		}
	}
}

func TestValidatePhoneTrimsWhitespace(t *testing.T) {
	got, err := ValidatePhone("  +14155552671  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "+14155552671" {
		t.Fatalf("expected trimmed phone, got %q", got)
	}
}

func TestValidateUsername(t *testing.T) {
	if _, err := ValidateUsername("ab"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected short username to be rejected, got %v", err)
	}
	if _, err := ValidateUsername("  a  "); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected whitespace-padded short username to be rejected, got %v", err)
	}

	got, err := ValidateUsername("  bob  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "bob" {
		t.Fatalf("expected trimmed username, got %q", got)
	}
}

func TestValidateMessageContent(t *testing.T) {
	for _, content := range []string{"", "   ", "\n\t"} {
		if _, err := ValidateMessageContent(content); !errors.Is(err, models.ErrValidation) {
			t.Fatalf("content %q: expected validation error, got %v", content, err)
		}
	}

	got, err := ValidateMessageContent("hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello there" {
		t.Fatalf("expected content unchanged, got %q", got)
	}
}
