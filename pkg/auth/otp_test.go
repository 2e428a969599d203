package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ezchat/ezchat/pkg/models"
)

type fakeCodeStore struct {
	codes    map[string]string
	attempts map[string]int64
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{
		codes:    make(map[string]string),
		attempts: make(map[string]int64),
	}
}

func (s *fakeCodeStore) SetOTPCode(phone, code string, ttl time.Duration) error {
	s.codes[phone] = code
	s.attempts[phone] = 0
	return nil
}

func (s *fakeCodeStore) GetOTPCode(phone string) (string, error) {
	return s.codes[phone], nil
}

func (s *fakeCodeStore) DeleteOTPCode(phone string) error {
	delete(s.codes, phone)
	return nil
}

func (s *fakeCodeStore) IncrementOTPAttempts(phone string, ttl time.Duration) (int64, error) {
	s.attempts[phone]++
	return s.attempts[phone], nil
}

type captureSender struct {
	phone string
	code  string
	fail  bool
}

func (s *captureSender) SendCode(phone, code string) error {
	if s.fail {
		return errors.New("gateway down")
	}
	s.phone = phone
	s.code = code
	return nil
}

func newTestOTPManager(t *testing.T) (*OTPManager, *fakeCodeStore, *captureSender) {
	t.Helper()
	store := newFakeCodeStore()
	sender := &captureSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOTPManager(store, sender, 5*time.Minute, 6, 3, logger), store, sender
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	m, _, sender := newTestOTPManager(t)

	if err := m.Issue("+14155552671"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if sender.phone != "+14155552671" {
		t.Fatalf("expected code sent to the requested phone, got %q", sender.phone)
	}
	if len(sender.code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", sender.code)
	}
	for _, r := range sender.code {
		if r < '0' || r > '9' {
			t.Fatalf("expected numeric code, got %q", sender.code)
		}
	}

	if err := m.Verify("+14155552671", sender.code); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyConsumesCode(t *testing.T) {
	m, _, sender := newTestOTPManager(t)

	if err := m.Issue("+14155552671"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := m.Verify("+14155552671", sender.code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The same code cannot be replayed
	if err := m.Verify("+14155552671", sender.code); !errors.Is(err, models.ErrAuthentication) {
		t.Fatalf("expected replay to fail with authentication error, got %v", err)
	}
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	m, store, sender := newTestOTPManager(t)

	if err := m.Issue("+14155552671"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := m.Verify("+14155552671", "000000"); !errors.Is(err, models.ErrAuthentication) {
		t.Fatalf("expected authentication error, got %v", err)
	}

	// The right code still works after one miss
	if err := m.Verify("+14155552671", sender.code); err != nil {
		t.Fatalf("verify after one miss: %v", err)
	}
	if _, ok := store.codes["+14155552671"]; ok {
		t.Fatalf("expected code consumed after success")
	}
}

func TestVerifyWithoutOutstandingCode(t *testing.T) {
	m, _, _ := newTestOTPManager(t)

	if err := m.Verify("+14155552671", "123456"); !errors.Is(err, models.ErrAuthentication) {
		t.Fatalf("expected authentication error for unknown phone, got %v", err)
	}
}

func TestVerifyLocksOutAfterMaxAttempts(t *testing.T) {
	m, store, sender := newTestOTPManager(t)

	if err := m.Issue("+14155552671"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := m.Verify("+14155552671", "000000"); !errors.Is(err, models.ErrAuthentication) {
			t.Fatalf("attempt %d: expected authentication error, got %v", i+1, err)
		}
	}

	// Even the correct code is refused once the budget is spent
	if err := m.Verify("+14155552671", sender.code); !errors.Is(err, models.ErrAuthentication) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if _, ok := store.codes["+14155552671"]; ok {
		t.Fatalf("expected code invalidated on lockout")
	}
}

func TestReissueReplacesOutstandingCode(t *testing.T) {
	m, _, sender := newTestOTPManager(t)

	if err := m.Issue("+14155552671"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	first := sender.code

	if err := m.Issue("+14155552671"); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	second := sender.code

	if first == second {
		// Codes are random; a collision here is astronomically unlikely
		t.Fatalf("expected a fresh code on reissue")
	}
	if err := m.Verify("+14155552671", first); !errors.Is(err, models.ErrAuthentication) {
		t.Fatalf("expected stale code to be rejected, got %v", err)
	}
	if err := m.Verify("+14155552671", second); err != nil {
		t.Fatalf("verify fresh code: %v", err)
	}
}

func TestIssueFailsWhenSenderDown(t *testing.T) {
	m, _, sender := newTestOTPManager(t)
	sender.fail = true

	if err := m.Issue("+14155552671"); !errors.Is(err, models.ErrBackendUnavailable) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
