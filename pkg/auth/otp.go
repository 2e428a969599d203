package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ezchat/ezchat/pkg/models"
)

// CodeStore holds issued one-time codes until they expire or are consumed.
type CodeStore interface {
	SetOTPCode(phone, code string, ttl time.Duration) error
	GetOTPCode(phone string) (string, error)
	DeleteOTPCode(phone string) error
	IncrementOTPAttempts(phone string, ttl time.Duration) (int64, error)
}

// Sender delivers a code out-of-band. Production wires an SMS gateway; the
// dev sender just logs.
type Sender interface {
	SendCode(phone, code string) error
}

type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) SendCode(phone, code string) error {
	s.Logger.Info("OTP code issued", "phone", phone, "code", code)
	return nil
}

type OTPManager struct {
	store       CodeStore
	sender      Sender
	codeTTL     time.Duration
	codeLength  int
	maxAttempts int64
	logger      *slog.Logger
}

func NewOTPManager(store CodeStore, sender Sender, codeTTL time.Duration, codeLength, maxAttempts int, logger *slog.Logger) *OTPManager {
	if codeLength <= 0 {
		codeLength = 6
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &OTPManager{
		store:       store,
		sender:      sender,
		codeTTL:     codeTTL,
		codeLength:  codeLength,
		maxAttempts: int64(maxAttempts),
		logger:      logger,
	}
}

// Issue generates a fresh code for the phone number, stores it with a TTL
// and hands it to the sender. Re-issuing replaces any outstanding code.
func (m *OTPManager) Issue(phone string) error {
	code, err := m.generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if err := m.store.SetOTPCode(phone, code, m.codeTTL); err != nil {
		m.logger.Error("Failed to store OTP code", "error", err, "phone", phone)
		return fmt.Errorf("store code: %w", models.ErrBackendUnavailable)
	}

	if err := m.sender.SendCode(phone, code); err != nil {
		m.logger.Error("Failed to send OTP code", "error", err, "phone", phone)
		return fmt.Errorf("send code: %w", models.ErrBackendUnavailable)
	}

	m.logger.Info("OTP issued", "phone", phone, "ttl", m.codeTTL)
	return nil
}

// Verify checks a submitted code against the stored one. The code is
// consumed on success; too many failed attempts invalidate it.
func (m *OTPManager) Verify(phone, code string) error {
	attempts, err := m.store.IncrementOTPAttempts(phone, m.codeTTL)
	if err != nil {
		m.logger.Error("Failed to count OTP attempt", "error", err, "phone", phone)
		return fmt.Errorf("count attempt: %w", models.ErrBackendUnavailable)
	}
	if attempts > m.maxAttempts {
		m.logger.Warn("Too many OTP attempts", "phone", phone, "attempts", attempts)
		m.store.DeleteOTPCode(phone)
		return fmt.Errorf("too many attempts: %w", models.ErrAuthentication)
	}

	stored, err := m.store.GetOTPCode(phone)
	if err != nil {
		m.logger.Error("Failed to read OTP code", "error", err, "phone", phone)
		return fmt.Errorf("read code: %w", models.ErrBackendUnavailable)
	}
	if stored == "" {
		m.logger.Warn("No outstanding OTP code", "phone", phone)
		return fmt.Errorf("code expired or never issued: %w", models.ErrAuthentication)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		m.logger.Warn("OTP code mismatch", "phone", phone, "attempts", attempts)
		return fmt.Errorf("invalid code: %w", models.ErrAuthentication)
	}

	if err := m.store.DeleteOTPCode(phone); err != nil {
		m.logger.Error("Failed to consume OTP code", "error", err, "phone", phone)
	}

	m.logger.Info("OTP verified", "phone", phone)
	return nil
}

func (m *OTPManager) generateCode() (string, error) {
	digits := make([]byte, m.codeLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
