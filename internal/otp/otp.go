// Package otp verifies phone numbers with one-time codes before registration.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"bloodlink-backend/internal/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const codeDigits = 6

var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

type Config struct {
	TTL         time.Duration
	VerifiedTTL time.Duration
	MaxAttempts int
}

type Service struct {
	store  *RedisStore
	sender Sender
	cfg    Config
	log    *zap.Logger

	generate func() (string, error)
}

func NewService(store *RedisStore, sender Sender, cfg Config, log *zap.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.VerifiedTTL <= 0 {
		cfg.VerifiedTTL = 30 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &Service{
		store:    store,
		sender:   sender,
		cfg:      cfg,
		log:      log.Named("otp"),
		generate: randomCode,
	}
}

// NormalizePhone strips formatting characters and validates the result.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(strings.TrimSpace(phone))
	if !phonePattern.MatchString(cleaned) {
		return "", apperror.Validation("phone", "phone must be 8-15 digits, optionally prefixed with +")
	}
	return cleaned, nil
}

// Send issues a fresh code for phone, replacing any pending one, and returns its id.
func (s *Service) Send(ctx context.Context, phone string) (string, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	code, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	id := uuid.NewString()
	if err := s.store.Save(ctx, phone, record{ID: id, Hash: hashCode(code)}, s.cfg.TTL); err != nil {
		return "", apperror.Upstream("redis", err)
	}

	msg := fmt.Sprintf("Your BloodLink verification code is %s. It expires in %d minutes.", code, int(s.cfg.TTL.Minutes()))
	if err := s.sender.Send(ctx, phone, msg); err != nil {
		_ = s.store.Delete(ctx, phone)
		return "", apperror.Upstream("sms", err)
	}

	s.log.Info("otp sent", zap.String("otpId", id))
	return id, nil
}

// Verify checks code against the pending one for phone. A correct code is
// single use and marks the phone verified for VerifiedTTL.
func (s *Service) Verify(ctx context.Context, phone, code string) (bool, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return false, apperror.MissingField("code")
	}

	rec, ok, err := s.store.Load(ctx, phone)
	if err != nil {
		return false, apperror.Upstream("redis", err)
	}
	if !ok {
		return false, nil
	}

	attempts, err := s.store.IncrAttempts(ctx, phone)
	if err != nil {
		return false, apperror.Upstream("redis", err)
	}
	if attempts > s.cfg.MaxAttempts {
		_ = s.store.Delete(ctx, phone)
		return false, apperror.Validation("code", "too many attempts, request a new code")
	}

	if subtle.ConstantTimeCompare([]byte(rec.Hash), []byte(hashCode(code))) != 1 {
		return false, nil
	}

	if err := s.store.Delete(ctx, phone); err != nil {
		return false, apperror.Upstream("redis", err)
	}
	if err := s.store.MarkVerified(ctx, phone, s.cfg.VerifiedTTL); err != nil {
		return false, apperror.Upstream("redis", err)
	}
	s.log.Info("otp verified", zap.String("otpId", rec.ID))
	return true, nil
}

// IsVerified reports whether phone passed verification recently.
func (s *Service) IsVerified(ctx context.Context, phone string) (bool, error) {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return false, err
	}
	ok, err := s.store.IsVerified(ctx, phone)
	if err != nil {
		return false, apperror.Upstream("redis", err)
	}
	return ok, nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func randomCode() (string, error) {
	limit := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
