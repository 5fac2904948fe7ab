package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
	"github.com/roamly/roamly/pkg/logger"
)

// SMSConfig holds the SMS challenge lifecycle parameters
type SMSConfig struct {
	CodeLength    int
	CodeTTL       time.Duration
	MaxAttempts   int
	ResendWindow  time.Duration
	DailySendCap  int
	DailySendSpan time.Duration
}

// DefaultSMSConfig returns the stock lifecycle: 6-digit codes valid 5
// minutes, 3 attempts per challenge, 60s between resends, 10 sends per day.
func DefaultSMSConfig() SMSConfig {
	return SMSConfig{
		CodeLength:    6,
		CodeTTL:       5 * time.Minute,
		MaxAttempts:   3,
		ResendWindow:  60 * time.Second,
		DailySendCap:  10,
		DailySendSpan: 24 * time.Hour,
	}
}

// SMSService handles SMS challenge issuance and verification
type SMSService struct {
	challengeRepo repositories.SMSChallengeRepository
	statusRepo    repositories.MFAStatusRepository
	sender        SMSSender
	validate      *validator.Validate
	logger        *slog.Logger
	config        SMSConfig
}

// NewSMSService creates a new SMS service
func NewSMSService(
	challengeRepo repositories.SMSChallengeRepository,
	statusRepo repositories.MFAStatusRepository,
	sender SMSSender,
	logger *slog.Logger,
	config SMSConfig,
) *SMSService {
	return &SMSService{
		challengeRepo: challengeRepo,
		statusRepo:    statusRepo,
		sender:        sender,
		validate:      validator.New(),
		logger:        logger,
		config:        config,
	}
}

// Send issues a fresh challenge to phone, superseding any previous one.
// Delivery failures roll the challenge back so no valid-looking code is left
// stranded. The resend stamp and daily counter move only after delivery
// succeeds, so a failed resend does not consume the daily budget.
func (s *SMSService) Send(ctx context.Context, userID, phone string, isResend bool) error {
	if err := s.validate.Var(phone, "required,e164"); err != nil {
		return models.ErrInvalidPhone
	}

	sent, err := s.challengeRepo.SendCount(ctx, userID)
	if err != nil {
		s.logger.Warn("sms send count read failed, allowing", slog.String("user_id", userID), slog.Any("error", err))
		sent = 0
	}
	if sent >= int64(s.config.DailySendCap) {
		return fmt.Errorf("%w: daily sms limit reached", models.ErrMFARateLimited)
	}

	if isResend {
		throttled, err := s.challengeRepo.InResendWindow(ctx, userID)
		if err != nil {
			s.logger.Warn("resend window read failed, allowing", slog.String("user_id", userID), slog.Any("error", err))
			throttled = false
		}
		if throttled {
			return fmt.Errorf("%w: please wait before requesting another code", models.ErrMFARateLimited)
		}
	}

	code, err := auth.NumericCode(s.config.CodeLength)
	if err != nil {
		s.logger.Error("failed to generate sms code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := time.Now()
	challenge := &models.SMSChallenge{
		UserID:    userID,
		Code:      code,
		Phone:     phone,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.CodeTTL),
		Attempts:  0,
		IsResend:  isResend,
	}
	if err := s.challengeRepo.Save(ctx, challenge); err != nil {
		s.logger.Error("failed to save sms challenge", slog.String("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	if _, err := s.sender.Send(ctx, phone, code); err != nil {
		if delErr := s.challengeRepo.Delete(ctx, userID); delErr != nil {
			s.logger.Error("failed to roll back sms challenge",
				slog.String("user_id", userID),
				slog.Any("error", delErr))
		}
		return fmt.Errorf("%w: %v", models.ErrSMSDeliveryFailed, err)
	}

	if err := s.challengeRepo.MarkResendWindow(ctx, userID, s.config.ResendWindow); err != nil {
		s.logger.Error("failed to mark resend window", slog.String("user_id", userID), slog.Any("error", err))
	}
	if _, err := s.challengeRepo.IncrementSendCount(ctx, userID, s.config.DailySendSpan); err != nil {
		s.logger.Error("failed to increment sms send count", slog.String("user_id", userID), slog.Any("error", err))
	}

	if err := s.markPending(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("sms challenge sent",
		slog.String("user_id", userID),
		slog.String("phone", logger.SanitizedPhone(phone)),
		slog.Bool("is_resend", isResend))
	return nil
}

// Verify checks the code against the active challenge. Stale and exhausted
// challenges are deleted on detection; the first successful verification of
// a not-yet-enabled method enables it.
func (s *SMSService) Verify(ctx context.Context, userID, code string) (*models.VerificationResult, error) {
	challenge, err := s.challengeRepo.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.VerifyFailed(models.ResultExpired, "no active verification code"), nil
	}
	if err != nil {
		s.logger.Warn("sms challenge read failed", slog.String("user_id", userID), slog.Any("error", err))
		return models.VerifyFailed(models.ResultExpired, "no active verification code"), nil
	}

	if challenge.IsExpired(time.Now()) {
		if err := s.challengeRepo.Delete(ctx, userID); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		return models.VerifyFailed(models.ResultExpired, "verification code has expired"), nil
	}

	if challenge.Attempts >= s.config.MaxAttempts {
		if err := s.challengeRepo.Delete(ctx, userID); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		return models.VerifyFailed(models.ResultTooManyAttempts, "too many attempts for this code"), nil
	}

	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		challenge.Attempts++
		if err := s.challengeRepo.Save(ctx, challenge); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		return models.VerifyFailed(models.ResultInvalidCode, "invalid verification code"), nil
	}

	if err := s.challengeRepo.Delete(ctx, userID); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return nil, err
	}
	if !status.IsEnabled(models.MethodSMS) {
		status.MarkEnabled(models.MethodSMS)
		if err := s.statusRepo.Save(ctx, status); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
		}
		s.logger.Info("sms enabled", slog.String("user_id", userID))
	}

	return models.VerifySucceeded(), nil
}

// Disable removes the method and any in-flight challenge
func (s *SMSService) Disable(ctx context.Context, userID string) error {
	if err := s.challengeRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return err
	}
	status.Remove(models.MethodSMS)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("sms disabled", slog.String("user_id", userID))
	return nil
}

func (s *SMSService) markPending(ctx context.Context, userID string) error {
	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return err
	}
	if status.IsEnabled(models.MethodSMS) {
		// Login challenge for an enrolled user; no state change.
		return nil
	}
	status.MarkPending(models.MethodSMS)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}
