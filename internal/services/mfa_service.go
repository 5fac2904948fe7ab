package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
)

// MFAService is the unified verification entry point and status view. It
// owns the attempt-limiting sequence; the per-method subsystems own their
// record lifecycles.
type MFAService struct {
	statusRepo repositories.MFAStatusRepository
	limiter    *AttemptLimiter
	totp       *TOTPService
	sms        *SMSService
	backup     *BackupCodeService
	logger     *slog.Logger
}

// NewMFAService creates a new MFA orchestrator
func NewMFAService(
	statusRepo repositories.MFAStatusRepository,
	limiter *AttemptLimiter,
	totp *TOTPService,
	sms *SMSService,
	backup *BackupCodeService,
	logger *slog.Logger,
) *MFAService {
	return &MFAService{
		statusRepo: statusRepo,
		limiter:    limiter,
		totp:       totp,
		sms:        sms,
		backup:     backup,
		logger:     logger,
	}
}

// GetStatus returns the user's enrollment record augmented with the live
// remaining-backup-code count. A missing or unreadable record reads as
// disabled.
func (s *MFAService) GetStatus(ctx context.Context, userID string) *models.StatusInfo {
	status, err := s.statusRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("mfa status read failed, defaulting to disabled",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
		status = models.NewMFAStatus(userID)
	}

	return &models.StatusInfo{
		Status:           status.Status,
		EnabledMethods:   status.EnabledMethods,
		PendingMethods:   status.PendingMethods,
		RemainingBackups: s.backup.Remaining(ctx, userID),
	}
}

// Verify runs the limiting sequence around the method's own check: exceeded
// counters short-circuit, the attempt is counted in both windows before any
// code is examined, a success clears the short window, and a wrong code
// costs one extra short-window increment.
func (s *MFAService) Verify(ctx context.Context, userID, code string, method models.Method) *models.VerificationResult {
	if !method.Valid() {
		return models.VerifyFailed(models.ResultInvalidCode, "unknown verification method")
	}

	if s.limiter.IsExceeded(ctx, userID, method) {
		return models.VerifyFailed(models.ResultTooManyAttempts, "too many verification attempts")
	}

	if err := s.limiter.RecordAttempt(ctx, userID, method); err != nil {
		s.logger.Error("failed to count verification attempt",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
		return models.VerifyFailed(models.ResultStoreUnavailable, "verification is temporarily unavailable")
	}

	result, err := s.dispatch(ctx, userID, code, method)
	if err != nil {
		s.logger.Error("verification dispatch failed",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
		if errors.Is(err, models.ErrStoreUnavailable) {
			return models.VerifyFailed(models.ResultStoreUnavailable, "verification is temporarily unavailable")
		}
		return models.VerifyFailed(models.ResultInvalidCode, "invalid verification code")
	}

	if result.Success {
		s.limiter.Reset(ctx, userID, method)
		s.logger.Info("verification succeeded",
			slog.String("user_id", userID),
			slog.String("method", string(method)))
		return result
	}

	if result.Result == models.ResultInvalidCode {
		s.limiter.RecordFailure(ctx, userID, method)
	}
	s.logger.Info("verification failed",
		slog.String("user_id", userID),
		slog.String("method", string(method)),
		slog.String("result", string(result.Result)))
	return result
}

func (s *MFAService) dispatch(ctx context.Context, userID, code string, method models.Method) (*models.VerificationResult, error) {
	switch method {
	case models.MethodTOTP:
		return s.totp.Verify(ctx, userID, code)
	case models.MethodSMS:
		return s.sms.Verify(ctx, userID, code)
	case models.MethodBackupCode:
		return s.backup.Verify(ctx, userID, code)
	}
	return nil, models.ErrBadRequest
}
