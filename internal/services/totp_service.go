package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
)

// TOTPService handles TOTP enrollment and verification
type TOTPService struct {
	secretRepo repositories.TOTPSecretRepository
	statusRepo repositories.MFAStatusRepository
	totpMgr    *auth.TOTPManager
	logger     *slog.Logger
}

// NewTOTPService creates a new TOTP service
func NewTOTPService(
	secretRepo repositories.TOTPSecretRepository,
	statusRepo repositories.MFAStatusRepository,
	totpMgr *auth.TOTPManager,
	logger *slog.Logger,
) *TOTPService {
	return &TOTPService{
		secretRepo: secretRepo,
		statusRepo: statusRepo,
		totpMgr:    totpMgr,
		logger:     logger,
	}
}

// Setup generates a fresh secret for the user and marks the method pending.
// The raw secret and QR payload are returned exactly once; setup over an
// already-enabled secret is rejected.
func (s *TOTPService) Setup(ctx context.Context, userID, email string) (*models.TOTPEnrollment, error) {
	existing, err := s.secretRepo.Get(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("totp secret read failed during setup", slog.String("user_id", userID), slog.Any("error", err))
	}
	if existing != nil && existing.Enabled {
		return nil, models.ErrMFAAlreadyEnabled
	}

	enrollment, err := s.totpMgr.Generate(email)
	if err != nil {
		s.logger.Error("failed to generate totp enrollment", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	secret := &models.TOTPSecret{
		UserID:    userID,
		Secret:    enrollment.Secret,
		Enabled:   false,
		CreatedAt: time.Now(),
	}
	if err := s.secretRepo.Save(ctx, secret); err != nil {
		s.logger.Error("failed to save totp secret", slog.String("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	if err := s.markPending(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info("totp setup initiated", slog.String("user_id", userID))
	return enrollment, nil
}

// Verify checks the code against the stored secret. The first successful
// verification of a pending secret enables the method.
func (s *TOTPService) Verify(ctx context.Context, userID, code string) (*models.VerificationResult, error) {
	secret, err := s.secretRepo.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.VerifyFailed(models.ResultNotSetUp, "totp is not set up"), nil
	}
	if err != nil {
		// A secret we cannot read is a code we cannot accept.
		s.logger.Warn("totp secret read failed", slog.String("user_id", userID), slog.Any("error", err))
		return models.VerifyFailed(models.ResultNotSetUp, "totp is not set up"), nil
	}

	if !s.totpMgr.Validate(code, secret.Secret) {
		return models.VerifyFailed(models.ResultInvalidCode, "invalid verification code"), nil
	}

	if !secret.Enabled {
		if err := s.enable(ctx, secret); err != nil {
			return nil, err
		}
	}
	return models.VerifySucceeded(), nil
}

// Enable validates the code and flips the secret to enabled
func (s *TOTPService) Enable(ctx context.Context, userID, code string) error {
	secret, err := s.secretRepo.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrMFANotSetUp
	}
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if secret.Enabled {
		return models.ErrMFAAlreadyEnabled
	}
	if !s.totpMgr.Validate(code, secret.Secret) {
		return models.ErrMFAInvalidCode
	}
	return s.enable(ctx, secret)
}

// Disable deletes the secret unconditionally and drops the method from the
// user's status record.
func (s *TOTPService) Disable(ctx context.Context, userID string) error {
	if err := s.secretRepo.Delete(ctx, userID); err != nil {
		s.logger.Error("failed to delete totp secret", slog.String("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return err
	}
	status.Remove(models.MethodTOTP)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("totp disabled", slog.String("user_id", userID))
	return nil
}

func (s *TOTPService) enable(ctx context.Context, secret *models.TOTPSecret) error {
	now := time.Now()
	secret.Enabled = true
	secret.EnabledAt = &now
	if err := s.secretRepo.Save(ctx, secret); err != nil {
		s.logger.Error("failed to enable totp secret", slog.String("user_id", secret.UserID), slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, secret.UserID)
	if err != nil {
		return err
	}
	status.MarkEnabled(models.MethodTOTP)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("totp enabled", slog.String("user_id", secret.UserID))
	return nil
}

func (s *TOTPService) markPending(ctx context.Context, userID string) error {
	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return err
	}
	status.MarkPending(models.MethodTOTP)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// loadOrInitStatus fetches the user's status record, falling back to the
// implicit disabled default when none exists yet.
func loadOrInitStatus(ctx context.Context, repo repositories.MFAStatusRepository, userID string) (*models.MFAStatus, error) {
	status, err := repo.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewMFAStatus(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return status, nil
}
