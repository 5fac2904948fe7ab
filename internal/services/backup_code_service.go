package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
)

// BackupCodeConfig holds the backup-code set parameters
type BackupCodeConfig struct {
	CodeCount  int
	CodeLength int
}

// DefaultBackupCodeConfig returns the stock set shape: 10 codes of 8 chars
func DefaultBackupCodeConfig() BackupCodeConfig {
	return BackupCodeConfig{CodeCount: 10, CodeLength: 8}
}

// BackupCodeService handles single-use recovery code sets. A set is
// single-generation: regeneration replaces it wholesale and every prior code
// dies with it.
type BackupCodeService struct {
	codeRepo   repositories.BackupCodeRepository
	statusRepo repositories.MFAStatusRepository
	logger     *slog.Logger
	config     BackupCodeConfig
}

// NewBackupCodeService creates a new backup code service
func NewBackupCodeService(
	codeRepo repositories.BackupCodeRepository,
	statusRepo repositories.MFAStatusRepository,
	logger *slog.Logger,
	config BackupCodeConfig,
) *BackupCodeService {
	return &BackupCodeService{
		codeRepo:   codeRepo,
		statusRepo: statusRepo,
		logger:     logger,
		config:     config,
	}
}

// Setup generates a fresh set and marks the method pending. The plaintext
// codes are returned exactly once; setup over an enabled set is rejected.
func (s *BackupCodeService) Setup(ctx context.Context, userID string) ([]string, error) {
	existing, err := s.codeRepo.Get(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("backup code read failed during setup", slog.String("user_id", userID), slog.Any("error", err))
	}
	if existing != nil && existing.Enabled {
		return nil, models.ErrMFAAlreadyEnabled
	}

	codes, err := s.store(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return nil, err
	}
	status.MarkPending(models.MethodBackupCode)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("backup codes generated", slog.String("user_id", userID))
	return codes, nil
}

// Verify consumes the first unused entry matching the normalized code and
// writes the whole set back. Returns the count of codes still unused.
func (s *BackupCodeService) Verify(ctx context.Context, userID, code string) (*models.VerificationResult, error) {
	set, err := s.codeRepo.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.VerifyFailed(models.ResultNotSetUp, "backup codes are not set up"), nil
	}
	if err != nil {
		s.logger.Warn("backup code read failed", slog.String("user_id", userID), slog.Any("error", err))
		return models.VerifyFailed(models.ResultNotSetUp, "backup codes are not set up"), nil
	}

	normalized := normalizeBackupCode(code)
	match := -1
	for i, entry := range set.Codes {
		if !entry.Used && entry.Code == normalized {
			match = i
			break
		}
	}
	if match < 0 {
		return models.VerifyFailed(models.ResultInvalidCode, "invalid backup code"), nil
	}

	now := time.Now()
	set.Codes[match].Used = true
	set.Codes[match].UsedAt = &now
	set.LastUsedAt = &now
	if err := s.codeRepo.Save(ctx, set); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	remaining := set.Remaining()
	s.logger.Info("backup code consumed",
		slog.String("user_id", userID),
		slog.Int("remaining", remaining))

	result := models.VerifySucceeded()
	result.RemainingCodes = &remaining
	return result, nil
}

// Enable flips an existing set to enabled
func (s *BackupCodeService) Enable(ctx context.Context, userID string) error {
	set, err := s.codeRepo.Get(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrMFANotSetUp
	}
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if set.Enabled {
		return models.ErrMFAAlreadyEnabled
	}

	now := time.Now()
	set.Enabled = true
	set.EnabledAt = &now
	if err := s.codeRepo.Save(ctx, set); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return err
	}
	status.MarkEnabled(models.MethodBackupCode)
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("backup codes enabled", slog.String("user_id", userID))
	return nil
}

// Regenerate replaces the set unconditionally. If the method was already
// enabled the new set stays enabled, so regeneration never drops the user
// out of MFA.
func (s *BackupCodeService) Regenerate(ctx context.Context, userID string) ([]string, error) {
	existing, err := s.codeRepo.Get(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("backup code read failed during regenerate", slog.String("user_id", userID), slog.Any("error", err))
	}
	wasEnabled := existing != nil && existing.Enabled

	codes, err := s.store(ctx, userID, wasEnabled)
	if err != nil {
		return nil, err
	}

	status, err := loadOrInitStatus(ctx, s.statusRepo, userID)
	if err != nil {
		return nil, err
	}
	if wasEnabled {
		status.MarkEnabled(models.MethodBackupCode)
	} else {
		status.MarkPending(models.MethodBackupCode)
	}
	if err := s.statusRepo.Save(ctx, status); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	s.logger.Info("backup codes regenerated",
		slog.String("user_id", userID),
		slog.Bool("auto_enabled", wasEnabled))
	return codes, nil
}

// Remaining returns the unused-code count, zero when no set exists or the
// read fails.
func (s *BackupCodeService) Remaining(ctx context.Context, userID string) int {
	set, err := s.codeRepo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("backup code read failed", slog.String("user_id", userID), slog.Any("error", err))
		}
		return 0
	}
	return set.Remaining()
}

// store generates a fresh unique set and persists it
func (s *BackupCodeService) store(ctx context.Context, userID string, enabled bool) ([]string, error) {
	codes := make([]string, 0, s.config.CodeCount)
	seen := make(map[string]bool, s.config.CodeCount)
	for len(codes) < s.config.CodeCount {
		code, err := auth.AlphanumericCode(s.config.CodeLength)
		if err != nil {
			s.logger.Error("failed to generate backup code", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}

	now := time.Now()
	set := &models.BackupCodeSet{
		UserID:    userID,
		Codes:     make([]models.BackupCode, len(codes)),
		Enabled:   enabled,
		CreatedAt: now,
	}
	if enabled {
		set.EnabledAt = &now
	}
	for i, code := range codes {
		set.Codes[i] = models.BackupCode{Code: code}
	}

	if err := s.codeRepo.Save(ctx, set); err != nil {
		s.logger.Error("failed to save backup codes", slog.String("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return codes, nil
}

// normalizeBackupCode strips all whitespace and uppercases user input
func normalizeBackupCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}
