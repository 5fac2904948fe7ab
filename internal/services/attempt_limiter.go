package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
)

// LimitConfig holds the per-method attempt budgets and the two window sizes
type LimitConfig struct {
	TOTPMaxAttempts   int
	SMSMaxAttempts    int
	BackupMaxAttempts int
	SMSDailyCap       int
	DefaultDailyCap   int
	ShortWindow       time.Duration
	DailyWindow       time.Duration
}

// DefaultLimitConfig returns the stock budgets: 3 short-window attempts for
// TOTP and SMS, a single attempt for backup codes, 10/day for SMS and 20/day
// otherwise.
func DefaultLimitConfig() LimitConfig {
	return LimitConfig{
		TOTPMaxAttempts:   3,
		SMSMaxAttempts:    3,
		BackupMaxAttempts: 1,
		SMSDailyCap:       10,
		DefaultDailyCap:   20,
		ShortWindow:       time.Hour,
		DailyWindow:       24 * time.Hour,
	}
}

// AttemptLimiter enforces the per-method verification budgets. Reads fail
// open (a store outage must not lock every user out); writes fail closed (an
// attempt that cannot be counted is not allowed to proceed).
type AttemptLimiter struct {
	counterRepo repositories.AttemptCounterRepository
	logger      *slog.Logger
	config      LimitConfig
}

// NewAttemptLimiter creates a new attempt limiter
func NewAttemptLimiter(counterRepo repositories.AttemptCounterRepository, logger *slog.Logger, config LimitConfig) *AttemptLimiter {
	return &AttemptLimiter{
		counterRepo: counterRepo,
		logger:      logger,
		config:      config,
	}
}

func (l *AttemptLimiter) shortMax(method models.Method) int {
	switch method {
	case models.MethodTOTP:
		return l.config.TOTPMaxAttempts
	case models.MethodSMS:
		return l.config.SMSMaxAttempts
	case models.MethodBackupCode:
		return l.config.BackupMaxAttempts
	}
	return l.config.TOTPMaxAttempts
}

func (l *AttemptLimiter) dailyMax(method models.Method) int {
	if method == models.MethodSMS {
		return l.config.SMSDailyCap
	}
	return l.config.DefaultDailyCap
}

// IsExceeded reports whether the user has exhausted either window for the
// method. Counter reads that fail are treated as zero.
func (l *AttemptLimiter) IsExceeded(ctx context.Context, userID string, method models.Method) bool {
	short, err := l.counterRepo.Count(ctx, userID, method, models.WindowShort)
	if err != nil {
		l.logger.Warn("attempt counter read failed, allowing",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
		short = 0
	}
	if short >= int64(l.shortMax(method)) {
		return true
	}

	daily, err := l.counterRepo.Count(ctx, userID, method, models.WindowDaily)
	if err != nil {
		l.logger.Warn("attempt counter read failed, allowing",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
		daily = 0
	}
	return daily >= int64(l.dailyMax(method))
}

// RecordAttempt counts the attempt in both windows before any code is
// checked. A failed write aborts the verification.
func (l *AttemptLimiter) RecordAttempt(ctx context.Context, userID string, method models.Method) error {
	if _, err := l.counterRepo.Increment(ctx, userID, method, models.WindowShort, l.config.ShortWindow); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	if _, err := l.counterRepo.Increment(ctx, userID, method, models.WindowDaily, l.config.DailyWindow); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

// RecordFailure adds the extra short-window penalty for a wrong code.
// Best effort: the attempt itself was already counted.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, userID string, method models.Method) {
	if _, err := l.counterRepo.Increment(ctx, userID, method, models.WindowShort, l.config.ShortWindow); err != nil {
		l.logger.Error("failed to record failed attempt",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
	}
}

// Reset clears the short-window counter after a successful verification.
// The daily counter keeps running so the day cap still holds.
func (l *AttemptLimiter) Reset(ctx context.Context, userID string, method models.Method) {
	if err := l.counterRepo.Reset(ctx, userID, method, models.WindowShort); err != nil {
		l.logger.Error("failed to reset attempt counter",
			slog.String("user_id", userID),
			slog.String("method", string(method)),
			slog.Any("error", err))
	}
}
