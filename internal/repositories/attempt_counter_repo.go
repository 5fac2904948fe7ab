package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/store"
)

// AttemptCounterRepository tracks verification attempts per user, method and
// window. Counters live entirely in the store; the TTL is the window.
type AttemptCounterRepository interface {
	// Increment bumps the counter and (re)arms its window atomically,
	// returning the count after the increment.
	Increment(ctx context.Context, userID string, method models.Method, window models.CounterWindow, ttl time.Duration) (int64, error)
	Count(ctx context.Context, userID string, method models.Method, window models.CounterWindow) (int64, error)
	// Reset clears a counter, typically the short window after a successful
	// verification. Daily counters are left to age out on their own.
	Reset(ctx context.Context, userID string, method models.Method, window models.CounterWindow) error
}

type attemptCounterRepoImpl struct {
	kv store.KVStore
}

// NewAttemptCounterRepository creates an attempt counter repository over the shared store
func NewAttemptCounterRepository(kv store.KVStore) AttemptCounterRepository {
	return &attemptCounterRepoImpl{kv: kv}
}

func attemptKey(userID string, method models.Method, window models.CounterWindow) string {
	return fmt.Sprintf("mfa:attempts:%s:%s:%s", method, userID, window)
}

func (r *attemptCounterRepoImpl) Increment(ctx context.Context, userID string, method models.Method, window models.CounterWindow, ttl time.Duration) (int64, error) {
	count, err := r.kv.IncrementWithTTL(ctx, attemptKey(userID, method, window), ttl)
	if err != nil {
		return 0, fmt.Errorf("failed to increment attempt counter: %w", err)
	}
	return count, nil
}

func (r *attemptCounterRepoImpl) Count(ctx context.Context, userID string, method models.Method, window models.CounterWindow) (int64, error) {
	raw, err := r.kv.Get(ctx, attemptKey(userID, method, window))
	if errors.Is(err, store.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load attempt counter: %w", err)
	}

	count, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse attempt counter: %w", err)
	}
	return count, nil
}

func (r *attemptCounterRepoImpl) Reset(ctx context.Context, userID string, method models.Method, window models.CounterWindow) error {
	if err := r.kv.Delete(ctx, attemptKey(userID, method, window)); err != nil {
		return fmt.Errorf("failed to reset attempt counter: %w", err)
	}
	return nil
}
