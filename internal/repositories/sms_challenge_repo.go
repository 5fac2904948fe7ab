package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/store"
)

// SMSChallengeRepository holds the single active challenge per user plus the
// two send-side throttle keys (daily cap and resend window).
type SMSChallengeRepository interface {
	Get(ctx context.Context, userID string) (*models.SMSChallenge, error)
	Save(ctx context.Context, challenge *models.SMSChallenge) error
	Delete(ctx context.Context, userID string) error

	// IncrementSendCount bumps the rolling daily send counter and returns
	// the new count. The window is armed on every send.
	IncrementSendCount(ctx context.Context, userID string, window time.Duration) (int64, error)
	SendCount(ctx context.Context, userID string) (int64, error)

	// MarkResendWindow arms the minimum-interval marker between sends.
	MarkResendWindow(ctx context.Context, userID string, window time.Duration) error
	InResendWindow(ctx context.Context, userID string) (bool, error)
}

type smsChallengeRepoImpl struct {
	kv store.KVStore
}

// NewSMSChallengeRepository creates an SMS challenge repository over the shared store
func NewSMSChallengeRepository(kv store.KVStore) SMSChallengeRepository {
	return &smsChallengeRepoImpl{kv: kv}
}

func smsChallengeKey(userID string) string {
	return "mfa:sms:" + userID
}

func smsSentKey(userID string) string {
	return "mfa:sms:sent:" + userID
}

func smsResendKey(userID string) string {
	return "mfa:sms:resend:" + userID
}

func (r *smsChallengeRepoImpl) Get(ctx context.Context, userID string) (*models.SMSChallenge, error) {
	raw, err := r.kv.Get(ctx, smsChallengeKey(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sms challenge: %w", err)
	}

	var challenge models.SMSChallenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode sms challenge: %w", err)
	}
	return &challenge, nil
}

// Save stores the challenge with a TTL matching its expiry so abandoned
// challenges reap themselves. Sending a new code overwrites the old record,
// which is what keeps at most one challenge live per user.
func (r *smsChallengeRepoImpl) Save(ctx context.Context, challenge *models.SMSChallenge) error {
	raw, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode sms challenge: %w", err)
	}

	ttl := time.Until(challenge.ExpiresAt)
	if ttl <= 0 {
		// Already past its expiry; keep it around briefly so a verify
		// attempt can still observe the expired state.
		return r.kv.Set(ctx, smsChallengeKey(challenge.UserID), raw)
	}
	if err := r.kv.SetWithTTL(ctx, smsChallengeKey(challenge.UserID), raw, ttl); err != nil {
		return fmt.Errorf("failed to save sms challenge: %w", err)
	}
	return nil
}

func (r *smsChallengeRepoImpl) Delete(ctx context.Context, userID string) error {
	if err := r.kv.Delete(ctx, smsChallengeKey(userID)); err != nil {
		return fmt.Errorf("failed to delete sms challenge: %w", err)
	}
	return nil
}

func (r *smsChallengeRepoImpl) IncrementSendCount(ctx context.Context, userID string, window time.Duration) (int64, error) {
	count, err := r.kv.IncrementWithTTL(ctx, smsSentKey(userID), window)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sms send count: %w", err)
	}
	return count, nil
}

func (r *smsChallengeRepoImpl) SendCount(ctx context.Context, userID string) (int64, error) {
	raw, err := r.kv.Get(ctx, smsSentKey(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load sms send count: %w", err)
	}

	var count int64
	if _, err := fmt.Sscanf(string(raw), "%d", &count); err != nil {
		return 0, fmt.Errorf("failed to parse sms send count: %w", err)
	}
	return count, nil
}

func (r *smsChallengeRepoImpl) MarkResendWindow(ctx context.Context, userID string, window time.Duration) error {
	if err := r.kv.SetWithTTL(ctx, smsResendKey(userID), []byte("1"), window); err != nil {
		return fmt.Errorf("failed to mark resend window: %w", err)
	}
	return nil
}

func (r *smsChallengeRepoImpl) InResendWindow(ctx context.Context, userID string) (bool, error) {
	_, err := r.kv.Get(ctx, smsResendKey(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check resend window: %w", err)
	}
	return true, nil
}
