package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/store"
)

// MFAStatusRepository persists the per-user enrollment state machine
type MFAStatusRepository interface {
	Get(ctx context.Context, userID string) (*models.MFAStatus, error)
	Save(ctx context.Context, status *models.MFAStatus) error
}

type mfaStatusRepoImpl struct {
	kv store.KVStore
}

// NewMFAStatusRepository creates a status repository over the shared store
func NewMFAStatusRepository(kv store.KVStore) MFAStatusRepository {
	return &mfaStatusRepoImpl{kv: kv}
}

func mfaStatusKey(userID string) string {
	return "mfa:status:" + userID
}

// Get returns models.ErrNotFound when the user has no record yet; callers
// treat absence as implicit disabled.
func (r *mfaStatusRepoImpl) Get(ctx context.Context, userID string) (*models.MFAStatus, error) {
	raw, err := r.kv.Get(ctx, mfaStatusKey(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load mfa status: %w", err)
	}

	var status models.MFAStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode mfa status: %w", err)
	}
	return &status, nil
}

// Save replaces the whole record. Status records carry no TTL; enrollment
// state outlives every challenge and counter.
func (r *mfaStatusRepoImpl) Save(ctx context.Context, status *models.MFAStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to encode mfa status: %w", err)
	}
	if err := r.kv.Set(ctx, mfaStatusKey(status.UserID), raw); err != nil {
		return fmt.Errorf("failed to save mfa status: %w", err)
	}
	return nil
}
