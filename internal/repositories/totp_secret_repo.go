package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/store"
)

// TOTPSecretRepository persists per-user TOTP enrollment records
type TOTPSecretRepository interface {
	Get(ctx context.Context, userID string) (*models.TOTPSecret, error)
	Save(ctx context.Context, secret *models.TOTPSecret) error
	Delete(ctx context.Context, userID string) error
}

type totpSecretRepoImpl struct {
	kv store.KVStore
}

// NewTOTPSecretRepository creates a TOTP secret repository over the shared store
func NewTOTPSecretRepository(kv store.KVStore) TOTPSecretRepository {
	return &totpSecretRepoImpl{kv: kv}
}

func totpSecretKey(userID string) string {
	return "mfa:totp:" + userID
}

func (r *totpSecretRepoImpl) Get(ctx context.Context, userID string) (*models.TOTPSecret, error) {
	raw, err := r.kv.Get(ctx, totpSecretKey(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load totp secret: %w", err)
	}

	var secret models.TOTPSecret
	if err := json.Unmarshal(raw, &secret); err != nil {
		return nil, fmt.Errorf("failed to decode totp secret: %w", err)
	}
	return &secret, nil
}

func (r *totpSecretRepoImpl) Save(ctx context.Context, secret *models.TOTPSecret) error {
	raw, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to encode totp secret: %w", err)
	}
	if err := r.kv.Set(ctx, totpSecretKey(secret.UserID), raw); err != nil {
		return fmt.Errorf("failed to save totp secret: %w", err)
	}
	return nil
}

func (r *totpSecretRepoImpl) Delete(ctx context.Context, userID string) error {
	if err := r.kv.Delete(ctx, totpSecretKey(userID)); err != nil {
		return fmt.Errorf("failed to delete totp secret: %w", err)
	}
	return nil
}
