package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/store"
)

// BackupCodeRepository persists a user's backup code set as one record.
// Consuming a code rewrites the whole set.
type BackupCodeRepository interface {
	Get(ctx context.Context, userID string) (*models.BackupCodeSet, error)
	Save(ctx context.Context, set *models.BackupCodeSet) error
	Delete(ctx context.Context, userID string) error
}

type backupCodeRepoImpl struct {
	kv store.KVStore
}

// NewBackupCodeRepository creates a backup code repository over the shared store
func NewBackupCodeRepository(kv store.KVStore) BackupCodeRepository {
	return &backupCodeRepoImpl{kv: kv}
}

func backupCodeKey(userID string) string {
	return "mfa:backup:" + userID
}

func (r *backupCodeRepoImpl) Get(ctx context.Context, userID string) (*models.BackupCodeSet, error) {
	raw, err := r.kv.Get(ctx, backupCodeKey(userID))
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load backup codes: %w", err)
	}

	var set models.BackupCodeSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("failed to decode backup codes: %w", err)
	}
	return &set, nil
}

func (r *backupCodeRepoImpl) Save(ctx context.Context, set *models.BackupCodeSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to encode backup codes: %w", err)
	}
	if err := r.kv.Set(ctx, backupCodeKey(set.UserID), raw); err != nil {
		return fmt.Errorf("failed to save backup codes: %w", err)
	}
	return nil
}

func (r *backupCodeRepoImpl) Delete(ctx context.Context, userID string) error {
	if err := r.kv.Delete(ctx, backupCodeKey(userID)); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	return nil
}
