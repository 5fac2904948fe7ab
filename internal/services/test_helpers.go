package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/repositories"
	"github.com/roamly/roamly/internal/store"
)

func newTestTOTPManager() *auth.TOTPManager {
	return auth.NewTOTPManager("RoamlyTest")
}

// testLogger discards output; tests assert on behavior, not log lines
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockSMSSender implements SMSSender for testing
type MockSMSSender struct {
	SendFunc func(ctx context.Context, phone, code string) (*SendResult, error)
	Sent     []string // codes handed to the channel, in order
}

func (m *MockSMSSender) Send(ctx context.Context, phone, code string) (*SendResult, error) {
	m.Sent = append(m.Sent, code)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, phone, code)
	}
	return &SendResult{MessageID: "mock-message-id"}, nil
}

var errStoreDown = errors.New("store down")

// downStore fails every operation, for fail-open/fail-closed tests
type downStore struct{}

func (downStore) Get(context.Context, string) ([]byte, error)        { return nil, errStoreDown }
func (downStore) Set(context.Context, string, []byte) error          { return errStoreDown }
func (downStore) Delete(context.Context, string) error               { return errStoreDown }
func (downStore) Increment(context.Context, string) (int64, error)   { return 0, errStoreDown }
func (downStore) Keys(context.Context, string) ([]string, error)     { return nil, errStoreDown }
func (downStore) TTL(context.Context, string) (time.Duration, error) { return 0, errStoreDown }

func (downStore) SetWithTTL(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

func (downStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}

// testEnv wires the full service stack over a single in-memory store
type testEnv struct {
	kv            store.KVStore
	statusRepo    repositories.MFAStatusRepository
	secretRepo    repositories.TOTPSecretRepository
	challengeRepo repositories.SMSChallengeRepository
	backupRepo    repositories.BackupCodeRepository
	counterRepo   repositories.AttemptCounterRepository
	sender        *MockSMSSender
	limiter       *AttemptLimiter
	totp          *TOTPService
	sms           *SMSService
	backup        *BackupCodeService
	mfa           *MFAService
}

func newTestEnv(kv store.KVStore) *testEnv {
	logger := testLogger()

	env := &testEnv{
		kv:            kv,
		statusRepo:    repositories.NewMFAStatusRepository(kv),
		secretRepo:    repositories.NewTOTPSecretRepository(kv),
		challengeRepo: repositories.NewSMSChallengeRepository(kv),
		backupRepo:    repositories.NewBackupCodeRepository(kv),
		counterRepo:   repositories.NewAttemptCounterRepository(kv),
		sender:        &MockSMSSender{},
	}

	env.limiter = NewAttemptLimiter(env.counterRepo, logger, DefaultLimitConfig())
	env.totp = NewTOTPService(env.secretRepo, env.statusRepo, newTestTOTPManager(), logger)
	env.sms = NewSMSService(env.challengeRepo, env.statusRepo, env.sender, logger, DefaultSMSConfig())
	env.backup = NewBackupCodeService(env.backupRepo, env.statusRepo, logger, DefaultBackupCodeConfig())
	env.mfa = NewMFAService(env.statusRepo, env.limiter, env.totp, env.sms, env.backup, logger)

	return env
}
