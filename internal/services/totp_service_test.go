package services

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/store"
)

func TestTOTPService_Setup_MarksPending(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	enrollment, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.NotEmpty(t, enrollment.QRCode)

	status, err := env.statusRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, status.Status)
	assert.True(t, status.IsPending(models.MethodTOTP))
	assert.False(t, status.IsEnabled(models.MethodTOTP))
}

func TestTOTPService_Setup_RejectsWhenEnabled(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	enrollment, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.totp.Enable(ctx, "u1", code))

	_, err = env.totp.Setup(ctx, "u1", "u1@example.com")
	assert.ErrorIs(t, err, models.ErrMFAAlreadyEnabled)
}

func TestTOTPService_Setup_ReplacesPendingSecret(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	first, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	second, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)

	stored, err := env.secretRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second.Secret, stored.Secret)
}

func TestTOTPService_Enable_WithValidCode(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	enrollment, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.totp.Enable(ctx, "u1", code))

	secret, err := env.secretRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, secret.Enabled)
	require.NotNil(t, secret.EnabledAt)

	status, err := env.statusRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateEnabled, status.Status)
	assert.Equal(t, []models.Method{models.MethodTOTP}, status.EnabledMethods)
	assert.Empty(t, status.PendingMethods)
}

func TestTOTPService_Enable_InvalidCode(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	_, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	err = env.totp.Enable(ctx, "u1", "000000")
	assert.ErrorIs(t, err, models.ErrMFAInvalidCode)
}

func TestTOTPService_Enable_NotSetUp(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())

	err := env.totp.Enable(context.Background(), "u1", "123456")
	assert.ErrorIs(t, err, models.ErrMFANotSetUp)
}

func TestTOTPService_Verify_NotSetUp(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())

	result, err := env.totp.Verify(context.Background(), "u1", "123456")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, models.ResultNotSetUp, result.Result)
}

func TestTOTPService_Verify_FirstSuccessEnables(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	enrollment, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)

	result, err := env.totp.Verify(ctx, "u1", code)
	require.NoError(t, err)
	assert.True(t, result.Success)

	status, err := env.statusRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.IsEnabled(models.MethodTOTP))
}

func TestTOTPService_Disable_RemovesSecretAndMethod(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	enrollment, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.totp.Enable(ctx, "u1", code))

	require.NoError(t, env.totp.Disable(ctx, "u1"))

	_, err = env.secretRepo.Get(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	status, err := env.statusRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateDisabled, status.Status)
	assert.Empty(t, status.EnabledMethods)
}

func TestTOTPService_StatusInvariantAcrossTransitions(t *testing.T) {
	env := newTestEnv(store.NewMemoryStore())
	ctx := context.Background()

	check := func() {
		status, err := env.statusRepo.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, len(status.EnabledMethods) > 0, status.Status == models.StateEnabled,
			"status must be enabled exactly when enabledMethods is non-empty")
	}

	enrollment, err := env.totp.Setup(ctx, "u1", "u1@example.com")
	require.NoError(t, err)
	check()

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.totp.Enable(ctx, "u1", code))
	check()

	require.NoError(t, env.totp.Disable(ctx, "u1"))
	check()
}
