package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/handlers"
	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/repositories"
	"github.com/roamly/roamly/internal/routes"
	"github.com/roamly/roamly/internal/services"
	"github.com/roamly/roamly/internal/store"
)

type testServer struct {
	router chi.Router
	tm     *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := store.NewMemoryStore()

	statusRepo := repositories.NewMFAStatusRepository(kv)
	secretRepo := repositories.NewTOTPSecretRepository(kv)
	challengeRepo := repositories.NewSMSChallengeRepository(kv)
	backupRepo := repositories.NewBackupCodeRepository(kv)
	counterRepo := repositories.NewAttemptCounterRepository(kv)

	limiter := services.NewAttemptLimiter(counterRepo, logger, services.DefaultLimitConfig())
	totpService := services.NewTOTPService(secretRepo, statusRepo, auth.NewTOTPManager("RoamlyTest"), logger)
	smsService := services.NewSMSService(challengeRepo, statusRepo, &services.MockSMSSender{}, logger, services.DefaultSMSConfig())
	backupService := services.NewBackupCodeService(backupRepo, statusRepo, logger, services.DefaultBackupCodeConfig())
	mfaService := services.NewMFAService(statusRepo, limiter, totpService, smsService, backupService, logger)

	handler := handlers.NewMFAHandler(mfaService, totpService, smsService, backupService, logger)
	tm := auth.NewTokenManager("test-secret-that-is-long-enough", time.Hour)

	router := chi.NewRouter()
	routes.RegisterRoutes(router, handler, tm)

	return &testServer{router: router, tm: tm}
}

func (s *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestMFAHandler_RequiresAuthentication(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.request(t, http.MethodGet, "/mfa/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.request(t, http.MethodPost, "/mfa/totp/setup", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMFAHandler_TOTPLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.tm.Generate("u1", "u1@example.com")
	require.NoError(t, err)

	// Setup returns the one-time enrollment material
	rec := srv.request(t, http.MethodPost, "/mfa/totp/setup", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var setup handlers.TOTPSetupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &setup))
	require.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCode, "data:image/png;base64,")

	// Status shows the method pending
	rec = srv.request(t, http.MethodGet, "/mfa/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status handlers.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.StatePending, status.Status)

	// Enable with a live code
	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	rec = srv.request(t, http.MethodPost, "/mfa/totp/enable", token, handlers.TOTPEnableRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(t, http.MethodGet, "/mfa/status", token, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, models.StateEnabled, status.Status)
	assert.Equal(t, []models.Method{models.MethodTOTP}, status.EnabledMethods)
}

func TestMFAHandler_Verify_ResultStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.tm.Generate("u1", "u1@example.com")
	require.NoError(t, err)

	// No enrollment at all: structured not_set_up result, 404
	rec := srv.request(t, http.MethodPost, "/mfa/verify", token, handlers.VerifyRequest{Code: "123456", Method: "totp"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var result models.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, models.ResultNotSetUp, result.Result)
}

func TestMFAHandler_Verify_RejectsMalformedRequests(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.tm.Generate("u1", "u1@example.com")
	require.NoError(t, err)

	// Unknown method fails DTO validation
	rec := srv.request(t, http.MethodPost, "/mfa/verify", token, handlers.VerifyRequest{Code: "123456", Method: "smoke-signal"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing code
	rec = srv.request(t, http.MethodPost, "/mfa/verify", token, handlers.VerifyRequest{Method: "totp"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMFAHandler_BackupCodesFlow(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.tm.Generate("u1", "u1@example.com")
	require.NoError(t, err)

	rec := srv.request(t, http.MethodPost, "/mfa/backup-codes/setup", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var codesResp handlers.BackupCodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &codesResp))
	require.Len(t, codesResp.Codes, 10)

	rec = srv.request(t, http.MethodPost, "/mfa/backup-codes/enable", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.request(t, http.MethodPost, "/mfa/verify", token, handlers.VerifyRequest{Code: codesResp.Codes[0], Method: "backup_code"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.VerificationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	require.NotNil(t, result.RemainingCodes)
	assert.Equal(t, 9, *result.RemainingCodes)
}

func TestMFAHandler_SMSSend_ValidatesPhone(t *testing.T) {
	srv := newTestServer(t)
	token, err := srv.tm.Generate("u1", "u1@example.com")
	require.NoError(t, err)

	rec := srv.request(t, http.MethodPost, "/mfa/sms/send", token, handlers.SMSSendRequest{Phone: "not-a-phone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.request(t, http.MethodPost, "/mfa/sms/send", token, handlers.SMSSendRequest{Phone: "+886912345678"})
	assert.Equal(t, http.StatusOK, rec.Code)
}
