package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/models"
	"github.com/roamly/roamly/internal/services"
	pkghttp "github.com/roamly/roamly/pkg/http"
)

// MFAHandler handles MFA-related HTTP requests
type MFAHandler struct {
	mfaService    *services.MFAService
	totpService   *services.TOTPService
	smsService    *services.SMSService
	backupService *services.BackupCodeService
	logger        *slog.Logger
}

// NewMFAHandler creates a new MFA handler
func NewMFAHandler(
	mfaService *services.MFAService,
	totpService *services.TOTPService,
	smsService *services.SMSService,
	backupService *services.BackupCodeService,
	logger *slog.Logger,
) *MFAHandler {
	return &MFAHandler{
		mfaService:    mfaService,
		totpService:   totpService,
		smsService:    smsService,
		backupService: backupService,
		logger:        logger,
	}
}

// SetupTOTP handles POST /mfa/totp/setup
func (h *MFAHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	enrollment, err := h.totpService.Setup(r.Context(), user.UserID, user.Email)
	if err != nil {
		h.writeServiceError(w, user.UserID, "totp setup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, TOTPSetupResponse{
		Secret:     enrollment.Secret,
		OtpauthURL: enrollment.OtpauthURL,
		QRCode:     enrollment.QRCode,
	})
}

// EnableTOTP handles POST /mfa/totp/enable
func (h *MFAHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req TOTPEnableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.totpService.Enable(r.Context(), user.UserID, req.Code); err != nil {
		h.writeServiceError(w, user.UserID, "totp enable failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "totp enabled"})
}

// DisableTOTP handles POST /mfa/totp/disable
func (h *MFAHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.totpService.Disable(r.Context(), user.UserID); err != nil {
		h.writeServiceError(w, user.UserID, "totp disable failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "totp disabled"})
}

// SendSMS handles POST /mfa/sms/send
func (h *MFAHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req SMSSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.smsService.Send(r.Context(), user.UserID, req.Phone, req.IsResend); err != nil {
		h.writeServiceError(w, user.UserID, "sms send failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "verification code sent"})
}

// DisableSMS handles POST /mfa/sms/disable
func (h *MFAHandler) DisableSMS(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.smsService.Disable(r.Context(), user.UserID); err != nil {
		h.writeServiceError(w, user.UserID, "sms disable failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "sms disabled"})
}

// SetupBackupCodes handles POST /mfa/backup-codes/setup
func (h *MFAHandler) SetupBackupCodes(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	codes, err := h.backupService.Setup(r.Context(), user.UserID)
	if err != nil {
		h.writeServiceError(w, user.UserID, "backup code setup failed", err)
		return
	}

	writeJSON(w, http.StatusOK, BackupCodesResponse{Codes: codes})
}

// EnableBackupCodes handles POST /mfa/backup-codes/enable
func (h *MFAHandler) EnableBackupCodes(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.backupService.Enable(r.Context(), user.UserID); err != nil {
		h.writeServiceError(w, user.UserID, "backup code enable failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ActionResponse{Success: true, Message: "backup codes enabled"})
}

// RegenerateBackupCodes handles POST /mfa/backup-codes/regenerate
func (h *MFAHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	codes, err := h.backupService.Regenerate(r.Context(), user.UserID)
	if err != nil {
		h.writeServiceError(w, user.UserID, "backup code regenerate failed", err)
		return
	}

	writeJSON(w, http.StatusOK, BackupCodesResponse{Codes: codes})
}

// Verify handles POST /mfa/verify, the unified verification entry point.
// The structured result is always returned in the body; the status code
// tracks the result kind.
func (h *MFAHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result := h.mfaService.Verify(r.Context(), user.UserID, req.Code, models.Method(req.Method))
	writeJSON(w, pkghttp.ResultStatus(result.Result), result)
}

// GetStatus handles GET /mfa/status
func (h *MFAHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	info := h.mfaService.GetStatus(r.Context(), user.UserID)
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:               info.Status,
		EnabledMethods:       info.EnabledMethods,
		PendingMethods:       info.PendingMethods,
		RemainingBackupCodes: info.RemainingBackups,
	})
}

// writeServiceError maps service sentinel errors onto HTTP responses
func (h *MFAHandler) writeServiceError(w http.ResponseWriter, userID, msg string, err error) {
	h.logger.Warn(msg, slog.String("user_id", userID), slog.Any("error", err))

	switch {
	case errors.Is(err, models.ErrMFANotSetUp):
		pkghttp.WriteNotFound(w, "Method is not set up")
	case errors.Is(err, models.ErrMFAAlreadyEnabled):
		pkghttp.WriteConflict(w, "Method is already enabled")
	case errors.Is(err, models.ErrMFAInvalidCode):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_code", "Invalid verification code")
	case errors.Is(err, models.ErrMFARateLimited):
		pkghttp.WriteTooManyRequests(w, "Rate limited, try again later")
	case errors.Is(err, models.ErrInvalidPhone):
		pkghttp.WriteBadRequest(w, "Phone number must be in E.164 format")
	case errors.Is(err, models.ErrSMSDeliveryFailed):
		pkghttp.WriteError(w, http.StatusBadGateway, "delivery_failed", "Could not deliver verification code")
	case errors.Is(err, models.ErrStoreUnavailable):
		pkghttp.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "Service temporarily unavailable")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
