package handlers

import "github.com/roamly/roamly/internal/models"

// TOTP DTOs

// TOTPSetupResponse carries the one-time enrollment material
type TOTPSetupResponse struct {
	Secret     string `json:"secret"`      // Base32-encoded secret (for manual entry)
	OtpauthURL string `json:"otpauth_url"` // Provisioning URI
	QRCode     string `json:"qr_code"`     // PNG data URL
}

// TOTPEnableRequest confirms enrollment with a first code
type TOTPEnableRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// SMS DTOs

// SMSSendRequest asks for a verification code to be delivered
type SMSSendRequest struct {
	Phone    string `json:"phone" validate:"required,e164"`
	IsResend bool   `json:"is_resend"`
}

// SMSEnableRequest confirms SMS enrollment with the delivered code
type SMSEnableRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// Backup code DTOs

// BackupCodesResponse carries the one-time plaintext code set
type BackupCodesResponse struct {
	Codes []string `json:"codes"`
}

// Verification DTOs

// VerifyRequest is the unified verification request
type VerifyRequest struct {
	Code   string `json:"code" validate:"required,max=20"`
	Method string `json:"method" validate:"required,oneof=totp sms backup_code"`
}

// Status DTOs

// StatusResponse shows current MFA configuration
type StatusResponse struct {
	Status               models.MFAState `json:"status"`
	EnabledMethods       []models.Method `json:"enabled_methods"`
	PendingMethods       []models.Method `json:"pending_methods"`
	RemainingBackupCodes int             `json:"remaining_backup_codes"`
}

// ActionResponse confirms an enable/disable transition
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
