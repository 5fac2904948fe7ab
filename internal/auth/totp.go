package auth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/roamly/roamly/internal/models"
)

const qrCodeSize = 256

// TOTPManager generates and validates time-based one-time passwords.
// Parameters are the authenticator-app defaults: 6 digits, SHA-1, 30 second
// period, with one period of clock skew accepted either side.
type TOTPManager struct {
	issuer string
}

// NewTOTPManager creates a manager labelling enrollments with issuer
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// Generate creates a fresh secret for the account and renders the otpauth
// URL both as text and as a PNG QR data URL.
func (m *TOTPManager) Generate(accountName string) (*models.TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp key: %w", err)
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render totp qr code: %w", err)
	}

	return &models.TOTPEnrollment{
		Secret:     key.Secret(),
		OtpauthURL: key.URL(),
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// Validate checks code against secret at the current time
func (m *TOTPManager) Validate(code, secret string) bool {
	return m.ValidateAt(code, secret, time.Now())
}

// ValidateAt checks code against secret at time t, accepting one 30s period
// of skew in either direction.
func (m *TOTPManager) ValidateAt(code, secret string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
