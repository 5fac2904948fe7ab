package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPManager_Generate(t *testing.T) {
	tm := NewTOTPManager("Roamly")

	enrollment, err := tm.Generate("user@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.Secret)
	assert.Contains(t, enrollment.OtpauthURL, "otpauth://totp/")
	assert.Contains(t, enrollment.OtpauthURL, "Roamly")
}

func TestTOTPManager_Generate_QRCodeIsPNGDataURL(t *testing.T) {
	tm := NewTOTPManager("Roamly")

	enrollment, err := tm.Generate("user@example.com")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))

	pngData, err := base64.StdEncoding.DecodeString(enrollment.QRCode[len("data:image/png;base64,"):])
	require.NoError(t, err)
	require.Greater(t, len(pngData), 4)

	// PNG signature: 137 80 78 71
	assert.Equal(t, byte(137), pngData[0])
	assert.Equal(t, byte(80), pngData[1])
	assert.Equal(t, byte(78), pngData[2])
	assert.Equal(t, byte(71), pngData[3])
}

func TestTOTPManager_ValidateAt_SkewWindow(t *testing.T) {
	tm := NewTOTPManager("Roamly")
	enrollment, err := tm.Generate("user@example.com")
	require.NoError(t, err)

	now := time.Now().Truncate(30 * time.Second)
	code, err := totp.GenerateCode(enrollment.Secret, now)
	require.NoError(t, err)

	// Accepted at T and one step either side
	assert.True(t, tm.ValidateAt(code, enrollment.Secret, now))
	assert.True(t, tm.ValidateAt(code, enrollment.Secret, now.Add(30*time.Second)))
	assert.True(t, tm.ValidateAt(code, enrollment.Secret, now.Add(-30*time.Second)))

	// Rejected outside the +/-1 step window
	assert.False(t, tm.ValidateAt(code, enrollment.Secret, now.Add(90*time.Second)))
	assert.False(t, tm.ValidateAt(code, enrollment.Secret, now.Add(-90*time.Second)))
}

func TestTOTPManager_ValidateAt_WrongCode(t *testing.T) {
	tm := NewTOTPManager("Roamly")
	enrollment, err := tm.Generate("user@example.com")
	require.NoError(t, err)

	assert.False(t, tm.ValidateAt("000000", enrollment.Secret, time.Now()))
	assert.False(t, tm.ValidateAt("not-a-code", enrollment.Secret, time.Now()))
}
