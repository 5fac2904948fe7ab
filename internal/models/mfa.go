package models

import (
	"time"
)

// Method identifies an MFA verification method
type Method string

const (
	MethodTOTP       Method = "totp"
	MethodSMS        Method = "sms"
	MethodBackupCode Method = "backup_code"
)

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	switch m {
	case MethodTOTP, MethodSMS, MethodBackupCode:
		return true
	}
	return false
}

// MFAState is the overall enrollment state for a user
type MFAState string

const (
	StateDisabled MFAState = "disabled"
	StatePending  MFAState = "pending"
	StateEnabled  MFAState = "enabled"
)

// CounterWindow selects which attempt-limiting window a counter covers
type CounterWindow string

const (
	WindowShort CounterWindow = "short"
	WindowDaily CounterWindow = "daily"
)

// MFAStatus is the per-user enrollment record. A method appears in at most
// one of EnabledMethods/PendingMethods; Status is enabled exactly when
// EnabledMethods is non-empty. Absence of the record means disabled.
type MFAStatus struct {
	UserID         string    `json:"user_id"`
	Status         MFAState  `json:"status"`
	EnabledMethods []Method  `json:"enabled_methods"`
	PendingMethods []Method  `json:"pending_methods"`
	LastUpdated    time.Time `json:"last_updated"`
}

// NewMFAStatus returns the implicit default record for a user
func NewMFAStatus(userID string) *MFAStatus {
	return &MFAStatus{
		UserID:         userID,
		Status:         StateDisabled,
		EnabledMethods: []Method{},
		PendingMethods: []Method{},
		LastUpdated:    time.Now(),
	}
}

// IsEnabled reports whether the method is in the enabled set
func (s *MFAStatus) IsEnabled(m Method) bool {
	return containsMethod(s.EnabledMethods, m)
}

// IsPending reports whether the method is in the pending set
func (s *MFAStatus) IsPending(m Method) bool {
	return containsMethod(s.PendingMethods, m)
}

// MarkPending moves the method into the pending set
func (s *MFAStatus) MarkPending(m Method) {
	s.EnabledMethods = removeMethod(s.EnabledMethods, m)
	if !containsMethod(s.PendingMethods, m) {
		s.PendingMethods = append(s.PendingMethods, m)
	}
	s.recompute()
}

// MarkEnabled moves the method from pending to enabled
func (s *MFAStatus) MarkEnabled(m Method) {
	s.PendingMethods = removeMethod(s.PendingMethods, m)
	if !containsMethod(s.EnabledMethods, m) {
		s.EnabledMethods = append(s.EnabledMethods, m)
	}
	s.recompute()
}

// Remove drops the method from both sets
func (s *MFAStatus) Remove(m Method) {
	s.EnabledMethods = removeMethod(s.EnabledMethods, m)
	s.PendingMethods = removeMethod(s.PendingMethods, m)
	s.recompute()
}

// recompute derives Status from the method sets: enabled iff any method is
// enabled, pending iff only pending methods remain, disabled otherwise.
func (s *MFAStatus) recompute() {
	switch {
	case len(s.EnabledMethods) > 0:
		s.Status = StateEnabled
	case len(s.PendingMethods) > 0:
		s.Status = StatePending
	default:
		s.Status = StateDisabled
	}
	s.LastUpdated = time.Now()
}

func containsMethod(methods []Method, m Method) bool {
	for _, v := range methods {
		if v == m {
			return true
		}
	}
	return false
}

func removeMethod(methods []Method, m Method) []Method {
	out := methods[:0]
	for _, v := range methods {
		if v != m {
			out = append(out, v)
		}
	}
	return out
}

// TOTPSecret is the per-user TOTP enrollment record
type TOTPSecret struct {
	UserID    string     `json:"user_id"`
	Secret    string     `json:"secret"` // base32
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	EnabledAt *time.Time `json:"enabled_at,omitempty"`
}

// SMSChallenge is the single active SMS code for a user. A new send
// supersedes any previous challenge.
type SMSChallenge struct {
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"` // 6 digits
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	IsResend  bool      `json:"is_resend"`
}

// IsExpired reports whether the challenge is past its expiry
func (c *SMSChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// BackupCode is a single entry in a user's backup-code set
type BackupCode struct {
	Code   string     `json:"code"` // 8-char alphanumeric
	Used   bool       `json:"used"`
	UsedAt *time.Time `json:"used_at,omitempty"`
}

// BackupCodeSet is the full single-generation code set for a user.
// Regeneration replaces the whole set; codes are never added piecemeal.
type BackupCodeSet struct {
	UserID     string       `json:"user_id"`
	Codes      []BackupCode `json:"codes"`
	Enabled    bool         `json:"enabled"`
	CreatedAt  time.Time    `json:"created_at"`
	LastUsedAt *time.Time   `json:"last_used_at,omitempty"`
	EnabledAt  *time.Time   `json:"enabled_at,omitempty"`
}

// Remaining counts unused codes
func (s *BackupCodeSet) Remaining() int {
	n := 0
	for _, c := range s.Codes {
		if !c.Used {
			n++
		}
	}
	return n
}

// TOTPEnrollment is returned once from TOTP setup; the raw secret and QR
// payload are not re-exposed afterward.
type TOTPEnrollment struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
	QRCode     string `json:"qr_code"` // PNG data URL
}

// StatusInfo is the orchestrator's status view: the stored record augmented
// with the live remaining-backup-code count.
type StatusInfo struct {
	Status           MFAState `json:"status"`
	EnabledMethods   []Method `json:"enabled_methods"`
	PendingMethods   []Method `json:"pending_methods"`
	RemainingBackups int      `json:"remaining_backup_codes"`
}
