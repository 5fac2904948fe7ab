package models

// ResultKind classifies a verification outcome. Callers branch on the kind,
// never on the message text.
type ResultKind string

const (
	ResultOK               ResultKind = "ok"
	ResultInvalidCode      ResultKind = "invalid_code"
	ResultExpired          ResultKind = "expired"
	ResultTooManyAttempts  ResultKind = "too_many_attempts"
	ResultRateLimited      ResultKind = "rate_limited"
	ResultNotSetUp         ResultKind = "not_set_up"
	ResultAlreadyEnabled   ResultKind = "already_enabled"
	ResultStoreUnavailable ResultKind = "store_unavailable"
)

// VerificationResult is the structured outcome of a verification attempt.
// Failures are values, not errors: the service layer reserves Go errors for
// store writes that could not complete.
type VerificationResult struct {
	Success bool       `json:"success"`
	Result  ResultKind `json:"result"`
	Message string     `json:"message,omitempty"`
	// RemainingCodes is set on successful backup-code redemption
	RemainingCodes *int `json:"remaining_codes,omitempty"`
}

// VerifySucceeded builds a success result
func VerifySucceeded() *VerificationResult {
	return &VerificationResult{Success: true, Result: ResultOK}
}

// VerifyFailed builds a failure result of the given kind
func VerifyFailed(kind ResultKind, message string) *VerificationResult {
	return &VerificationResult{Success: false, Result: kind, Message: message}
}
