package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// MFA flow errors
	ErrMFANotSetUp        = errors.New("mfa method is not set up")
	ErrMFAAlreadyEnabled  = errors.New("mfa method is already enabled")
	ErrMFAInvalidCode     = errors.New("invalid verification code")
	ErrMFACodeExpired     = errors.New("verification code has expired")
	ErrMFATooManyAttempts = errors.New("too many verification attempts")
	ErrMFARateLimited     = errors.New("rate limited")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrSMSDeliveryFailed  = errors.New("sms delivery failed")

	// ErrStoreUnavailable marks a failed write against the record store.
	// Reads fail open to the safe default; writes fail closed so an attempt
	// that cannot be counted is never silently allowed through.
	ErrStoreUnavailable = errors.New("record store unavailable")
)
