package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/roamly/roamly/internal/auth"
	"github.com/roamly/roamly/internal/handlers"
	"github.com/roamly/roamly/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	mfaHandler *handlers.MFAHandler,
	tokenManager *auth.TokenManager,
) {
	// Per-IP throttle on the endpoints that burn codes or SMS budget
	rateLimitConfig := middleware.DefaultVerifyRateLimit()

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(tokenManager))

		r.Get("/mfa/status", mfaHandler.GetStatus)

		r.Post("/mfa/totp/setup", mfaHandler.SetupTOTP)
		r.Post("/mfa/totp/enable", mfaHandler.EnableTOTP)
		r.Post("/mfa/totp/disable", mfaHandler.DisableTOTP)

		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/mfa/sms/send", mfaHandler.SendSMS)
		r.Post("/mfa/sms/disable", mfaHandler.DisableSMS)

		r.Post("/mfa/backup-codes/setup", mfaHandler.SetupBackupCodes)
		r.Post("/mfa/backup-codes/enable", mfaHandler.EnableBackupCodes)
		r.Post("/mfa/backup-codes/regenerate", mfaHandler.RegenerateBackupCodes)

		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/mfa/verify", mfaHandler.Verify)
	})
}
