package logger

import (
	"log/slog"
	"strings"
)

// SanitizedPhone masks a phone number for logging, keeping the country code
// prefix and last two digits (e.g. "+14155550123" -> "+1*******23")
func SanitizedPhone(phone string) string {
	if len(phone) < 6 {
		return "[invalid-phone]"
	}

	prefixLen := 1 // keep the leading +
	if strings.HasPrefix(phone, "+") {
		prefixLen = 2
	}
	masked := len(phone) - prefixLen - 2
	if masked < 1 {
		return "[invalid-phone]"
	}
	return phone[:prefixLen] + strings.Repeat("*", masked) + phone[len(phone)-2:]
}

// SanitizedEmail masks an email address for logging (e.g., "u***@e***.com")
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := map[string]bool{
		"password": true,
		"token":    true,
		"secret":   true,
		"code":     true,
		"phone":    true,
		"auth":     true,
	}

	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
