package logger

import (
	"log/slog"
	"strings"
)

// SanitizedIdentifier masks a login identifier for logging (e.g., "j*****n")
func SanitizedIdentifier(identifier string) string {
	if identifier == "" {
		return "[empty]"
	}
	if len(identifier) <= 2 {
		return strings.Repeat("*", len(identifier))
	}
	return string(identifier[0]) +
		strings.Repeat("*", len(identifier)-2) +
		string(identifier[len(identifier)-1])
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
		"secret":   true,
		"token":    true,
		"captcha":  true,
		"csrf":     true,
	}

	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
