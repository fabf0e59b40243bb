// Package redact strips API keys and bot tokens from text before it is
// logged or echoed back to a chat.
package redact

import "strings"

const placeholder = "[REDACTED]"

// String replaces every occurrence of each secret in s with [REDACTED].
// Secrets shorter than 4 characters are ignored.
func String(s string, secrets ...string) string {
	for _, v := range secrets {
		if len(v) < 4 {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Key renders a secret for display, keeping only its last four characters.
func Key(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
