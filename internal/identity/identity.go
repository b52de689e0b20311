// Package identity classifies and normalizes student identities reported by
// device agents.
package identity

import "strings"

// guestTokens marks throwaway identities. Chromebooks in guest or trial mode
// report emails/names containing one of these, and nothing they send may be
// logged or persisted.
var guestTokens = []string{"guest", "anon", "anonymous", "trial", "temp"}

// Normalize trims and lowercases a student identifier so roster comparisons
// are stable regardless of how the agent capitalized the email.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// IsGuest reports whether an identity looks like a guest/anonymous device.
// An empty email is always a guest; otherwise any guest token appearing in
// either the email or the display name marks it.
func IsGuest(email, name string) bool {
	e := Normalize(email)
	if e == "" {
		return true
	}
	n := Normalize(name)
	for _, t := range guestTokens {
		if strings.Contains(e, t) || strings.Contains(n, t) {
			return true
		}
	}
	return false
}

// LooksLikeEmail is a loose shape check used when scanning request bodies for
// student identifiers.
func LooksLikeEmail(s string) bool {
	at := strings.LastIndex(s, "@")
	if at < 1 {
		return false
	}
	return strings.Contains(s[at+1:], ".")
}
