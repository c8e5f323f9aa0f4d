package utils

import (
	"fmt"
	"math/rand"
	"regexp"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// GeneratePin returns a 4-digit room PIN in 1000-9999.
func GeneratePin() string {
	return fmt.Sprintf("%d", 1000+rand.Intn(9000))
}

// IsValidPin checks the 4-digit PIN format.
func IsValidPin(pin string) bool {
	return pinPattern.MatchString(pin)
}

// FormatPin renders a PIN for display, e.g. "4821" -> "48 21".
func FormatPin(pin string) string {
	if !IsValidPin(pin) {
		return pin
	}
	return pin[:2] + " " + pin[2:]
}

// MagicLink builds the shareable join URL for a room.
func MagicLink(baseURL, pin string) string {
	return baseURL + "/sala/" + pin
}
