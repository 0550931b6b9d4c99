package quotes

import "strings"

// HoneypotField is the hidden form field real visitors never fill in.
const HoneypotField = "company_website"

// IsHoneypotTripped reports whether the decoy field carries a value.
func IsHoneypotTripped(value string) bool {
	return strings.TrimSpace(value) != ""
}
