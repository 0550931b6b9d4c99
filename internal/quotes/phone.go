package quotes

import "strings"

// NormalizePhone strips everything but digits. Applying it twice is a no-op.
func NormalizePhone(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPhone accepts 10 digits or 11 digits with a leading country code 1.
func IsValidPhone(digits string) bool {
	switch len(digits) {
	case 10:
		return true
	case 11:
		return digits[0] == '1'
	default:
		return false
	}
}

// FormatPhoneForDisplay renders (555) 123-4567 or 1 (555) 123-4567 and
// returns anything else unchanged.
func FormatPhoneForDisplay(digits string) string {
	switch {
	case len(digits) == 11 && digits[0] == '1':
		return "1 (" + digits[1:4] + ") " + digits[4:7] + "-" + digits[7:]
	case len(digits) == 10:
		return "(" + digits[0:3] + ") " + digits[3:6] + "-" + digits[6:]
	default:
		return digits
	}
}
