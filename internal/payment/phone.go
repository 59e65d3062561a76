package payment

import "strings"

// CountryCode is the calling code prepended to local numbers (Kenya).
const CountryCode = "254"

// ValidPhone reports whether the input is an acceptable subscriber number:
// 9 digits starting with 7 or 1, with or without the leading trunk 0 or the
// country code (with or without a leading +).
func ValidPhone(phone string) bool {
	cleaned := stripPhone(phone)

	switch {
	case len(cleaned) == 10 && cleaned[0] == '0':
		cleaned = cleaned[1:]
	case len(cleaned) == 12 && strings.HasPrefix(cleaned, CountryCode):
		cleaned = cleaned[3:]
	}

	if len(cleaned) != 9 {
		return false
	}
	if cleaned[0] != '7' && cleaned[0] != '1' {
		return false
	}
	for _, c := range cleaned {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// NormalizePhone converts a local number to international form without the
// plus sign: 0712345678 and 712345678 both become 254712345678. Numbers
// already carrying the country code pass through unchanged, so the function
// is idempotent.
func NormalizePhone(phone string) string {
	cleaned := stripPhone(phone)

	if strings.HasPrefix(cleaned, CountryCode) {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "0") {
		return CountryCode + cleaned[1:]
	}
	return CountryCode + cleaned
}

// stripPhone removes spaces, dashes, parens and a leading +.
func stripPhone(phone string) string {
	var b strings.Builder
	for _, c := range strings.TrimPrefix(strings.TrimSpace(phone), "+") {
		switch c {
		case ' ', '-', '(', ')':
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
