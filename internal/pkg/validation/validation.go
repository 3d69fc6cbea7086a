package validation

import "unicode"

// IsValidPhoneNumber requires digits only, at least 10 of them.
func IsValidPhoneNumber(phone string) bool {
	if len(phone) < 10 {
		return false
	}
	for _, r := range phone {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsValidAge bounds customer age to 18-100.
func IsValidAge(age int) bool {
	return age >= 18 && age <= 100
}
