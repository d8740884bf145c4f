package models

import "strings"

/*
NormalizePhone canonicalize a user entered phone string.

All non-digit characters are stripped. An 11-digit result with a leading
country code `1` is reduced to its 10-digit national form. Anything else is
passed through unchanged; validity is the caller's concern.

	@param raw string - user entered phone string
	@return canonical phone string
*/
func NormalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	normalized := digits.String()
	if len(normalized) == 11 && normalized[0] == '1' {
		return normalized[1:]
	}
	return normalized
}

/*
ValidPhone check whether a phone string normalizes to a ten digit number

	@param raw string - user entered phone string
	@return whether the phone is usable as a lookup key
*/
func ValidPhone(raw string) bool {
	return len(NormalizePhone(raw)) == 10
}
