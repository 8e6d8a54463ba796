package util

import "strings"

// countryPrefix is the calling code historical records may or may not carry.
const countryPrefix = "91"

// NormalizeWaID strips the leading + and surrounding whitespace from an
// inbound WhatsApp id. WATI sends waId as bare digits ("919866855857").
func NormalizeWaID(waID string) string {
	return strings.TrimPrefix(strings.TrimSpace(waID), "+")
}

// DigitsOnly drops everything that is not an ASCII digit.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneVariants returns the set of phone formats to match a normalized
// inbound id against stored mobile numbers. Stored numbers are not uniformly
// normalized, so matching must check all variants: bare digits, +digits, and
// when the number carries the country prefix, both forms without it.
func PhoneVariants(normalized string) []string {
	variants := []string{normalized, "+" + normalized}
	if strings.HasPrefix(normalized, countryPrefix) && len(normalized) > len(countryPrefix) {
		local := normalized[len(countryPrefix):]
		variants = append(variants, local, "+"+local)
	}
	return variants
}
