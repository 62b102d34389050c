// Package phone canonicalises free-form phone input into E.164 mobile numbers.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when input cannot be turned into a dialable mobile number.
var ErrInvalidPhone = errors.New("invalid phone number")

const (
	trunkPrefix          = "0"
	subscriberDigits     = 9
	defaultCountryCode   = "255"
	defaultMobilePrefix1 = "6"
	defaultMobilePrefix2 = "7"
)

// Normalizer converts raw phone input for a single country.
type Normalizer struct {
	countryCode    string
	mobilePrefixes []string
}

// Default normalises Tanzanian mobile numbers (+2556…, +2557…).
var Default = New(defaultCountryCode, []string{defaultMobilePrefix1, defaultMobilePrefix2})

// New builds a normalizer. Empty arguments fall back to the Tanzanian defaults.
func New(countryCode string, mobilePrefixes []string) *Normalizer {
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if countryCode == "" {
		countryCode = defaultCountryCode
	}
	prefixes := make([]string, 0, len(mobilePrefixes))
	for _, p := range mobilePrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		prefixes = []string{defaultMobilePrefix1, defaultMobilePrefix2}
	}
	return &Normalizer{countryCode: countryCode, mobilePrefixes: prefixes}
}

// Normalize runs raw through Default.
func Normalize(raw string) (string, error) {
	return Default.Normalize(raw)
}

// Normalize returns the canonical "+<cc><subscriber>" form of raw.
//
// Formatting rules are applied first (first match wins), then the result must
// carry one of the whitelisted mobile prefixes. A well-formed number on a
// non-mobile prefix is rejected.
func (n *Normalizer) Normalize(raw string) (string, error) {
	cleaned := strip(raw)
	cc := n.countryCode
	intl := "+" + cc

	var candidate string
	switch {
	case strings.HasPrefix(cleaned, trunkPrefix) && len(cleaned) == subscriberDigits+1:
		candidate = intl + cleaned[1:]
	case n.hasMobilePrefix(cleaned) && len(cleaned) == subscriberDigits:
		candidate = intl + cleaned
	case strings.HasPrefix(cleaned, cc) && len(cleaned) == len(cc)+subscriberDigits:
		candidate = "+" + cleaned
	case strings.HasPrefix(cleaned, intl) && len(cleaned) == len(intl)+subscriberDigits:
		candidate = cleaned
	default:
		return "", ErrInvalidPhone
	}

	if len(candidate) != len(intl)+subscriberDigits || !n.hasMobilePrefix(strings.TrimPrefix(candidate, intl)) {
		return "", ErrInvalidPhone
	}
	return candidate, nil
}

// Valid reports whether raw normalises successfully.
func (n *Normalizer) Valid(raw string) bool {
	_, err := n.Normalize(raw)
	return err == nil
}

func (n *Normalizer) hasMobilePrefix(s string) bool {
	for _, p := range n.mobilePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// strip keeps digits and a single leading plus sign.
func strip(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
