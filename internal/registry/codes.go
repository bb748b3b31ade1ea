package registry

import (
	"regexp"
	"strings"
)

var (
	serviceCodePrefix = regexp.MustCompile(`^([a-jA-J])(?:\.|\s|$)`)
	outsideServiceSet = regexp.MustCompile(`[k-zK-Z]`)
	twoLetterCode     = regexp.MustCompile(`^[A-Z]{2}$`)
	multiValueSplit   = regexp.MustCompile(`[|;,]`)
	countrySplit      = regexp.MustCompile(`[|;,\s]+`)
)

// NormalizeServiceCode extracts the canonical service letter (a-j) from one
// list entry. Entries arrive in several shapes: "a", "a.", or
// "a. providing custody...". Returns "" when no valid code is present.
func NormalizeServiceCode(part string) string {
	part = strings.TrimSpace(part)
	if part == "" {
		return ""
	}
	if m := serviceCodePrefix.FindStringSubmatch(part); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}

// ExtractServiceCodes parses a multi-value service field. It returns the
// valid codes in first-seen order plus a flag for entries containing
// letters outside the a-j set (a suspicious but non-fatal shape).
func ExtractServiceCodes(value string) (codes []string, suspicious bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	seen := make(map[string]bool)
	for _, part := range multiValueSplit.Split(value, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if code := NormalizeServiceCode(part); code != "" {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
			continue
		}
		if outsideServiceSet.MatchString(part) {
			suspicious = true
		}
	}
	return codes, suspicious
}

// SplitCountryCodes splits a multi-value country field on any of the
// delimiters seen in the wild (pipe, semicolon, comma, whitespace runs).
func SplitCountryCodes(value string) []string {
	var out []string
	for _, part := range countrySplit.Split(strings.TrimSpace(value), -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidCountryCode reports whether the trimmed, uppercased code belongs to
// the closed country vocabulary.
func ValidCountryCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !twoLetterCode.MatchString(code) {
		return false
	}
	return CountryCodes[code]
}

// SplitMultiValue splits on the standard multi-value delimiters and trims
// entries, dropping empties.
func SplitMultiValue(value string) []string {
	var out []string
	for _, part := range multiValueSplit.Split(value, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
