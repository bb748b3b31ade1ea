package validation

import (
	"regexp"
	"strings"
	"time"

	"github.com/regdata/register-pipeline/internal/registry"
)

// Known repairable glitches in published extracts: a stray dot before the
// year, with or without the slash, optionally padded with spaces.
// "01/12/.2025", "01/12.2025" and "01/12 .2025" all mean "01/12/2025".
var dateGlitchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{2}/\d{2})/\s*\.\s*(\d{4})$`),
	regexp.MustCompile(`^(\d{2}/\d{2})\.(\d{4})$`),
	regexp.MustCompile(`^(\d{2}/\d{2})\s+\.\s*(\d{4})$`),
}

// DateClass is the outcome of classifying one date value.
type DateClass struct {
	OK         bool
	Repairable bool
	// Repaired holds the corrected value when Repairable.
	Repaired string
}

// ClassifyDate checks a value against the accepted format set and the
// known-glitch patterns. Values fixable by a glitch rewrite are reported
// repairable with the corrected form; everything else either parses or is
// unparseable.
func ClassifyDate(value string) DateClass {
	value = strings.TrimSpace(value)
	if value == "" {
		return DateClass{}
	}

	for _, layout := range registry.DateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return DateClass{OK: true}
		}
	}

	for _, pat := range dateGlitchPatterns {
		if pat.MatchString(value) {
			repaired := pat.ReplaceAllString(value, "$1/$2")
			if _, err := time.Parse(registry.DateLayouts[0], repaired); err == nil {
				return DateClass{Repairable: true, Repaired: repaired}
			}
		}
	}

	// Trailing dots are another recurring artifact.
	if trimmed := strings.TrimRight(value, "."); trimmed != value {
		for _, layout := range registry.DateLayouts {
			if _, err := time.Parse(layout, trimmed); err == nil {
				return DateClass{Repairable: true, Repaired: trimmed}
			}
		}
	}

	return DateClass{}
}
