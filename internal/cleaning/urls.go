package cleaning

import (
	"regexp"
	"strings"

	"github.com/regdata/register-pipeline/internal/registry"
)

var domainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.[a-zA-Z]{2,}`)

// looksLikeURL reports whether a fragment plausibly names a web address.
func looksLikeURL(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "www.") {
		return true
	}
	return domainPattern.MatchString(value)
}

// withScheme prefixes https:// when a URL-ish fragment lacks a scheme.
func withScheme(value string) string {
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}
	return "https://" + value
}

// rejoinURLs splits a multiline website value into fragments, keeps the
// URL-shaped ones with a default scheme, dedupes preserving order and
// rejoins with the multi-value delimiter. When nothing URL-shaped remains
// the lines are simply flattened to a single space-joined string.
func rejoinURLs(value string) string {
	parts := whitespaceRun.Split(strings.TrimSpace(value), -1)
	var urls []string
	seen := make(map[string]bool)
	for _, part := range parts {
		part = strings.TrimSpace(strings.Trim(part, registry.MultiValueDelimiter))
		if part == "" || !looksLikeURL(part) {
			continue
		}
		u := withScheme(part)
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return strings.Join(parts, " ")
	}
	return strings.Join(urls, registry.MultiValueDelimiter)
}
