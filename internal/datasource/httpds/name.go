package httpds

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var unsafeRun = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// HashString returns the SHA-1 hex digest of s.
func HashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:])
}

// NameFromURL derives a display filename for a downloaded CSV. It prefers
// the last path segment, then the sanitized query string, and falls back to
// a hash of the whole URL. The result always ends in ".csv".
func NameFromURL(rawURL string) string {
	name := ""
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		} else if u.RawQuery != "" {
			name = u.RawQuery
		}
	}
	name = strings.Trim(unsafeRun.ReplaceAllString(name, "_"), "_.")
	if name == "" {
		name = HashString(rawURL)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".csv") {
		name += ".csv"
	}
	return name
}
