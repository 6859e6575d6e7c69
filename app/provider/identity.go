package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// ArticleID derives a stable id from the immutable title and canonical url.
func ArticleID(title, rawURL string) string {
	content := fmt.Sprintf("%s|%s",
		strings.TrimSpace(title),
		CanonicalURL(rawURL))

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// CanonicalURL lowercases scheme and host, drops the fragment and a
// trailing slash so trivially different spellings hash the same.
func CanonicalURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	} else {
		u.Path = ""
	}

	return u.String()
}
