package navprogress

import (
	"fmt"
	"net/url"
	"strings"

	sanitize "github.com/mrz1836/go-sanitize"
	"golang.org/x/net/idna"
)

// AbsoluteURL resolves a possibly-relative URL string against the document
// location base. The input is trimmed and stripped of characters that are
// never valid in a URL before parsing. The result is always absolute, and
// the function is idempotent on already-absolute input.
func AbsoluteURL(raw, base string) (string, error) {
	raw = sanitize.URL(strings.TrimSpace(raw))
	if raw == "" {
		return "", fmt.Errorf("empty URL")
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base %q: %w", base, err)
	}
	u, err := b.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	return u.String(), nil
}

// SameOrigin reports whether a and b share scheme, host and port. Hosts are
// compared in their IDNA ASCII form so unicode and punycode spellings of
// the same domain match, and default ports are elided before comparing.
func SameOrigin(a, b string) (bool, error) {
	ua, err := url.Parse(a)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", a, err)
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", b, err)
	}
	return originOf(ua) == originOf(ub), nil
}

// SamePageAnchor reports whether a and b address the same document and
// differ at most in their fragment component.
func SamePageAnchor(a, b string) (bool, error) {
	ua, err := url.Parse(a)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", a, err)
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", b, err)
	}
	ua.Fragment, ua.RawFragment = "", ""
	ub.Fragment, ub.RawFragment = "", ""
	return ua.String() == ub.String(), nil
}

// IsWebScheme reports whether rawURL uses http or https.
func IsWebScheme(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

// originOf returns scheme://host[:port] with the host lowercased and
// IDNA-encoded and the scheme's default port dropped.
func originOf(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	scheme := strings.ToLower(u.Scheme)
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}
