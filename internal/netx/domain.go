// Package netx contains small networking helpers shared by the client.
package netx

import (
	"fmt"
	"net/url"
	"strings"
)

// RegistrableDomain extracts the host portion of a URL for use as a
// credential lookup key. The port, userinfo, and any path are stripped;
// a bare host without scheme is accepted too ("example.com/login").
func RegistrableDomain(rawURL string) (string, error) {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return "", fmt.Errorf("empty url")
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	return strings.ToLower(host), nil
}
