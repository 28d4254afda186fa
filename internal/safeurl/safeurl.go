// Package safeurl vets page URLs before anything is fetched or navigated.
package safeurl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrUnsafeScheme is returned for anything but http and https.
	ErrUnsafeScheme = errors.New("safeurl: only http and https schemes are allowed")

	// ErrPrivate is returned when the host is, or resolves to, a loopback,
	// link-local or private address.
	ErrPrivate = errors.New("safeurl: URL targets a private or loopback address")

	// ErrUnresolved is returned when private hosts are blocked and the
	// host cannot be resolved to check it.
	ErrUnresolved = errors.New("safeurl: host cannot be resolved")
)

// Check parses rawURL and rejects unsafe schemes and hostless URLs. With
// blockPrivate set the host is also resolved and every address must be
// public; a host that does not resolve is refused.
func Check(ctx context.Context, rawURL string, blockPrivate bool) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("safeurl: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("safeurl: URL has no host")
	}
	if !blockPrivate {
		return nil
	}

	if ip := net.ParseIP(host); ip != nil {
		if private(ip) {
			return ErrPrivate
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnresolved, host, err)
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip != nil && private(ip) {
			return ErrPrivate
		}
	}
	return nil
}

func private(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}
