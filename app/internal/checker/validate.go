package checker

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrMissingHost       = errors.New("missing host")
	ErrMetadataTarget    = errors.New("cloud metadata endpoints are not allowed")
)

var metadataHosts = map[string]bool{
	"metadata.google.internal": true,
	"metadata":                 true,
}

var metadataNets = []*net.IPNet{
	mustCIDR("169.254.169.254/32"),
	mustCIDR("fd00:ec2::254/128"),
}

func mustCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

func isCloudMetadataIP(ip net.IP) bool {
	for _, n := range metadataNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ValidateTarget checks that a target URL has a supported scheme, a host,
// and does not point at a cloud metadata service.
func ValidateTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse %q: %w", target, err)
	}

	switch strings.ToLower(u.Scheme) {
	case SchemeHTTP, SchemeHTTPS, SchemeTCP:
	case SchemeDNS:
		if strings.Trim(u.Path, "/") == "" {
			return fmt.Errorf("%q: dns target needs a name to resolve", target)
		}
	default:
		return fmt.Errorf("%q: %w %q", target, ErrUnsupportedScheme, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%q: %w", target, ErrMissingHost)
	}
	if strings.EqualFold(u.Scheme, SchemeTCP) && u.Port() == "" {
		return fmt.Errorf("%q: tcp target needs a port", target)
	}
	if metadataHosts[strings.ToLower(host)] {
		return fmt.Errorf("%q: %w", target, ErrMetadataTarget)
	}
	if ip := net.ParseIP(host); ip != nil && isCloudMetadataIP(ip) {
		return fmt.Errorf("%q: %w", target, ErrMetadataTarget)
	}
	return nil
}

// IsHTTP reports whether the target is probed over HTTP(S)
func IsHTTP(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == SchemeHTTP || s == SchemeHTTPS
}

// IsDNS reports whether the target is a dns:// probe
func IsDNS(target string) bool {
	u, err := url.Parse(target)
	return err == nil && strings.EqualFold(u.Scheme, SchemeDNS)
}
