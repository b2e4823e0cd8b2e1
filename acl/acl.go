// Copyright 2026 The pixl-request Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package acl

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrDenied is wrapped by every error returned from a failed check.
// Test for it with errors.Is.
var ErrDenied = errors.New("pixlrequest/acl: address denied")

// PrivateAndLocal lists the address ranges that are never routable on
// the public internet: RFC 1918 private ranges, loopback, link-local
// (including the cloud metadata address), and their IPv6 equivalents.
// Use it as a deny list to keep a client from being steered at internal
// infrastructure by attacker-controlled URLs or DNS answers.
var PrivateAndLocal = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// An ACL restricts which IP addresses a client may connect to. The
// engine applies it twice per attempt: to the target host before any
// cache or socket work when the host is an IP literal (or a cached
// address), and to every address produced by name resolution, so a
// hostile DNS answer cannot reach the connect phase.
//
// Deny wins over allow. An empty ACL permits everything. A non-empty
// Allow list denies any address it does not cover.
//
// The zero value permits everything. An ACL must not be modified while
// a client is using it.
type ACL struct {
	// Allow lists the prefixes connections are restricted to. Empty
	// means no restriction.
	Allow []netip.Prefix

	// Deny lists the prefixes connections may never target. Deny is
	// checked before Allow.
	Deny []netip.Prefix
}

// Parse builds an ACL from textual prefixes. Each element may be a
// CIDR prefix ("10.0.0.0/8") or a bare address ("192.0.2.1",
// "2001:db8::1"), which is treated as a single-address prefix.
func Parse(allow, deny []string) (*ACL, error) {
	a, err := parsePrefixes(allow)
	if err != nil {
		return nil, err
	}
	d, err := parsePrefixes(deny)
	if err != nil {
		return nil, err
	}
	return &ACL{Allow: a, Deny: d}, nil
}

// DenyPrivate returns an ACL that rejects the PrivateAndLocal ranges
// and permits everything else.
func DenyPrivate() *ACL {
	return &ACL{Deny: PrivateAndLocal}
}

// CheckAddr reports whether addr may be connected to. The returned
// error is nil when the address is permitted and wraps ErrDenied when
// it is not. IPv4-mapped IPv6 addresses are checked as their IPv4
// form.
func (a *ACL) CheckAddr(addr netip.Addr) error {
	if a == nil {
		return nil
	}
	addr = addr.Unmap()
	for _, p := range a.Deny {
		if p.Contains(addr) {
			return fmt.Errorf("%w: %s matches deny list %s", ErrDenied, addr, p)
		}
	}
	if len(a.Allow) == 0 {
		return nil
	}
	for _, p := range a.Allow {
		if p.Contains(addr) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not on allow list", ErrDenied, addr)
}

// CheckHost applies CheckAddr when host is an IP literal. Hostnames
// pass: they can only be judged once resolved, which the engine does
// through its resolution hook. The host must be bare, without port or
// brackets, as returned by url.URL's Hostname method.
func (a *ACL) CheckHost(host string) error {
	if a == nil {
		return nil
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	return a.CheckAddr(addr)
}

func parsePrefixes(specs []string) ([]netip.Prefix, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	prefixes := make([]netip.Prefix, 0, len(specs))
	for _, spec := range specs {
		if strings.ContainsRune(spec, '/') {
			p, err := netip.ParsePrefix(spec)
			if err != nil {
				return nil, fmt.Errorf("pixlrequest/acl: invalid prefix %q: %w", spec, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(spec)
		if err != nil {
			return nil, fmt.Errorf("pixlrequest/acl: invalid address %q: %w", spec, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
