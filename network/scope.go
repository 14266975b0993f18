// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package network

import (
	"net"
	"sort"
)

// Private network ranges for IPv4 and IPv6.
// See: http://tools.ietf.org/html/rfc1918
// Also: http://tools.ietf.org/html/rfc4193
var (
	classAPrivate   = mustParseCIDR("10.0.0.0/8")
	classBPrivate   = mustParseCIDR("172.16.0.0/12")
	classCPrivate   = mustParseCIDR("192.168.0.0/16")
	ipv6UniqueLocal = mustParseCIDR("fc00::/7")
)

func mustParseCIDR(s string) *net.IPNet {
	_, ipNet, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return ipNet
}

// Scope denotes the context an address may be reached from.
type Scope string

const (
	ScopeUnknown      Scope = ""
	ScopePublic       Scope = "public"
	ScopeCloudLocal   Scope = "local-cloud"
	ScopeMachineLocal Scope = "local-machine"
	ScopeLinkLocal    Scope = "link-local"
)

// ScopeOf derives the scope of a literal IP address. Anything that does
// not parse is ScopeUnknown.
func ScopeOf(address string) Scope {
	ip := net.ParseIP(address)
	switch {
	case ip == nil:
		return ScopeUnknown
	case ip.IsLoopback():
		return ScopeMachineLocal
	case classAPrivate.Contains(ip), classBPrivate.Contains(ip),
		classCPrivate.Contains(ip), ipv6UniqueLocal.Contains(ip):
		return ScopeCloudLocal
	case ip.IsLinkLocalMulticast(), ip.IsLinkLocalUnicast(), ip.IsInterfaceLocalMulticast():
		return ScopeLinkLocal
	case ip.IsGlobalUnicast():
		return ScopePublic
	}
	return ScopeUnknown
}

var scopeOrder = map[Scope]int{
	ScopePublic:       0,
	ScopeCloudLocal:   1,
	ScopeLinkLocal:    2,
	ScopeMachineLocal: 3,
	ScopeUnknown:      4,
}

// SortByScope orders addresses public first, then cloud-local, keeping
// the original order within a scope.
func SortByScope(addresses []string) {
	sort.SliceStable(addresses, func(i, j int) bool {
		return scopeOrder[ScopeOf(addresses[i])] < scopeOrder[ScopeOf(addresses[j])]
	})
}
