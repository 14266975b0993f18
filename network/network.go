// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package network answers questions about the host's addresses: which
// interface carries a subnet, its netmask, and the unit's global IPv6
// address.
package network

import (
	"net"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

// Source reads links and addresses from the kernel.
type Source interface {
	Links() ([]netlink.Link, error)
	Addrs(link netlink.Link, family int) ([]netlink.Addr, error)
}

type netlinkSource struct{}

func (netlinkSource) Links() ([]netlink.Link, error) {
	return netlink.LinkList()
}

func (netlinkSource) Addrs(link netlink.Link, family int) ([]netlink.Addr, error) {
	return netlink.AddrList(link, family)
}

// Host reads the host's own network configuration.
type Host struct {
	source Source
}

// NewHost returns a Host backed by netlink.
func NewHost() *Host {
	return &Host{source: netlinkSource{}}
}

// NewHostFromSource returns a Host backed by source.
func NewHostFromSource(source Source) *Host {
	return &Host{source: source}
}

type linkAddr struct {
	link netlink.Link
	addr netlink.Addr
}

func (h *Host) addrs(family int) ([]linkAddr, error) {
	links, err := h.source.Links()
	if err != nil {
		return nil, errors.Annotate(err, "listing links")
	}
	var out []linkAddr
	for _, link := range links {
		addrs, err := h.source.Addrs(link, family)
		if err != nil {
			return nil, errors.Annotatef(err, "listing addresses of %q", link.Attrs().Name)
		}
		for _, addr := range addrs {
			if addr.IPNet == nil {
				continue
			}
			out = append(out, linkAddr{link: link, addr: addr})
		}
	}
	return out, nil
}

func (h *Host) find(address string) (*linkAddr, error) {
	ip := net.ParseIP(address)
	if ip == nil {
		return nil, errors.NotValidf("IP address %q", address)
	}
	family := unix.AF_INET
	if ip.To4() == nil {
		family = unix.AF_INET6
	}
	addrs, err := h.addrs(family)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, la := range addrs {
		if la.addr.IPNet.Contains(ip) {
			found := la
			return &found, nil
		}
	}
	return nil, errors.NotFoundf("interface for %s", address)
}

// InterfaceForAddress returns the name of the interface whose subnet
// contains address.
func (h *Host) InterfaceForAddress(address string) (string, error) {
	la, err := h.find(address)
	if err != nil {
		return "", errors.Trace(err)
	}
	return la.link.Attrs().Name, nil
}

// NetmaskForAddress returns the netmask of the subnet containing address:
// dotted quad for IPv4, prefix length for IPv6.
func (h *Host) NetmaskForAddress(address string) (string, error) {
	la, err := h.find(address)
	if err != nil {
		return "", errors.Trace(err)
	}
	mask := la.addr.IPNet.Mask
	if IsIPv6(address) {
		ones, _ := mask.Size()
		return strconv.Itoa(ones), nil
	}
	return net.IP(mask).String(), nil
}

// NetworkForAddress returns the CIDR of the subnet containing address.
func (h *Host) NetworkForAddress(address string) (string, error) {
	la, err := h.find(address)
	if err != nil {
		return "", errors.Trace(err)
	}
	network := net.IPNet{
		IP:   la.addr.IPNet.IP.Mask(la.addr.IPNet.Mask),
		Mask: la.addr.IPNet.Mask,
	}
	return network.String(), nil
}

// IPv6Addresses returns the host's global, non-temporary IPv6 addresses,
// leaving out any in exclude (typically the VIPs). Public addresses come
// before unique local ones.
func (h *Host) IPv6Addresses(exclude ...string) ([]string, error) {
	addrs, err := h.addrs(unix.AF_INET6)
	if err != nil {
		return nil, errors.Trace(err)
	}
	skip := make(map[string]bool)
	for _, e := range exclude {
		for _, f := range strings.Fields(e) {
			skip[f] = true
		}
	}
	var out []string
	for _, la := range addrs {
		if la.addr.Scope != unix.RT_SCOPE_UNIVERSE {
			continue
		}
		if la.addr.Flags&(unix.IFA_F_TEMPORARY|unix.IFA_F_DEPRECATED) != 0 {
			continue
		}
		ip := la.addr.IPNet.IP.String()
		if skip[ip] {
			continue
		}
		out = append(out, ip)
	}
	if len(out) == 0 {
		return nil, errors.NotFoundf("global IPv6 address")
	}
	SortByScope(out)
	return out, nil
}

// IPv6Address returns the first global IPv6 address not in exclude.
func (h *Host) IPv6Address(exclude ...string) (string, error) {
	addrs, err := h.IPv6Addresses(exclude...)
	if err != nil {
		return "", errors.Trace(err)
	}
	return addrs[0], nil
}

// IsIPv6 reports whether address is a literal IPv6 address.
func IsIPv6(address string) bool {
	ip := net.ParseIP(address)
	return ip != nil && ip.To4() == nil
}

// FormatIPv6 wraps a literal IPv6 address in brackets for use in URLs.
// Anything else is returned unchanged.
func FormatIPv6(address string) string {
	if IsIPv6(address) {
		return "[" + address + "]"
	}
	return address
}

var lookupIP = net.LookupIP

// ResolveAddress returns address if it is already an IP, otherwise the
// first address it resolves to.
func ResolveAddress(address string) (string, error) {
	if net.ParseIP(address) != nil {
		return address, nil
	}
	ips, err := lookupIP(address)
	if err != nil {
		return "", errors.Annotatef(err, "resolving %q", address)
	}
	if len(ips) == 0 {
		return "", errors.NotFoundf("address for %q", address)
	}
	return ips[0].String(), nil
}
