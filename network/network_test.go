// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package network_test

import (
	"net"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/network"
)

type stubSource struct {
	links []netlink.Link
	addrs map[string][]netlink.Addr
}

func (s *stubSource) Links() ([]netlink.Link, error) {
	return s.links, nil
}

func (s *stubSource) Addrs(link netlink.Link, family int) ([]netlink.Addr, error) {
	var out []netlink.Addr
	for _, a := range s.addrs[link.Attrs().Name] {
		isV4 := a.IP.To4() != nil
		if (family == unix.AF_INET) == isV4 {
			out = append(out, a)
		}
	}
	return out, nil
}

func mustAddr(c *gc.C, cidr string, scope int, flags int) netlink.Addr {
	addr, err := netlink.ParseAddr(cidr)
	c.Assert(err, jc.ErrorIsNil)
	addr.Scope = scope
	addr.Flags = flags
	return *addr
}

type networkSuite struct {
	testing.IsolationSuite

	host *network.Host
}

var _ = gc.Suite(&networkSuite{})

func (s *networkSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	source := &stubSource{
		links: []netlink.Link{
			&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "lo"}},
			&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth0"}},
			&netlink.Dummy{LinkAttrs: netlink.LinkAttrs{Name: "eth1"}},
		},
		addrs: map[string][]netlink.Addr{
			"lo": {
				mustAddr(c, "127.0.0.1/8", unix.RT_SCOPE_HOST, 0),
				mustAddr(c, "::1/128", unix.RT_SCOPE_HOST, 0),
			},
			"eth0": {
				mustAddr(c, "10.5.0.10/24", unix.RT_SCOPE_UNIVERSE, 0),
				mustAddr(c, "fe80::1/64", unix.RT_SCOPE_LINK, 0),
				mustAddr(c, "fd00::10/64", unix.RT_SCOPE_UNIVERSE, 0),
				mustAddr(c, "2001:db8::10/64", unix.RT_SCOPE_UNIVERSE, 0),
				mustAddr(c, "2001:db8::99/64", unix.RT_SCOPE_UNIVERSE, unix.IFA_F_TEMPORARY),
			},
			"eth1": {
				mustAddr(c, "192.168.20.1/16", unix.RT_SCOPE_UNIVERSE, 0),
			},
		},
	}
	s.host = network.NewHostFromSource(source)
}

func (s *networkSuite) TestInterfaceForAddress(c *gc.C) {
	iface, err := s.host.InterfaceForAddress("10.5.0.100")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(iface, gc.Equals, "eth0")

	iface, err = s.host.InterfaceForAddress("192.168.99.1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(iface, gc.Equals, "eth1")

	iface, err = s.host.InterfaceForAddress("2001:db8::50")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(iface, gc.Equals, "eth0")

	_, err = s.host.InterfaceForAddress("172.16.0.1")
	c.Check(err, jc.Satisfies, errors.IsNotFound)

	_, err = s.host.InterfaceForAddress("not-an-ip")
	c.Check(err, jc.Satisfies, errors.IsNotValid)
}

func (s *networkSuite) TestNetmaskForAddress(c *gc.C) {
	mask, err := s.host.NetmaskForAddress("10.5.0.100")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(mask, gc.Equals, "255.255.255.0")

	mask, err = s.host.NetmaskForAddress("2001:db8::50")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(mask, gc.Equals, "64")
}

func (s *networkSuite) TestNetworkForAddress(c *gc.C) {
	cidr, err := s.host.NetworkForAddress("192.168.20.1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cidr, gc.Equals, "192.168.0.0/16")
}

func (s *networkSuite) TestIPv6Addresses(c *gc.C) {
	addrs, err := s.host.IPv6Addresses()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(addrs, jc.DeepEquals, []string{"2001:db8::10", "fd00::10"})

	addr, err := s.host.IPv6Address("2001:db8::10")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(addr, gc.Equals, "fd00::10")

	_, err = s.host.IPv6Address("2001:db8::10 fd00::10")
	c.Check(err, jc.Satisfies, errors.IsNotFound)
}

func (s *networkSuite) TestFormatIPv6(c *gc.C) {
	c.Check(network.FormatIPv6("2001:db8::1"), gc.Equals, "[2001:db8::1]")
	c.Check(network.FormatIPv6("10.0.0.1"), gc.Equals, "10.0.0.1")
	c.Check(network.FormatIPv6("keystone.local"), gc.Equals, "keystone.local")
	c.Check(network.IsIPv6("::1"), jc.IsTrue)
	c.Check(network.IsIPv6("10.0.0.1"), jc.IsFalse)
}

func (s *networkSuite) TestResolveAddress(c *gc.C) {
	restore := network.PatchLookupIP(func(host string) ([]net.IP, error) {
		c.Check(host, gc.Equals, "dashboard.local")
		return []net.IP{net.ParseIP("10.0.0.7")}, nil
	})
	defer restore()

	addr, err := network.ResolveAddress("10.0.0.1")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(addr, gc.Equals, "10.0.0.1")

	addr, err = network.ResolveAddress("dashboard.local")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(addr, gc.Equals, "10.0.0.7")
}
