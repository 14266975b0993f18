// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/contexts"
	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/hookenv/hookenvtesting"
)

type fakeNetwork struct {
	ipv6     string
	netmasks map[string]string
}

func (n *fakeNetwork) IPv6Address(exclude ...string) (string, error) {
	if n.ipv6 == "" {
		return "", errors.NotFoundf("global IPv6 address")
	}
	return n.ipv6, nil
}

func (n *fakeNetwork) NetmaskForAddress(address string) (string, error) {
	mask, ok := n.netmasks[address]
	if !ok {
		return "", errors.NotFoundf("interface for %s", address)
	}
	return mask, nil
}

type memoStore map[string]string

func (m memoStore) Memoize(key string, generate func() (string, error)) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	v, err := generate()
	if err != nil {
		return "", err
	}
	m[key] = v
	return v, nil
}

// baseSuite gives each test a fake hook environment rooted in a
// temporary directory.
type baseSuite struct {
	testing.IsolationSuite

	env      *hookenvtesting.Environment
	settings map[string]interface{}
	network  *fakeNetwork
	state    memoStore
	deps     *contexts.Deps
}

func (s *baseSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.env = hookenvtesting.NewEnvironment("openstack-dashboard/0")
	s.env.Addresses["private-address"] = "10.5.0.1"
	s.settings = make(map[string]interface{})
	s.network = &fakeNetwork{netmasks: map[string]string{"10.5.0.1": "255.255.255.0"}}
	s.state = make(memoStore)
	s.deps = &contexts.Deps{
		Env:     s.env,
		Paths:   paths.ForRoot(c.MkDir()),
		Network: s.network,
		State:   s.state,
		Release: release.Mitaka,
	}
	s.loadConfig(c)
}

// set updates a charm option and re-reads the configuration.
func (s *baseSuite) set(c *gc.C, key string, value interface{}) {
	s.settings[key] = value
	s.loadConfig(c)
}

func (s *baseSuite) loadConfig(c *gc.C) {
	cfg, err := config.New(s.settings)
	c.Assert(err, jc.ErrorIsNil)
	s.deps.Config = cfg
}

func (s *baseSuite) context(c *gc.C, p contexts.Provider) contexts.Context {
	ctx, err := p.Context()
	c.Assert(err, jc.ErrorIsNil)
	return ctx
}
