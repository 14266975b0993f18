// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package config_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/hookenv/hookenvtesting"
)

type ConfigSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&ConfigSuite{})

func (s *ConfigSuite) TestDefaults(c *gc.C) {
	cfg, err := config.New(map[string]interface{}{})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cfg.String(config.OpenStackOrigin), gc.Equals, "distro")
	c.Check(cfg.String(config.DefaultRole), gc.Equals, "Member")
	c.Check(cfg.String(config.Webroot), gc.Equals, "/horizon")
	c.Check(cfg.Int(config.HAMcastPort), gc.Equals, 5410)
	c.Check(cfg.Flag(config.UbuntuTheme), jc.IsTrue)
	c.Check(cfg.Flag(config.Debug), jc.IsFalse)
	c.Check(cfg.IsSet(config.VIP), jc.IsFalse)
	c.Check(cfg.IsSet(config.Secret), jc.IsFalse)
}

func (s *ConfigSuite) TestNilMeansUnset(c *gc.C) {
	cfg, err := config.New(map[string]interface{}{
		config.Webroot: nil,
		config.VIP:     nil,
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cfg.String(config.Webroot), gc.Equals, "/horizon")
	c.Check(cfg.VIPs(), gc.HasLen, 0)
}

func (s *ConfigSuite) TestUnknownOptionsIgnored(c *gc.C) {
	cfg, err := config.New(map[string]interface{}{"harden": "apache"})
	c.Assert(err, jc.ErrorIsNil)
	_, ok := cfg.Attributes()["harden"]
	c.Check(ok, jc.IsFalse)
}

func (s *ConfigSuite) TestJSONNumbersCoerced(c *gc.C) {
	cfg, err := config.New(map[string]interface{}{
		config.HAMcastPort: float64(5420),
		config.PreferIPv6:  true,
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cfg.Int(config.HAMcastPort), gc.Equals, 5420)
	c.Check(cfg.Bool(config.PreferIPv6), jc.IsTrue)
}

func (s *ConfigSuite) TestBadType(c *gc.C) {
	_, err := config.New(map[string]interface{}{config.PreferIPv6: []string{"x"}})
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
}

func (s *ConfigSuite) TestRead(c *gc.C) {
	env := hookenvtesting.NewEnvironment("openstack-dashboard/0")
	env.Settings[config.Debug] = "yes"
	cfg, err := config.Read(env)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(cfg.Flag(config.Debug), jc.IsTrue)
}

func (s *ConfigSuite) TestBoolFromString(c *gc.C) {
	for _, t := range []struct {
		in  string
		out bool
	}{
		{"yes", true}, {"Yes", true}, {"true", true}, {"on", true},
		{"no", false}, {"False", false}, {"", false}, {"off", false},
	} {
		v, err := config.BoolFromString(t.in)
		c.Check(err, jc.ErrorIsNil)
		c.Check(v, gc.Equals, t.out, gc.Commentf("%q", t.in))
	}
	_, err := config.BoolFromString("maybe")
	c.Check(err, jc.Satisfies, errors.IsNotValid)
}

func (s *ConfigSuite) TestEndpointTypes(c *gc.C) {
	cfg, err := config.New(map[string]interface{}{config.EndpointType: "internalURL,PUBLICURL"})
	c.Assert(err, jc.ErrorIsNil)
	types, err := cfg.EndpointTypes()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(types, jc.DeepEquals, []string{"internalURL", "publicURL"})
}

func (s *ConfigSuite) TestEndpointTypesInvalid(c *gc.C) {
	cfg, err := config.New(map[string]interface{}{config.EndpointType: "this_is_bad"})
	c.Assert(err, jc.ErrorIsNil)
	_, err = cfg.EndpointTypes()
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
	c.Assert(err, gc.ErrorMatches, `endpoint type "this_is_bad" not valid`)
}

func (s *ConfigSuite) TestEndpointTypesUnset(c *gc.C) {
	cfg, err := config.New(nil)
	c.Assert(err, jc.ErrorIsNil)
	types, err := cfg.EndpointTypes()
	c.Assert(err, jc.ErrorIsNil)
	c.Check(types, gc.IsNil)
}
