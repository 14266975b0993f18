// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package registry_test

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/contexts"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/registry"
)

type fakeProber struct {
	testing.Stub
	cmp int
}

func (f *fakeProber) CompareInstalled(pkg, revno string) (int, error) {
	f.AddCall("CompareInstalled", pkg, revno)
	return f.cmp, f.NextErr()
}

type registrySuite struct {
	testing.IsolationSuite

	deps   *contexts.Deps
	prober *fakeProber
}

var _ = gc.Suite(&registrySuite{})

func (s *registrySuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.deps = &contexts.Deps{
		Paths:   paths.ForRoot(c.MkDir()),
		Release: release.Mitaka,
	}
	s.prober = &fakeProber{}
}

func (s *registrySuite) mkdir(c *gc.C, dir string) {
	c.Assert(os.MkdirAll(dir, 0755), jc.ErrorIsNil)
}

func (s *registrySuite) touch(c *gc.C, path string) {
	s.mkdir(c, filepath.Dir(path))
	c.Assert(os.WriteFile(path, []byte("old"), 0644), jc.ErrorIsNil)
}

func (s *registrySuite) TestApache24Layout(c *gc.C) {
	p := s.deps.Paths
	s.mkdir(c, p.ApacheConfDir)
	s.prober.cmp = 1

	r, err := registry.New(s.deps, s.prober)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(r.Layout(), gc.Equals, registry.Apache24)
	c.Check(r.Paths(), jc.DeepEquals, []string{
		p.KeystoneV3Policy,
		p.LocalSettings,
		p.HAProxyConf,
		p.PortsConf,
		p.Apache24Default,
		p.Apache24Conf,
		p.Apache24SSL,
	})
	s.prober.CheckCall(c, 0, "CompareInstalled", "apache2", "2.4")
}

func (s *registrySuite) TestLegacyLayoutWithoutApacheDir(c *gc.C) {
	p := s.deps.Paths
	r, err := registry.New(s.deps, s.prober)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(r.Layout(), gc.Equals, registry.ApacheLegacy)
	c.Check(r.Paths()[4:], jc.DeepEquals, []string{p.ApacheDefault, p.ApacheConf, p.ApacheSSL})
	s.prober.CheckNoCalls(c)
}

func (s *registrySuite) TestLegacyLayoutOldApache(c *gc.C) {
	s.mkdir(c, s.deps.Paths.ApacheConfDir)
	s.prober.cmp = -1
	layout, err := registry.DetectLayout(s.deps.Paths.ApacheConfDir, s.prober)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(layout, gc.Equals, registry.ApacheLegacy)
}

func (s *registrySuite) TestLegacyLayoutApacheNotInstalled(c *gc.C) {
	s.mkdir(c, s.deps.Paths.ApacheConfDir)
	s.prober.SetErrors(errors.NotFoundf("package %q", "apache2"))
	layout, err := registry.DetectLayout(s.deps.Paths.ApacheConfDir, s.prober)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(layout, gc.Equals, registry.ApacheLegacy)
}

func (s *registrySuite) TestProbeFailure(c *gc.C) {
	s.mkdir(c, s.deps.Paths.ApacheConfDir)
	s.prober.SetErrors(errors.New("dpkg exploded"))
	_, err := registry.New(s.deps, s.prober)
	c.Assert(err, gc.ErrorMatches, "probing apache2 version: dpkg exploded")
}

func (s *registrySuite) TestStaleLayoutRemoved(c *gc.C) {
	p := s.deps.Paths
	for _, path := range []string{p.ApacheConf, p.ApacheSSL, p.ApacheDefault} {
		s.touch(c, path)
	}
	s.touch(c, p.Apache24Default)

	_, err := registry.NewForLayout(s.deps, registry.Apache24)
	c.Assert(err, jc.ErrorIsNil)
	for _, path := range []string{p.ApacheConf, p.ApacheSSL, p.ApacheDefault} {
		_, err := os.Stat(path)
		c.Check(os.IsNotExist(err), jc.IsTrue, gc.Commentf("%s", path))
	}
	_, err = os.Stat(p.Apache24Default)
	c.Check(err, jc.ErrorIsNil)
}

func (s *registrySuite) TestLayoutsAreExclusive(c *gc.C) {
	p := s.deps.Paths
	legacy := []string{p.ApacheConf, p.ApacheSSL, p.ApacheDefault}
	modern := []string{p.Apache24Conf, p.Apache24SSL, p.Apache24Default}
	for _, layout := range []registry.Layout{registry.ApacheLegacy, registry.Apache24} {
		r, err := registry.NewForLayout(s.deps, layout)
		c.Assert(err, jc.ErrorIsNil)
		active, inactive := legacy, modern
		if layout == registry.Apache24 {
			active, inactive = modern, legacy
		}
		for _, path := range active {
			_, err := r.Entry(path)
			c.Check(err, jc.ErrorIsNil)
		}
		for _, path := range inactive {
			_, err := r.Entry(path)
			c.Check(err, jc.Satisfies, errors.IsNotFound)
		}
	}
}

func (s *registrySuite) TestBeforeMitaka(c *gc.C) {
	s.deps.Release = release.Liberty
	r, err := registry.NewForLayout(s.deps, registry.ApacheLegacy)
	c.Assert(err, jc.ErrorIsNil)

	_, err = r.Entry(s.deps.Paths.KeystoneV3Policy)
	c.Check(err, jc.Satisfies, errors.IsNotFound)
	e, err := r.Entry(s.deps.Paths.LocalSettings)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(providerNames(e), jc.DeepEquals, []string{
		"horizon", "identity-service", "syslog", "local-settings",
	})
}

func (s *registrySuite) TestMitakaAddsSharedDB(c *gc.C) {
	r, err := registry.NewForLayout(s.deps, registry.ApacheLegacy)
	c.Assert(err, jc.ErrorIsNil)
	e, err := r.Entry(s.deps.Paths.LocalSettings)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(providerNames(e), jc.DeepEquals, []string{
		"horizon", "identity-service", "syslog", "local-settings", "shared-db",
	})
	c.Check(e.Template, gc.Equals, "local_settings.py")
}

func (s *registrySuite) TestRouterSettingWhenDirExists(c *gc.C) {
	p := s.deps.Paths
	s.mkdir(c, filepath.Dir(p.RouterSetting))
	r, err := registry.NewForLayout(s.deps, registry.Apache24)
	c.Assert(err, jc.ErrorIsNil)
	paths := r.Paths()
	c.Check(paths[len(paths)-1], gc.Equals, p.RouterSetting)
	e, err := r.Entry(p.RouterSetting)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(e.Template, gc.Equals, "_40_router.py")
}

func (s *registrySuite) TestRestartMapAndServices(c *gc.C) {
	p := s.deps.Paths
	r, err := registry.NewForLayout(s.deps, registry.Apache24)
	c.Assert(err, jc.ErrorIsNil)

	restarts := r.RestartMap()
	c.Assert(restarts, gc.HasLen, 7)
	c.Check(restarts[2], jc.DeepEquals, registry.RestartEntry{
		Path: p.HAProxyConf, Services: []string{"haproxy"},
	})
	c.Check(restarts[1].Services, jc.DeepEquals, []string{"apache2"})
	c.Check(r.Services(), jc.DeepEquals, []string{"apache2", "haproxy"})
}

func providerNames(e *registry.Entry) []string {
	var names []string
	for _, p := range e.Providers {
		names = append(names, p.Name())
	}
	return names
}
