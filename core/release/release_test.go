// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package release_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/core/release"
)

type releaseSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&releaseSuite{})

func (s *releaseSuite) TestOrdering(c *gc.C) {
	c.Check(release.Mitaka.AtLeast(release.Mitaka), jc.IsTrue)
	c.Check(release.Newton.AtLeast(release.Mitaka), jc.IsTrue)
	c.Check(release.Liberty.AtLeast(release.Mitaka), jc.IsFalse)
	c.Check(release.Icehouse.Before(release.Juno), jc.IsTrue)
	c.Check(release.Unknown.Before(release.Diablo), jc.IsTrue)
	c.Check(release.Codename("bogus").IsKnown(), jc.IsFalse)
}

func (s *releaseSuite) TestOlder(c *gc.C) {
	c.Check(release.Grizzly.Older(), jc.DeepEquals, []release.Codename{
		release.Folsom, release.Essex, release.Diablo,
	})
	c.Check(release.Diablo.Older(), gc.HasLen, 0)
	c.Check(release.Unknown.Older(), gc.HasLen, 0)
}

func (s *releaseSuite) TestFromPackageVersion(c *gc.C) {
	for version, expected := range map[string]release.Codename{
		"1:2014.1.5-0ubuntu2":      release.Icehouse,
		"2015.1.0-0ubuntu1":        release.Kilo,
		"2:8.0.1-0ubuntu1":         release.Liberty,
		"2:9.0.0-0ubuntu2":         release.Mitaka,
		"3:10.0.0-0ubuntu1~cloud0": release.Newton,
		"3:11.0.1-0ubuntu1":        release.Ocata,
	} {
		codename, err := release.FromPackageVersion(version)
		c.Check(err, jc.ErrorIsNil)
		c.Check(codename, gc.Equals, expected, gc.Commentf("%s", version))
	}
	_, err := release.FromPackageVersion("42.0")
	c.Check(err, jc.Satisfies, errors.IsNotFound)
}

func (s *releaseSuite) TestFromInstallSource(c *gc.C) {
	for _, t := range []struct {
		source   string
		series   string
		expected release.Codename
	}{
		{"distro", "trusty", release.Icehouse},
		{"", "xenial", release.Mitaka},
		{"distro-proposed", "zesty", release.Ocata},
		{"cloud:trusty-liberty", "trusty", release.Liberty},
		{"cloud:xenial-ocata/proposed", "xenial", release.Ocata},
		{"ppa:ubuntu-cloud-archive/newton-staging", "xenial", release.Newton},
		{"deb http://ubuntu-cloud.archive.canonical.com/ubuntu trusty-updates/kilo main", "trusty", release.Kilo},
	} {
		codename, err := release.FromInstallSource(t.source, t.series)
		c.Check(err, jc.ErrorIsNil)
		c.Check(codename, gc.Equals, t.expected, gc.Commentf("%s", t.source))
	}
}

func (s *releaseSuite) TestFromInstallSourceErrors(c *gc.C) {
	_, err := release.FromInstallSource("cloud:xenial-zebra", "xenial")
	c.Check(err, jc.Satisfies, errors.IsNotValid)
	_, err = release.FromInstallSource("distro", "bionic")
	c.Check(err, jc.Satisfies, errors.IsNotFound)
	_, err = release.FromInstallSource("something", "xenial")
	c.Check(err, jc.Satisfies, errors.IsNotValid)
}
