// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package actions_test

import (
	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/juju/charm-openstack-dashboard/actions"
	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/hookenv"
	"github.com/juju/charm-openstack-dashboard/hookenv/hookenvtesting"
	"github.com/juju/charm-openstack-dashboard/hooks"
	"github.com/juju/charm-openstack-dashboard/hooks/hookstesting"
)

type actionsSuite struct {
	testing.IsolationSuite
	*hookstesting.Fixture
}

var _ = gc.Suite(&actionsSuite{})

func (s *actionsSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.Fixture = hookstesting.NewFixture(c.MkDir())
	s.Series = "trusty"
	s.Packages.Installed["openstack-dashboard"] = "1:2015.1.2-0ubuntu1"
}

func (s *actionsSuite) newEnvironment(c *gc.C) *hooks.Environment {
	e, err := hooks.NewEnvironment(s.Collaborators())
	c.Assert(err, jc.ErrorIsNil)
	return e
}

func (s *actionsSuite) TestNames(c *gc.C) {
	c.Assert(actions.Names(), jc.DeepEquals, []string{"openstack-upgrade", "pause", "resume"})
}

func (s *actionsSuite) TestRunUnknown(c *gc.C) {
	err := actions.Run(s.newEnvironment(c), "backup")
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}

func (s *actionsSuite) TestUpgradeFromSource(c *gc.C) {
	s.Hook.Settings[config.OpenStackOriginGit] = "repositories: []"
	err := actions.Run(s.newEnvironment(c), "openstack-upgrade")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.Hook.ActionValues["outcome"], gc.Equals, actions.OutcomeFromSource)
}

func (s *actionsSuite) TestUpgradeNoneAvailable(c *gc.C) {
	err := actions.Run(s.newEnvironment(c), "openstack-upgrade")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.Hook.ActionValues["outcome"], gc.Equals, actions.OutcomeNoUpgrade)
	s.Packages.CheckNoCalls(c)
}

func (s *actionsSuite) TestUpgradeNotManaged(c *gc.C) {
	s.Hook.Settings[config.OpenStackOrigin] = "cloud:trusty-liberty"
	err := actions.Run(s.newEnvironment(c), "openstack-upgrade")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.Hook.ActionValues["outcome"], gc.Equals, actions.OutcomeNotManaged)
	s.Packages.CheckNoCalls(c)
}

func (s *actionsSuite) TestUpgradeSuccess(c *gc.C) {
	s.Hook.Settings[config.OpenStackOrigin] = "cloud:trusty-liberty"
	s.Hook.Settings[config.ActionManagedUpgrade] = true
	e := s.newEnvironment(c)

	err := actions.Run(e, "openstack-upgrade")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.Hook.ActionValues["outcome"], gc.Equals, actions.OutcomeSuccess)
	c.Assert(s.Hook.ActionFailed, gc.Equals, "")
	c.Assert(e.Release(), gc.Equals, release.Liberty)
	s.Packages.CheckCallNames(c, "ConfigureSource", "Update", "Upgrade", "Install")
}

func (s *actionsSuite) TestUpgradeFailure(c *gc.C) {
	s.Hook.Settings[config.OpenStackOrigin] = "cloud:trusty-liberty"
	s.Hook.Settings[config.ActionManagedUpgrade] = true
	s.Packages.SetErrors(nil, nil, errors.New("dpkg was interrupted"))
	e := s.newEnvironment(c)

	err := actions.Run(e, "openstack-upgrade")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.Hook.ActionValues["outcome"], gc.Equals, actions.OutcomeUpgradeFailed)
	c.Assert(s.Hook.ActionValues["traceback"], jc.Contains, "dpkg was interrupted")
	c.Assert(s.Hook.ActionFailed, gc.Equals, "do_openstack_upgrade resulted in an unexpected error")
	c.Assert(e.Release(), gc.Equals, release.Kilo)
}

func (s *actionsSuite) TestPause(c *gc.C) {
	err := actions.Run(s.newEnvironment(c), "pause")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.State.Paused, jc.IsTrue)
	s.Services.CheckCalls(c, []testing.StubCall{
		{FuncName: "Stop", Args: []interface{}{"apache2"}},
		{FuncName: "Stop", Args: []interface{}{"haproxy"}},
	})
	c.Assert(s.Hook.LastStatus().Status, gc.Equals, hookenv.Maintenance)
}

func (s *actionsSuite) TestPauseStopFailure(c *gc.C) {
	s.Services.SetErrors(errors.New("unit busy"))
	err := actions.Run(s.newEnvironment(c), "pause")
	c.Assert(err, gc.ErrorMatches, "running action pause: stopping apache2: unit busy")
	c.Assert(s.Hook.ActionFailed, gc.Equals, "stopping apache2: unit busy")
	c.Assert(s.State.Paused, jc.IsFalse)
}

func (s *actionsSuite) TestResumeWithoutRelations(c *gc.C) {
	s.State.Paused = true
	s.Services.Stopped["apache2"] = true
	s.Services.Stopped["haproxy"] = true
	err := actions.Run(s.newEnvironment(c), "resume")
	c.Assert(err, gc.ErrorMatches, "running action resume: Couldn't resume: Missing relations: identity")
	c.Assert(s.State.Paused, jc.IsFalse)
	s.Services.CheckCallNames(c, "Start", "Start")
}

func (s *actionsSuite) TestResume(c *gc.C) {
	s.State.Paused = true
	s.Hook.AddRelation("identity-service").AddUnit("keystone/0", map[string]string{
		"service_host": "10.5.0.20",
		"service_port": "5000",
	})
	err := actions.Run(s.newEnvironment(c), "resume")
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.Hook.LastStatus(), gc.Equals, hookenvtesting.StatusCall{
		Status:  hookenv.Active,
		Message: "Unit is ready",
	})
}
