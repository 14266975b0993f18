// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package actions implements the operator-invoked actions of the charm.
package actions

import (
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/hookenv"
	"github.com/juju/charm-openstack-dashboard/hooks"
)

var logger = loggo.GetLogger("dashboard.actions")

// Upgrade outcomes reported through action-set.
const (
	OutcomeFromSource    = "installed from source, skipped upgrade."
	OutcomeSuccess       = "success, upgrade completed."
	OutcomeNotManaged    = "action-managed-upgrade config is False, skipped upgrade."
	OutcomeNoUpgrade     = "no upgrade available."
	OutcomeUpgradeFailed = "upgrade failed, see traceback."
)

// Action runs one action.
type Action func(e *hooks.Environment) error

// Default maps action names to their implementations.
var Default = map[string]Action{
	"openstack-upgrade": OpenStackUpgrade,
	"pause":             Pause,
	"resume":            Resume,
}

// Names returns the names of the default actions, sorted.
func Names() []string {
	names := make([]string, 0, len(Default))
	for name := range Default {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named action. A failing action is reported with
// action-fail as well as returned.
func Run(e *hooks.Environment, name string) error {
	action, ok := Default[name]
	if !ok {
		return errors.NotFoundf("action %q", name)
	}
	if err := action(e); err != nil {
		if failErr := e.Hook.ActionFail(err.Error()); failErr != nil {
			logger.Errorf("reporting action failure: %v", failErr)
		}
		return errors.Annotatef(err, "running action %s", name)
	}
	return nil
}

// OpenStackUpgrade upgrades to the release openstack-origin names, but
// only when upgrades are managed through this action.
func OpenStackUpgrade(e *hooks.Environment) error {
	outcome := func(s string) error {
		return errors.Trace(e.Hook.ActionSet(map[string]string{"outcome": s}))
	}
	if e.Config.IsSet(config.OpenStackOriginGit) {
		return outcome(OutcomeFromSource)
	}
	available, target, err := hooks.UpgradeAvailable(e)
	if err != nil {
		return errors.Trace(err)
	}
	if !available {
		return outcome(OutcomeNoUpgrade)
	}
	if !e.Config.Bool(config.ActionManagedUpgrade) {
		return outcome(OutcomeNotManaged)
	}

	logger.Infof("Upgrading OpenStack release to %s", target)
	upgradeErr := hooks.DoOpenStackUpgrade(e)
	if upgradeErr == nil {
		if err := outcome(OutcomeSuccess); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(e.AssessStatus())
	}
	logger.Errorf("upgrade to %s failed: %v", target, upgradeErr)
	err = e.Hook.ActionSet(map[string]string{
		"outcome":   OutcomeUpgradeFailed,
		"traceback": errors.ErrorStack(upgradeErr),
	})
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.Hook.ActionFail("do_openstack_upgrade resulted in an unexpected error"))
}

// Pause stops the dashboard's services and keeps them stopped across
// hooks until Resume.
func Pause(e *hooks.Environment) error {
	for _, svc := range e.Registry.Services() {
		if err := e.Services.Stop(svc); err != nil {
			return errors.Annotatef(err, "stopping %s", svc)
		}
	}
	if err := e.State.SetPaused(true); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(setStatus(e, "pause", hookenv.Maintenance))
}

// Resume starts the services again and clears the paused flag.
func Resume(e *hooks.Environment) error {
	for _, svc := range e.Registry.Services() {
		if err := e.Services.Start(svc); err != nil {
			return errors.Annotatef(err, "starting %s", svc)
		}
	}
	if err := e.State.SetPaused(false); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(setStatus(e, "resume", hookenv.Active, hookenv.Maintenance))
}

// setStatus assesses and sets the workload status, failing unless it is
// one of want.
func setStatus(e *hooks.Environment, verb string, want ...hookenv.Status) error {
	if err := e.AssessStatus(); err != nil {
		return errors.Trace(err)
	}
	status, message, err := e.Assessor().Assess()
	if err != nil {
		return errors.Trace(err)
	}
	for _, w := range want {
		if status == w {
			return nil
		}
	}
	return errors.Errorf("Couldn't %s: %s", verb, strings.TrimSpace(message))
}
