// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package service picks the service control backend for the host.
package service

import (
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/internal/runner"
	"github.com/juju/charm-openstack-dashboard/service/systemd"
)

var logger = loggo.GetLogger("dashboard.service")

// Controller starts, stops and restarts services by name.
type Controller interface {
	Start(name string) error
	Stop(name string) error
	Restart(name string) error
	Running(name string) (bool, error)
}

// This exists to allow patching during tests.
var systemdRunning = systemd.IsRunning

// DiscoverController returns a systemd backed Controller when systemd is
// the init system, and one driving the service(8) command otherwise.
func DiscoverController(r runner.Runner) Controller {
	if systemdRunning() {
		logger.Debugf("using systemd for service control")
		return systemd.NewManagerWithDefaults()
	}
	logger.Debugf("using service(8) for service control")
	return &Command{runner: r}
}

// Command controls services through the service(8) wrapper.
type Command struct {
	runner runner.Runner
}

// NewCommand returns a Command using r.
func NewCommand(r runner.Runner) *Command {
	return &Command{runner: r}
}

func (c *Command) run(name, action string) error {
	_, err := c.runner.Run("service", name, action)
	return errors.Annotatef(err, "%s %s", action, name)
}

// Start implements Controller.
func (c *Command) Start(name string) error {
	return c.run(name, "start")
}

// Stop implements Controller.
func (c *Command) Stop(name string) error {
	return c.run(name, "stop")
}

// Restart implements Controller.
func (c *Command) Restart(name string) error {
	return c.run(name, "restart")
}

// Running implements Controller. A non-zero status exit means stopped.
func (c *Command) Running(name string) (bool, error) {
	out, err := c.runner.Run("service", name, "status")
	if runner.IsExitError(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Annotatef(err, "status %s", name)
	}
	status := string(out)
	return !strings.Contains(status, "stop/waiting") && !strings.Contains(status, "not running"), nil
}
