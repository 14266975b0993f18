// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"time"

	"github.com/juju/clock"
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo/v2"
	"github.com/juju/lumberjack/v2"
	"github.com/juju/mutex/v2"
	"github.com/juju/os/v2/series"

	"github.com/juju/charm-openstack-dashboard/actions"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/hookenv"
	"github.com/juju/charm-openstack-dashboard/hooks"
	"github.com/juju/charm-openstack-dashboard/internal/runner"
	"github.com/juju/charm-openstack-dashboard/network"
	"github.com/juju/charm-openstack-dashboard/packaging"
	"github.com/juju/charm-openstack-dashboard/service"
	"github.com/juju/charm-openstack-dashboard/templating"
	"github.com/juju/charm-openstack-dashboard/unitstate"
)

const aptSourcesDir = "/etc/apt/sources.list.d"

// Hooks are serialised by the unit agent, but a run invoked by hand is
// not, so every invocation takes this machine-wide lock.
const (
	lockName    = "openstack-dashboard-hooks"
	lockDelay   = 250 * time.Millisecond
	lockTimeout = 10 * time.Minute
)

func acquireLock() (mutex.Releaser, error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    lockName,
		Clock:   clock.WallClock,
		Delay:   lockDelay,
		Timeout: lockTimeout,
	})
	return releaser, errors.Annotate(err, "acquiring hook lock")
}

// addFileLogging copies every log entry into a rotated file under the
// charm's state directory.
func addFileLogging(filename string) error {
	writer := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    10, // megabytes
		MaxBackups: 2,
		Compress:   true,
	}
	return errors.Trace(loggo.RegisterWriter("file", loggo.NewSimpleWriter(writer, loggo.DefaultFormatter)))
}

// execute runs a hook, or an action if isAction is set, against the
// real host.
func execute(name string, isAction bool, logLevel string) error {
	if logLevel != "" {
		if err := loggo.ConfigureLoggers("<root>=" + logLevel); err != nil {
			return errors.Annotate(err, "configuring logging")
		}
	}
	r := runner.New()
	tools := hookenv.NewTools(r)
	if err := loggo.RegisterWriter("juju-log", hookenv.NewLogWriter(tools)); err != nil {
		return errors.Trace(err)
	}
	defer func() { _, _ = loggo.RemoveWriter("juju-log") }()
	if err := addFileLogging(paths.Host.LogFile()); err != nil {
		logger.Warningf("unable to configure file logging: %v", err)
	} else {
		defer func() { _, _ = loggo.RemoveWriter("file") }()
	}

	releaser, err := acquireLock()
	if err != nil {
		return errors.Trace(err)
	}
	defer releaser.Release()

	hostSeries, err := series.HostSeries()
	if err != nil {
		return errors.Annotate(err, "detecting host series")
	}
	state, err := unitstate.Open(paths.Host.UnitStateDB())
	if err != nil {
		return errors.Trace(err)
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Warningf("closing unit state: %v", err)
		}
	}()

	e, err := hooks.NewEnvironment(hooks.Collaborators{
		Hook:      tools,
		Runner:    r,
		Packages:  packaging.NewApt(r, clock.WallClock, aptSourcesDir, hostSeries),
		Services:  service.DiscoverController(r),
		State:     state,
		Network:   network.NewHost(),
		Clock:     clock.WallClock,
		Paths:     paths.Host,
		Series:    hostSeries,
		Templates: templating.Templates(),
	})
	if err != nil {
		return errors.Trace(err)
	}
	if isAction {
		return errors.Trace(actions.Run(e, name))
	}
	return errors.Trace(hooks.Default().Run(e, name))
}

func isActionName(name string) bool {
	_, ok := actions.Default[name]
	return ok
}

// dispatchCommand runs the hook or action named by the symlink the
// binary was invoked through.
type dispatchCommand struct {
	cmd.CommandBase
	name string
}

func newDispatchCommand(name string) *dispatchCommand {
	return &dispatchCommand{name: name}
}

func (c *dispatchCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    c.name,
		Purpose: "run the " + c.name + " hook or action",
	}
}

func (c *dispatchCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

func (c *dispatchCommand) Run(ctx *cmd.Context) error {
	return execute(c.name, isActionName(c.name), "")
}

// runCommand runs a named hook or action explicitly.
type runCommand struct {
	cmd.CommandBase
	name     string
	action   bool
	logLevel string
}

func newRunCommand() *runCommand {
	return &runCommand{}
}

func (c *runCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "run",
		Args:    "<hook-or-action>",
		Purpose: "run a hook or action",
		Doc: `
Runs the named hook. Names of actions (openstack-upgrade, pause, resume)
run the action instead; --action forces action dispatch.
`,
	}
}

func (c *runCommand) SetFlags(f *gnuflag.FlagSet) {
	f.BoolVar(&c.action, "action", false, "run an action rather than a hook")
	f.StringVar(&c.logLevel, "log-level", "", "root log level, such as DEBUG")
}

func (c *runCommand) Init(args []string) error {
	if len(args) == 0 {
		return errors.New("no hook or action specified")
	}
	c.name, args = args[0], args[1:]
	if c.action && !isActionName(c.name) {
		return errors.NotValidf("action %q", c.name)
	}
	return cmd.CheckEmpty(args)
}

func (c *runCommand) Run(ctx *cmd.Context) error {
	return execute(c.name, c.action || isActionName(c.name), c.logLevel)
}
