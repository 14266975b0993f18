// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooks

import (
	"io/fs"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/juju/charm-openstack-dashboard/contexts"
	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/hookenv"
	"github.com/juju/charm-openstack-dashboard/internal/runner"
	"github.com/juju/charm-openstack-dashboard/registry"
	"github.com/juju/charm-openstack-dashboard/restart"
	"github.com/juju/charm-openstack-dashboard/service"
	"github.com/juju/charm-openstack-dashboard/status"
	"github.com/juju/charm-openstack-dashboard/templating"
)

// RestartDelay is the pause after stopping each service when restarting
// because configuration changed. apache2 can fail to rebind its ports if
// started again immediately.
const RestartDelay = 3 * time.Second

// Packages installs and inspects Debian packages.
type Packages interface {
	Update() error
	Install(packages ...string) error
	Upgrade(dist bool, options ...string) error
	InstalledVersion(pkg string) (string, error)
	FilterInstalled(pkgs []string) ([]string, error)
	CompareInstalled(pkg, revno string) (int, error)
	ConfigureSource(source string) error
}

// UnitState is the unit's persistent state.
type UnitState interface {
	contexts.Memoizer
	IsPaused() (bool, error)
	SetPaused(paused bool) error
}

// Network answers questions about the host's addresses.
type Network interface {
	contexts.Network
	InterfaceForAddress(address string) (string, error)
	IPv6Addresses(exclude ...string) ([]string, error)
}

// Collaborators are the host facilities an invocation works through.
type Collaborators struct {
	Hook      hookenv.Environment
	Runner    runner.Runner
	Packages  Packages
	Services  service.Controller
	State     UnitState
	Network   Network
	Clock     clock.Clock
	Paths     paths.Collection
	Series    string
	Templates fs.FS
}

// Validate returns an error if c is missing a collaborator.
func (c Collaborators) Validate() error {
	switch {
	case c.Hook == nil:
		return errors.NotValidf("nil Hook")
	case c.Runner == nil:
		return errors.NotValidf("nil Runner")
	case c.Packages == nil:
		return errors.NotValidf("nil Packages")
	case c.Services == nil:
		return errors.NotValidf("nil Services")
	case c.State == nil:
		return errors.NotValidf("nil State")
	case c.Network == nil:
		return errors.NotValidf("nil Network")
	case c.Clock == nil:
		return errors.NotValidf("nil Clock")
	case c.Templates == nil:
		return errors.NotValidf("nil Templates")
	}
	return nil
}

// Environment is everything one hook or action invocation works with. It
// is built once per process.
type Environment struct {
	Collaborators

	Config   *config.Config
	Deps     *contexts.Deps
	Registry *registry.Registry
	Renderer *templating.Renderer
	Restarts *restart.Coordinator
}

// NewEnvironment reads the charm configuration, works out the installed
// release and builds the registry, renderer and restart coordinator.
func NewEnvironment(c Collaborators) (*Environment, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	cfg, err := config.Read(c.Hook)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rel, err := CurrentRelease(c.Packages, cfg, c.Series)
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Debugf("openstack release %q on %q", rel, c.Series)

	deps := &contexts.Deps{
		Config:  cfg,
		Env:     c.Hook,
		Paths:   c.Paths,
		Network: c.Network,
		State:   c.State,
		Runner:  c.Runner,
		Release: rel,
	}
	reg, err := registry.New(deps, c.Packages)
	if err != nil {
		return nil, errors.Annotate(err, "registering config files")
	}
	coordinator, err := restart.NewCoordinator(restart.Config{
		RestartMap: reg.RestartMap(),
		Services:   c.Services,
		Paused:     c.State,
		Clock:      c.Clock,
		StopStart:  true,
		Delay:      RestartDelay,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Environment{
		Collaborators: c,
		Config:        cfg,
		Deps:          deps,
		Registry:      reg,
		Renderer:      templating.NewRenderer(reg, c.Templates, rel),
		Restarts:      coordinator,
	}, nil
}

// CurrentRelease is the release of the installed dashboard, or the one
// openstack-origin will install if the dashboard is not installed yet.
func CurrentRelease(pkgs Packages, cfg *config.Config, series string) (release.Codename, error) {
	version, err := pkgs.InstalledVersion(status.VersionPackage)
	if err == nil {
		rel, err := release.FromPackageVersion(version)
		return rel, errors.Trace(err)
	} else if !errors.IsNotFound(err) {
		return release.Unknown, errors.Trace(err)
	}
	rel, err := release.FromInstallSource(cfg.String(config.OpenStackOrigin), series)
	return rel, errors.Trace(err)
}

// Release is the release whose templates are in use.
func (e *Environment) Release() release.Codename {
	return e.Renderer.Release()
}

// SetRelease switches templates and providers to rel. The set of managed
// files depends on the release, so the registry is rebuilt.
func (e *Environment) SetRelease(rel release.Codename) error {
	e.Deps.Release = rel
	reg, err := registry.New(e.Deps, e.Packages)
	if err != nil {
		return errors.Annotate(err, "registering config files")
	}
	e.Registry = reg
	e.Renderer = templating.NewRenderer(reg, e.Templates, rel)
	e.Restarts.SetRestartMap(reg.RestartMap())
	return nil
}

// WithRestarts runs fn, restarting services whose configuration it
// changed.
func (e *Environment) WithRestarts(fn func() error) error {
	return e.Restarts.OnChange(fn)
}

// RenderAll writes every managed file.
func (e *Environment) RenderAll() error {
	_, err := e.Renderer.RenderAll()
	return errors.Trace(err)
}

// Assessor returns the workload status assessor for the unit.
func (e *Environment) Assessor() *status.Assessor {
	return &status.Assessor{
		Config:    e.Config,
		Relations: e.Hook,
		Contexts:  e.Renderer,
		Services:  e.Registry.Services(),
		Status:    e.Services,
		Paused:    e.State,
	}
}

// AssessStatus sets the workload status and application version.
func (e *Environment) AssessStatus() error {
	if err := e.Assessor().Set(e.Hook); err != nil {
		return errors.Annotate(err, "assessing status")
	}
	return errors.Trace(status.SetApplicationVersion(e.Hook, e.Packages))
}
