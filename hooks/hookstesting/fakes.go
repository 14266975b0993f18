// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hookstesting provides in-memory collaborators for exercising
// hooks and actions.
package hookstesting

import (
	"time"

	"github.com/juju/clock/testclock"
	"github.com/juju/errors"
	"github.com/juju/testing"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/hookenv/hookenvtesting"
	"github.com/juju/charm-openstack-dashboard/hooks"
	"github.com/juju/charm-openstack-dashboard/templating"
)

// Packages records package operations. Installed maps package names to
// versions and is updated by Install.
type Packages struct {
	*testing.Stub
	Installed map[string]string
}

func (p *Packages) Update() error {
	p.AddCall("Update")
	return p.NextErr()
}

func (p *Packages) Install(pkgs ...string) error {
	p.AddCall("Install", pkgs)
	if err := p.NextErr(); err != nil {
		return err
	}
	for _, pkg := range pkgs {
		if _, ok := p.Installed[pkg]; !ok {
			p.Installed[pkg] = "1.0"
		}
	}
	return nil
}

func (p *Packages) Upgrade(dist bool, options ...string) error {
	p.AddCall("Upgrade", dist, options)
	return p.NextErr()
}

func (p *Packages) InstalledVersion(pkg string) (string, error) {
	v, ok := p.Installed[pkg]
	if !ok {
		return "", errors.NotFoundf("package %q", pkg)
	}
	return v, nil
}

func (p *Packages) FilterInstalled(pkgs []string) ([]string, error) {
	var missing []string
	for _, pkg := range pkgs {
		if _, ok := p.Installed[pkg]; !ok {
			missing = append(missing, pkg)
		}
	}
	return missing, nil
}

// CompareInstalled reports every package as missing, so the legacy
// apache layout is used.
func (p *Packages) CompareInstalled(pkg, revno string) (int, error) {
	return 0, errors.NotFoundf("package %q", pkg)
}

func (p *Packages) ConfigureSource(source string) error {
	p.AddCall("ConfigureSource", source)
	return p.NextErr()
}

// Services records service operations and tracks which are stopped.
type Services struct {
	*testing.Stub
	Stopped map[string]bool
}

func (s *Services) Start(name string) error {
	s.AddCall("Start", name)
	delete(s.Stopped, name)
	return s.NextErr()
}

func (s *Services) Stop(name string) error {
	s.AddCall("Stop", name)
	s.Stopped[name] = true
	return s.NextErr()
}

func (s *Services) Restart(name string) error {
	s.AddCall("Restart", name)
	return s.NextErr()
}

func (s *Services) Running(name string) (bool, error) {
	return !s.Stopped[name], nil
}

// Runner records commands as a single slice argument.
type Runner struct {
	*testing.Stub
}

func (r Runner) Run(name string, args ...string) ([]byte, error) {
	r.AddCall("Run", append([]string{name}, args...))
	return nil, r.NextErr()
}

// State is an in-memory unit state.
type State struct {
	Values map[string]string
	Paused bool
}

func (m *State) Memoize(key string, generate func() (string, error)) (string, error) {
	if v, ok := m.Values[key]; ok {
		return v, nil
	}
	v, err := generate()
	if err != nil {
		return "", err
	}
	m.Values[key] = v
	return v, nil
}

func (m *State) IsPaused() (bool, error) { return m.Paused, nil }

func (m *State) SetPaused(paused bool) error {
	m.Paused = paused
	return nil
}

// Network answers from fixed tables. Addresses missing from Ifaces or
// Masks are NotFound.
type Network struct {
	IPv6   []string
	Ifaces map[string]string
	Masks  map[string]string
}

func (n *Network) IPv6Address(exclude ...string) (string, error) {
	if len(n.IPv6) == 0 {
		return "", errors.NotFoundf("global IPv6 address")
	}
	return n.IPv6[0], nil
}

func (n *Network) IPv6Addresses(exclude ...string) ([]string, error) {
	return n.IPv6, nil
}

func (n *Network) InterfaceForAddress(address string) (string, error) {
	iface, ok := n.Ifaces[address]
	if !ok {
		return "", errors.NotFoundf("interface for %s", address)
	}
	return iface, nil
}

func (n *Network) NetmaskForAddress(address string) (string, error) {
	mask, ok := n.Masks[address]
	if !ok {
		return "", errors.NotFoundf("interface for %s", address)
	}
	return mask, nil
}

// Fixture holds one set of fakes. Fields may be adjusted before
// Collaborators is called.
type Fixture struct {
	Hook     *hookenvtesting.Environment
	Packages *Packages
	Services *Services
	Runner   Runner
	State    *State
	Network  *Network
	Clock    *testclock.Clock
	Paths    paths.Collection
	Series   string
}

// NewFixture returns fakes for unit openstack-dashboard/0 on xenial with
// every path under root.
func NewFixture(root string) *Fixture {
	hook := hookenvtesting.NewEnvironment("openstack-dashboard/0")
	hook.Addresses["private-address"] = "10.5.0.1"
	hook.Addresses["public-address"] = "10.5.0.1"
	hook.Settings[config.Secret] = "sekrit"
	return &Fixture{
		Hook:     hook,
		Packages: &Packages{Stub: &testing.Stub{}, Installed: map[string]string{}},
		Services: &Services{Stub: &testing.Stub{}, Stopped: map[string]bool{}},
		Runner:   Runner{&testing.Stub{}},
		State:    &State{Values: map[string]string{}},
		Network: &Network{
			Ifaces: map[string]string{},
			Masks:  map[string]string{"10.5.0.1": "255.255.255.0"},
		},
		Clock:  testclock.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		Paths:  paths.ForRoot(root),
		Series: "xenial",
	}
}

// Collaborators wires the fakes together with the embedded templates.
func (f *Fixture) Collaborators() hooks.Collaborators {
	return hooks.Collaborators{
		Hook:      f.Hook,
		Runner:    f.Runner,
		Packages:  f.Packages,
		Services:  f.Services,
		State:     f.State,
		Network:   f.Network,
		Clock:     f.Clock,
		Paths:     f.Paths,
		Series:    f.Series,
		Templates: templating.Templates(),
	}
}
