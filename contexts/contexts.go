// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package contexts holds the providers that compute template variables
// for the dashboard's configuration files from charm config, relation
// data and host facts.
//
// A provider whose inputs are not yet available returns an empty Context
// rather than an error. Only provably invalid configuration is an error.
package contexts

import (
	"strings"

	"github.com/juju/loggo/v2"
	"github.com/juju/names/v5"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/hookenv"
	"github.com/juju/charm-openstack-dashboard/internal/runner"
)

var logger = loggo.GetLogger("dashboard.contexts")

// Relation names the providers read from.
const (
	IdentityServiceRelation = "identity-service"
	ClusterRelation         = "cluster"
	SharedDBRelation        = "shared-db"
	DashboardPluginRelation = "dashboard-plugin"
)

// Context is a flat set of template variables.
type Context map[string]interface{}

// Inputs declares what a provider reads.
type Inputs struct {
	Config    []string
	Relations []string
}

// Provider computes one Context.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Inputs returns the config options and relations the provider reads.
	Inputs() Inputs

	// Context computes the provider's variables.
	Context() (Context, error)
}

// Complete reports whether ctx is non-empty and has no unset values.
func Complete(ctx Context) bool {
	if len(ctx) == 0 {
		return false
	}
	for _, v := range ctx {
		if v == nil {
			return false
		}
		if s, ok := v.(string); ok && s == "" {
			return false
		}
	}
	return true
}

// Environment is the part of the hook environment providers read.
type Environment interface {
	hookenv.Relations
	hookenv.Unit
}

// Network answers questions about the host's addresses.
type Network interface {
	IPv6Address(exclude ...string) (string, error)
	NetmaskForAddress(address string) (string, error)
}

// Memoizer persists generated values across hook invocations.
type Memoizer interface {
	Memoize(key string, generate func() (string, error)) (string, error)
}

// Deps are the collaborators shared by every provider of one invocation.
type Deps struct {
	Config  *config.Config
	Env     Environment
	Paths   paths.Collection
	Network Network
	State   Memoizer
	Runner  runner.Runner
	Release release.Codename
}

// unitKey is the unit name in the form haproxy and the templates use as
// an identifier: "openstack-dashboard/0" becomes "openstack-dashboard-0".
func unitKey(unit string) string {
	if names.IsValidUnit(unit) {
		return strings.TrimPrefix(names.NewUnitTag(unit).String(), names.UnitTagKind+"-")
	}
	return strings.Replace(unit, "/", "-", -1)
}

// eachUnit calls fn with the settings of every unit on every relation
// called name, in discovery order. fn returns false to stop.
func eachUnit(env Environment, name string, fn func(relationID, unit string, settings map[string]string) bool) error {
	ids, err := env.RelationIDs(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		units, err := env.RelatedUnits(id)
		if err != nil {
			return err
		}
		for _, unit := range units {
			settings, err := env.RelationSettings(unit, id)
			if err != nil {
				return err
			}
			if !fn(id, unit, settings) {
				return nil
			}
		}
	}
	return nil
}

// localAddress is the address the local unit serves on: its global IPv6
// address in IPv6 mode, else its private address.
func localAddress(d *Deps) (string, error) {
	if d.Config.Bool(config.PreferIPv6) {
		return d.Network.IPv6Address(d.Config.VIPs()...)
	}
	return d.Env.UnitGet("private-address")
}
