// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hookenv gives charm code access to the unit agent's hook tools.
//
// The agent exposes configuration, relation data and unit status through
// small executables (config-get, relation-get, status-set and friends) that
// are on PATH while a hook or action runs. Everything the charm knows about
// the outside world comes through the interfaces in this package, so the
// rest of the charm can be tested against hookenvtesting.Environment.
package hookenv

import (
	"github.com/juju/loggo/v2"
)

// Status is a workload status value accepted by status-set.
type Status string

const (
	Active      Status = "active"
	Blocked     Status = "blocked"
	Waiting     Status = "waiting"
	Maintenance Status = "maintenance"
)

// Config reads the charm's configuration.
type Config interface {
	// ConfigGetAll returns every charm option, including unset ones as nil.
	ConfigGetAll() (map[string]interface{}, error)
}

// Relations reads and writes relation data. A relation that is not
// established simply has no ids; it is not an error.
type Relations interface {
	// RelationIDs returns the ids of all relations with the given
	// endpoint name.
	RelationIDs(name string) ([]string, error)

	// RelatedUnits returns the remote units on a relation.
	RelatedUnits(relationID string) ([]string, error)

	// RelationGet returns a single setting of a remote unit. Empty
	// relationID and unit mean the relation and remote unit of the
	// running hook. A missing key returns the empty string.
	RelationGet(key, unit, relationID string) (string, error)

	// RelationSettings returns all settings of a remote unit.
	RelationSettings(unit, relationID string) (map[string]string, error)

	// RelationSet publishes settings for the local unit. An empty
	// relationID means the relation of the running hook.
	RelationSet(relationID string, settings map[string]string) error
}

// Unit reports facts about, and on behalf of, the local unit.
type Unit interface {
	LocalUnit() string
	UnitGet(attribute string) (string, error)

	// NetworkPrimaryAddress returns the address bound to an endpoint.
	// It returns an error satisfying errors.IsNotSupported when the
	// agent is too old to answer.
	NetworkPrimaryAddress(binding string) (string, error)

	IsLeader() (bool, error)
	StatusSet(status Status, message string) error
	ApplicationVersionSet(version string) error
	OpenPort(port int, protocol string) error
	Log(level loggo.Level, message string) error
}

// Actions is only usable while an action is running.
type Actions interface {
	ActionGet() (map[string]interface{}, error)
	ActionSet(values map[string]string) error
	ActionFail(message string) error
}

// Environment is everything a hook or action can ask of the agent.
type Environment interface {
	Config
	Relations
	Unit
	Actions

	// CharmDir is where the charm is unpacked.
	CharmDir() string
}
