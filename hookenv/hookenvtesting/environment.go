// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenvtesting

import (
	"fmt"
	"sort"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/hookenv"
)

// Relation is one established relation as seen by the fake.
type Relation struct {
	ID   string
	Name string
	// Units lists the remote units in the order the agent reports them.
	Units []string
	// Settings holds each remote unit's settings.
	Settings map[string]map[string]string
	// Local records what the local unit published with relation-set.
	Local map[string]string
}

// StatusCall records a status-set invocation.
type StatusCall struct {
	Status  hookenv.Status
	Message string
}

// Environment is an in-memory hookenv.Environment.
type Environment struct {
	Unit      string
	Dir       string
	Settings  map[string]interface{}
	Leader    bool
	Addresses map[string]string
	// Bindings maps endpoint names to network-get addresses. A missing
	// binding behaves like an agent without network-get.
	Bindings map[string]string

	// CurrentRelation and RemoteUnit describe the running hook.
	CurrentRelation string
	RemoteUnit      string

	ActionParams map[string]interface{}

	Relations    []*Relation
	Statuses     []StatusCall
	Version      string
	Ports        []string
	Logs         []string
	ActionValues map[string]string
	ActionFailed string
}

var _ hookenv.Environment = (*Environment)(nil)

// NewEnvironment returns an empty fake for the given unit.
func NewEnvironment(unit string) *Environment {
	return &Environment{
		Unit:         unit,
		Settings:     make(map[string]interface{}),
		Addresses:    make(map[string]string),
		Bindings:     make(map[string]string),
		ActionParams: make(map[string]interface{}),
		ActionValues: make(map[string]string),
	}
}

// AddRelation adds a relation with the next free id for its name.
func (e *Environment) AddRelation(name string) *Relation {
	n := 0
	for _, r := range e.Relations {
		if r.Name == name {
			n++
		}
	}
	r := &Relation{
		ID:       fmt.Sprintf("%s:%d", name, n),
		Name:     name,
		Settings: make(map[string]map[string]string),
		Local:    make(map[string]string),
	}
	e.Relations = append(e.Relations, r)
	return r
}

// AddUnit adds a remote unit with the given settings.
func (r *Relation) AddUnit(unit string, settings map[string]string) *Relation {
	r.Units = append(r.Units, unit)
	if settings == nil {
		settings = make(map[string]string)
	}
	r.Settings[unit] = settings
	return r
}

func (e *Environment) relation(id string) (*Relation, error) {
	if id == "" {
		id = e.CurrentRelation
	}
	for _, r := range e.Relations {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.NotFoundf("relation %q", id)
}

// CharmDir implements hookenv.Environment.
func (e *Environment) CharmDir() string { return e.Dir }

// ConfigGetAll implements hookenv.Config.
func (e *Environment) ConfigGetAll() (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(e.Settings))
	for k, v := range e.Settings {
		out[k] = v
	}
	return out, nil
}

// RelationIDs implements hookenv.Relations.
func (e *Environment) RelationIDs(name string) ([]string, error) {
	var ids []string
	for _, r := range e.Relations {
		if r.Name == name {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// RelatedUnits implements hookenv.Relations.
func (e *Environment) RelatedUnits(relationID string) ([]string, error) {
	r, err := e.relation(relationID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), r.Units...), nil
}

// RelationGet implements hookenv.Relations.
func (e *Environment) RelationGet(key, unit, relationID string) (string, error) {
	settings, err := e.RelationSettings(unit, relationID)
	if err != nil {
		return "", err
	}
	return settings[key], nil
}

// RelationSettings implements hookenv.Relations.
func (e *Environment) RelationSettings(unit, relationID string) (map[string]string, error) {
	r, err := e.relation(relationID)
	if err != nil {
		return nil, err
	}
	if unit == "" {
		unit = e.RemoteUnit
	}
	out := make(map[string]string)
	for k, v := range r.Settings[unit] {
		out[k] = v
	}
	return out, nil
}

// RelationSet implements hookenv.Relations.
func (e *Environment) RelationSet(relationID string, settings map[string]string) error {
	r, err := e.relation(relationID)
	if err != nil {
		return err
	}
	for k, v := range settings {
		r.Local[k] = v
	}
	return nil
}

// LocalUnit implements hookenv.Unit.
func (e *Environment) LocalUnit() string { return e.Unit }

// UnitGet implements hookenv.Unit.
func (e *Environment) UnitGet(attribute string) (string, error) {
	return e.Addresses[attribute], nil
}

// NetworkPrimaryAddress implements hookenv.Unit.
func (e *Environment) NetworkPrimaryAddress(binding string) (string, error) {
	addr, ok := e.Bindings[binding]
	if !ok {
		return "", errors.NotSupportedf("network-get")
	}
	return addr, nil
}

// IsLeader implements hookenv.Unit.
func (e *Environment) IsLeader() (bool, error) { return e.Leader, nil }

// StatusSet implements hookenv.Unit.
func (e *Environment) StatusSet(status hookenv.Status, message string) error {
	e.Statuses = append(e.Statuses, StatusCall{Status: status, Message: message})
	return nil
}

// LastStatus returns the most recent status-set call.
func (e *Environment) LastStatus() StatusCall {
	if len(e.Statuses) == 0 {
		return StatusCall{}
	}
	return e.Statuses[len(e.Statuses)-1]
}

// ApplicationVersionSet implements hookenv.Unit.
func (e *Environment) ApplicationVersionSet(version string) error {
	e.Version = version
	return nil
}

// OpenPort implements hookenv.Unit.
func (e *Environment) OpenPort(port int, protocol string) error {
	e.Ports = append(e.Ports, fmt.Sprintf("%d/%s", port, protocol))
	sort.Strings(e.Ports)
	return nil
}

// Log implements hookenv.Unit.
func (e *Environment) Log(level loggo.Level, message string) error {
	e.Logs = append(e.Logs, level.String()+" "+message)
	return nil
}

// ActionGet implements hookenv.Actions.
func (e *Environment) ActionGet() (map[string]interface{}, error) {
	return e.ActionParams, nil
}

// ActionSet implements hookenv.Actions.
func (e *Environment) ActionSet(values map[string]string) error {
	for k, v := range values {
		e.ActionValues[k] = v
	}
	return nil
}

// ActionFail implements hookenv.Actions.
func (e *Environment) ActionFail(message string) error {
	e.ActionFailed = message
	return nil
}
