// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenv

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/internal/runner"
)

// Tools implements Environment by running the hook tools.
type Tools struct {
	runner   runner.Runner
	unitName string
	charmDir string
}

// NewTools returns Tools for the hook context described by the
// process environment.
func NewTools(r runner.Runner) *Tools {
	return &Tools{
		runner:   r,
		unitName: os.Getenv("JUJU_UNIT_NAME"),
		charmDir: os.Getenv("CHARM_DIR"),
	}
}

// NewToolsForUnit is NewTools with an explicit unit and charm directory.
func NewToolsForUnit(r runner.Runner, unitName, charmDir string) *Tools {
	return &Tools{runner: r, unitName: unitName, charmDir: charmDir}
}

func (t *Tools) runJSON(out interface{}, name string, args ...string) error {
	args = append([]string{"--format=json"}, args...)
	data, err := t.runner.Run(name, args...)
	if err != nil {
		return errors.Trace(err)
	}
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Annotatef(err, "parsing %s output", name)
	}
	return nil
}

// CharmDir implements Environment.
func (t *Tools) CharmDir() string {
	return t.charmDir
}

// ConfigGetAll implements Config.
func (t *Tools) ConfigGetAll() (map[string]interface{}, error) {
	settings := make(map[string]interface{})
	if err := t.runJSON(&settings, "config-get", "--all"); err != nil {
		return nil, errors.Trace(err)
	}
	return settings, nil
}

// RelationIDs implements Relations.
func (t *Tools) RelationIDs(name string) ([]string, error) {
	var ids []string
	if err := t.runJSON(&ids, "relation-ids", name); err != nil {
		return nil, errors.Trace(err)
	}
	return ids, nil
}

// RelatedUnits implements Relations.
func (t *Tools) RelatedUnits(relationID string) ([]string, error) {
	var args []string
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	var units []string
	if err := t.runJSON(&units, "relation-list", args...); err != nil {
		return nil, errors.Trace(err)
	}
	return units, nil
}

// RelationGet implements Relations.
func (t *Tools) RelationGet(key, unit, relationID string) (string, error) {
	var args []string
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	args = append(args, key)
	if unit != "" {
		args = append(args, unit)
	}
	var value *string
	if err := t.runJSON(&value, "relation-get", args...); err != nil {
		return "", errors.Trace(err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// RelationSettings implements Relations.
func (t *Tools) RelationSettings(unit, relationID string) (map[string]string, error) {
	var args []string
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	args = append(args, "-")
	if unit != "" {
		args = append(args, unit)
	}
	settings := make(map[string]string)
	if err := t.runJSON(&settings, "relation-get", args...); err != nil {
		return nil, errors.Trace(err)
	}
	return settings, nil
}

// RelationSet implements Relations.
func (t *Tools) RelationSet(relationID string, settings map[string]string) error {
	if len(settings) == 0 {
		return nil
	}
	var args []string
	if relationID != "" {
		args = append(args, "-r", relationID)
	}
	args = append(args, keyValues(settings)...)
	_, err := t.runner.Run("relation-set", args...)
	return errors.Trace(err)
}

// LocalUnit implements Unit.
func (t *Tools) LocalUnit() string {
	return t.unitName
}

// UnitGet implements Unit.
func (t *Tools) UnitGet(attribute string) (string, error) {
	out, err := t.runner.Run("unit-get", attribute)
	if err != nil {
		return "", errors.Trace(err)
	}
	return strings.TrimSpace(string(out)), nil
}

// NetworkPrimaryAddress implements Unit.
func (t *Tools) NetworkPrimaryAddress(binding string) (string, error) {
	out, err := t.runner.Run("network-get", "--primary-address", binding)
	if err != nil {
		return "", errors.NewNotSupported(err, "network-get")
	}
	return strings.TrimSpace(string(out)), nil
}

// IsLeader implements Unit.
func (t *Tools) IsLeader() (bool, error) {
	var leader bool
	if err := t.runJSON(&leader, "is-leader"); err != nil {
		return false, errors.Trace(err)
	}
	return leader, nil
}

// StatusSet implements Unit.
func (t *Tools) StatusSet(status Status, message string) error {
	_, err := t.runner.Run("status-set", string(status), message)
	return errors.Trace(err)
}

// ApplicationVersionSet implements Unit.
func (t *Tools) ApplicationVersionSet(version string) error {
	_, err := t.runner.Run("application-version-set", version)
	return errors.Trace(err)
}

// OpenPort implements Unit.
func (t *Tools) OpenPort(port int, protocol string) error {
	_, err := t.runner.Run("open-port", fmt.Sprintf("%d/%s", port, protocol))
	return errors.Trace(err)
}

// Log implements Unit.
func (t *Tools) Log(level loggo.Level, message string) error {
	_, err := t.runner.Run("juju-log", "-l", logLevel(level), message)
	return errors.Trace(err)
}

// ActionGet implements Actions.
func (t *Tools) ActionGet() (map[string]interface{}, error) {
	params := make(map[string]interface{})
	if err := t.runJSON(&params, "action-get"); err != nil {
		return nil, errors.Trace(err)
	}
	return params, nil
}

// ActionSet implements Actions.
func (t *Tools) ActionSet(values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := t.runner.Run("action-set", keyValues(values)...)
	return errors.Trace(err)
}

// ActionFail implements Actions.
func (t *Tools) ActionFail(message string) error {
	_, err := t.runner.Run("action-fail", message)
	return errors.Trace(err)
}

func keyValues(settings map[string]string) []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k + "=" + settings[k]
	}
	return out
}

// logLevel maps a loggo level onto the names juju-log accepts.
func logLevel(level loggo.Level) string {
	switch {
	case level >= loggo.ERROR:
		return "ERROR"
	case level == loggo.WARNING:
		return "WARNING"
	case level == loggo.INFO:
		return "INFO"
	default:
		return "DEBUG"
	}
}
