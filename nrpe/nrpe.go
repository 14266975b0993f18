// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package nrpe registers the unit's checks with a related nagios
// nrpe-external-master subordinate.
package nrpe

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v2"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/hookenv"
)

var logger = loggo.GetLogger("dashboard.nrpe")

// Relation is the monitoring subordinate's relation.
const Relation = "nrpe-external-master"

// PluginsDir is where check plugins are installed.
const PluginsDir = "/usr/local/lib/nagios/plugins"

var shortnamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Check is one nagios check run through nrpe.
type Check struct {
	Shortname   string
	Description string
	Command     string
}

func (c Check) commandName() string {
	return "check_" + c.Shortname
}

// Validate returns an error if the check cannot be registered.
func (c Check) Validate() error {
	if !shortnamePattern.MatchString(c.Shortname) {
		return errors.NotValidf("check shortname %q", c.Shortname)
	}
	if strings.TrimSpace(c.Command) == "" {
		return errors.NotValidf("empty command for check %q", c.Shortname)
	}
	return nil
}

// Set is the full set of checks the unit exports.
type Set struct {
	hostname      string
	unit          string
	servicegroups string
	paths         paths.Collection
	checks        []Check
}

// Hostname is the name nagios knows the unit by.
func Hostname(context, unit string) string {
	return fmt.Sprintf("%s-%s", context, strings.Replace(unit, "/", "-", -1))
}

// NewSet returns an empty set of checks for unit.
func NewSet(cfg *config.Config, unit string, p paths.Collection) *Set {
	context := cfg.String(config.NagiosContext)
	groups := cfg.String(config.NagiosServiceGroups)
	if groups == "" {
		groups = context
	}
	return &Set{
		hostname:      Hostname(context, unit),
		unit:          unit,
		servicegroups: groups,
		paths:         p,
	}
}

// Add registers a check.
func (s *Set) Add(c Check) error {
	if err := c.Validate(); err != nil {
		return errors.Trace(err)
	}
	s.checks = append(s.checks, c)
	return nil
}

// Checks returns the registered checks.
func (s *Set) Checks() []Check {
	return append([]Check(nil), s.checks...)
}

// AddServiceChecks adds a systemd state check for each service.
func (s *Set) AddServiceChecks(services []string) error {
	for _, svc := range services {
		err := s.Add(Check{
			Shortname:   svc,
			Description: fmt.Sprintf("process check {%s}", s.unit),
			Command:     fmt.Sprintf("%s/check_systemd.py %s", PluginsDir, svc),
		})
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// AddHAProxyChecks adds the haproxy backend and queue depth checks.
func (s *Set) AddHAProxyChecks() error {
	for _, c := range []Check{{
		Shortname:   "haproxy_servers",
		Description: fmt.Sprintf("Check HAProxy {%s}", s.unit),
		Command:     PluginsDir + "/check_haproxy.sh",
	}, {
		Shortname:   "haproxy_queue",
		Description: fmt.Sprintf("Check HAProxy queue depth {%s}", s.unit),
		Command:     PluginsDir + "/check_haproxy_queue_depth.sh",
	}} {
		if err := s.Add(c); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

const checkHeader = `# check {{.Shortname}}
# The following header was added automatically by juju
# Modifying it will affect nagios monitoring and alerting
# servicegroups: {{.Groups}}
command[{{.Name}}]={{.Command}}
`

const serviceTemplate = `#---------------------------------------------------
# This file is Juju managed
#---------------------------------------------------
define service {
    use                             active-service
    host_name                       {{.Hostname}}
    service_description             {{.Hostname}}[{{.Shortname}}] {{.Description}}
    check_command                   check_nrpe!{{.Name}}
    servicegroups                   {{.Groups}}
}
`

var (
	checkTmpl   = template.Must(template.New("check").Parse(checkHeader))
	serviceTmpl = template.Must(template.New("service").Parse(serviceTemplate))
)

type checkVars struct {
	Check
	Name     string
	Hostname string
	Groups   string
}

func (s *Set) vars(c Check) checkVars {
	return checkVars{Check: c, Name: c.commandName(), Hostname: s.hostname, Groups: s.servicegroups}
}

// Write installs the nrpe check files, exports the nagios service
// definitions if the export directory exists and publishes the monitors
// on every nrpe-external-master relation. It reports whether any check
// file changed.
func (s *Set) Write(rel hookenv.Relations) (bool, error) {
	changed := false
	exportDir := s.paths.NagiosExportDir
	export, err := isDir(exportDir)
	if err != nil {
		return false, errors.Trace(err)
	}
	for _, c := range s.checks {
		vars := s.vars(c)
		path := filepath.Join(s.paths.NRPEConfDir, c.commandName()+".cfg")
		written, err := writeTemplate(path, checkTmpl, vars)
		if err != nil {
			return false, errors.Trace(err)
		}
		changed = changed || written
		if !export {
			continue
		}
		path = filepath.Join(exportDir, fmt.Sprintf("service__%s_%s.cfg", s.hostname, c.commandName()))
		if _, err := writeTemplate(path, serviceTmpl, vars); err != nil {
			return false, errors.Trace(err)
		}
	}

	monitors, err := s.Monitors()
	if err != nil {
		return false, errors.Trace(err)
	}
	ids, err := rel.RelationIDs(Relation)
	if err != nil {
		return false, errors.Trace(err)
	}
	for _, id := range ids {
		err := rel.RelationSet(id, map[string]string{"monitors": monitors})
		if err != nil {
			return false, errors.Annotatef(err, "publishing monitors on %s", id)
		}
	}
	return changed, nil
}

type monitorCommand struct {
	Command string `yaml:"command"`
}

type monitors struct {
	Monitors struct {
		Remote struct {
			NRPE map[string]monitorCommand `yaml:"nrpe"`
		} `yaml:"remote"`
	} `yaml:"monitors"`
}

// Monitors returns the YAML monitors document the subordinate expects.
func (s *Set) Monitors() (string, error) {
	var m monitors
	m.Monitors.Remote.NRPE = make(map[string]monitorCommand)
	for _, c := range s.checks {
		m.Monitors.Remote.NRPE[c.Shortname] = monitorCommand{Command: c.commandName()}
	}
	out, err := yaml.Marshal(m)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(out), nil
}

// ParseMonitors returns the check command names in a monitors document.
func ParseMonitors(doc string) ([]string, error) {
	var m monitors
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		return nil, errors.NewNotValid(err, "monitors")
	}
	var names []string
	for _, cmd := range m.Monitors.Remote.NRPE {
		names = append(names, cmd.Command)
	}
	sort.Strings(names)
	return names, nil
}

func writeTemplate(path string, t *template.Template, vars interface{}) (bool, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return false, errors.Trace(err)
	}
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, buf.Bytes()) {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, errors.Trace(err)
	}
	if err := utils.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return false, errors.Annotatef(err, "writing %s", path)
	}
	logger.Debugf("wrote %s", path)
	return true, nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Trace(err)
	}
	return info.IsDir(), nil
}
