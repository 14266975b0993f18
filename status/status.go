// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package status works out the workload status the unit reports.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/hookenv"
)

var logger = loggo.GetLogger("dashboard.status")

// Messages reported for the unit's states.
const (
	ReadyMessage  = "Unit is ready"
	PausedMessage = "Paused. Use 'resume' action to resume normal service."
)

// Interface is a logical requirement satisfied by any of several
// relations.
type Interface struct {
	Name      string
	Relations []string
}

// RequiredInterfaces must be related and complete for the unit to be
// ready.
var RequiredInterfaces = []Interface{
	{Name: "identity", Relations: []string{"identity-service"}},
}

// CompleteReporter reports the relations whose data is complete.
type CompleteReporter interface {
	CompleteContexts() ([]string, error)
}

// ServiceStatus reports whether a service is running.
type ServiceStatus interface {
	Running(name string) (bool, error)
}

// PauseState reports whether the unit has been paused.
type PauseState interface {
	IsPaused() (bool, error)
}

// Assessor computes the workload status.
type Assessor struct {
	Config    *config.Config
	Relations hookenv.Relations
	Contexts  CompleteReporter
	Services  []string
	Status    ServiceStatus
	Paused    PauseState

	// Required defaults to RequiredInterfaces.
	Required []Interface
}

// Assess returns the status and message the unit should report.
func (a *Assessor) Assess() (hookenv.Status, string, error) {
	paused, err := a.Paused.IsPaused()
	if err != nil {
		return "", "", errors.Trace(err)
	}
	if paused {
		running, err := a.running(true)
		if err != nil {
			return "", "", errors.Trace(err)
		}
		if len(running) > 0 {
			return hookenv.Blocked, fmt.Sprintf("Services should be paused but these services running: %s", strings.Join(running, ", ")), nil
		}
		return hookenv.Maintenance, PausedMessage, nil
	}

	if a.Config != nil && a.Config.IsSet(config.OpenStackOriginGit) {
		return hookenv.Blocked, "installation from git is not supported", nil
	}

	status, message, err := a.checkInterfaces()
	if err != nil || status != "" {
		return status, message, errors.Trace(err)
	}

	stopped, err := a.running(false)
	if err != nil {
		return "", "", errors.Trace(err)
	}
	if len(stopped) > 0 {
		return hookenv.Blocked, fmt.Sprintf("Services not running that should be: %s", strings.Join(stopped, ", ")), nil
	}
	return hookenv.Active, ReadyMessage, nil
}

// checkInterfaces returns blocked for missing relations, waiting for
// incomplete ones and an empty status if all are ready.
func (a *Assessor) checkInterfaces() (hookenv.Status, string, error) {
	required := a.Required
	if required == nil {
		required = RequiredInterfaces
	}
	complete, err := a.Contexts.CompleteContexts()
	if err != nil {
		return "", "", errors.Annotate(err, "checking relation data")
	}
	completeSet := set.NewStrings(complete...)

	var missing, incomplete []string
	for _, iface := range required {
		related := false
		for _, name := range iface.Relations {
			ids, err := a.Relations.RelationIDs(name)
			if err != nil {
				return "", "", errors.Trace(err)
			}
			if len(ids) > 0 {
				related = true
				break
			}
		}
		if !related {
			missing = append(missing, iface.Name)
			continue
		}
		if completeSet.Intersection(set.NewStrings(iface.Relations...)).IsEmpty() {
			incomplete = append(incomplete, iface.Name)
		}
	}
	sort.Strings(missing)
	sort.Strings(incomplete)
	switch {
	case len(missing) > 0:
		return hookenv.Blocked, "Missing relations: " + strings.Join(missing, ", "), nil
	case len(incomplete) > 0:
		return hookenv.Waiting, "Incomplete relations: " + strings.Join(incomplete, ", "), nil
	}
	return "", "", nil
}

// running returns the services whose running state equals want.
func (a *Assessor) running(want bool) ([]string, error) {
	var out []string
	for _, name := range a.Services {
		running, err := a.Status.Running(name)
		if err != nil {
			return nil, errors.Annotatef(err, "checking %s", name)
		}
		if running == want {
			out = append(out, name)
		}
	}
	return out, nil
}

// Set assesses the status and reports it through unit.
func (a *Assessor) Set(unit hookenv.Unit) error {
	status, message, err := a.Assess()
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("workload status %s: %s", status, message)
	return errors.Trace(unit.StatusSet(status, message))
}
