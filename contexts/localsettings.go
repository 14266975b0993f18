// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// LocalSettings collects the settings fragments dashboard plugins
// contribute to local_settings.py.
type LocalSettings struct {
	deps *Deps
}

// NewLocalSettings returns the plugin settings provider.
func NewLocalSettings(d *Deps) *LocalSettings {
	return &LocalSettings{deps: d}
}

func (*LocalSettings) Name() string { return "local-settings" }

func (*LocalSettings) Inputs() Inputs {
	return Inputs{Relations: []string{DashboardPluginRelation}}
}

type fragment struct {
	unit     string
	priority float64
	settings string
}

// Context returns {"settings": [...]} with one fragment per plugin
// relation, lowest priority first. Only the first unit of each relation is
// consulted, and only if it set both priority and local-settings.
func (l *LocalSettings) Context() (Context, error) {
	env := l.deps.Env
	ids, err := env.RelationIDs(DashboardPluginRelation)
	if err != nil {
		return nil, errors.Annotate(err, "reading dashboard-plugin relations")
	}
	var fragments []fragment
	for _, id := range ids {
		units, err := env.RelatedUnits(id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if len(units) == 0 {
			continue
		}
		unit := units[0]
		settings, err := env.RelationSettings(unit, id)
		if err != nil {
			return nil, errors.Trace(err)
		}
		rawPriority, hasPriority := settings["priority"]
		text, hasText := settings["local-settings"]
		if !hasPriority || !hasText {
			continue
		}
		priority, err := strconv.ParseFloat(strings.TrimSpace(rawPriority), 64)
		if err != nil {
			logger.Warningf("ignoring settings from %s: priority %q is not a number", unit, rawPriority)
			continue
		}
		fragments = append(fragments, fragment{unit: unit, priority: priority, settings: text})
	}
	if len(fragments) == 0 {
		return Context{}, nil
	}

	sort.SliceStable(fragments, func(i, j int) bool {
		return fragments[i].priority < fragments[j].priority
	})
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = fmt.Sprintf("# %s\n%s", f.unit, f.settings)
	}
	return Context{"settings": out}, nil
}
