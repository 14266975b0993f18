// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hooks implements the charm's response to each lifecycle event
// the unit agent delivers.
package hooks

import (
	"fmt"
	"sort"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("dashboard.hooks")

// Handler runs one hook.
type Handler func(e *Environment) error

// UnregisteredHookError is returned for a hook with no handler.
type UnregisteredHookError struct {
	Name string
}

func (e *UnregisteredHookError) Error() string {
	return fmt.Sprintf("unregistered hook %q", e.Name)
}

// IsUnregisteredHook reports whether err, or its cause, is an
// *UnregisteredHookError.
func IsUnregisteredHook(err error) bool {
	_, ok := errors.Cause(err).(*UnregisteredHookError)
	return ok
}

// Hooks maps hook names to handlers.
type Hooks struct {
	handlers map[string]Handler
}

// New returns an empty dispatch table.
func New() *Hooks {
	return &Hooks{handlers: make(map[string]Handler)}
}

// Register adds fn as the handler for every name.
func (h *Hooks) Register(fn Handler, names ...string) {
	for _, name := range names {
		h.handlers[name] = fn
	}
}

// Names returns the registered hook names, sorted.
func (h *Hooks) Names() []string {
	names := make([]string, 0, len(h.handlers))
	for name := range h.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the handler registered for name.
func (h *Hooks) Execute(e *Environment, name string) error {
	fn, ok := h.handlers[name]
	if !ok {
		return &UnregisteredHookError{Name: name}
	}
	logger.Debugf("running hook %s", name)
	return errors.Annotatef(fn(e), "running hook %s", name)
}

// Run executes the hook called name and then assesses the unit's
// status. Unknown hooks are logged and otherwise ignored.
func (h *Hooks) Run(e *Environment, name string) error {
	err := h.Execute(e, name)
	if IsUnregisteredHook(err) {
		logger.Infof("Unknown hook %s - skipping.", name)
	} else if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.AssessStatus())
}

// withRestarts wraps fn so the services of any configuration it changes
// are restarted.
func withRestarts(fn Handler) Handler {
	return func(e *Environment) error {
		return e.WithRestarts(func() error {
			return fn(e)
		})
	}
}

// Default returns the table of every hook the charm handles.
func Default() *Hooks {
	h := New()
	h.Register(install, "install")
	h.Register(withRestarts(upgradeCharm), "upgrade-charm")
	h.Register(withRestarts(configChanged), "config-changed")
	h.Register(updateStatus, "update-status")
	h.Register(identityJoined, "identity-service-relation-joined")
	h.Register(withRestarts(identityChanged), "identity-service-relation-changed")
	h.Register(clusterJoined, "cluster-relation-joined")
	h.Register(withRestarts(clusterChanged), "cluster-relation-changed", "cluster-relation-departed")
	h.Register(haJoined, "ha-relation-joined")
	h.Register(websiteJoined, "website-relation-joined")
	h.Register(updateNRPE, "nrpe-external-master-relation-joined", "nrpe-external-master-relation-changed")
	h.Register(pluginJoined, "dashboard-plugin-relation-joined")
	h.Register(withRestarts(pluginChanged), "dashboard-plugin-relation-changed")
	h.Register(sharedDBJoined, "shared-db-relation-joined")
	h.Register(withRestarts(sharedDBChanged), "shared-db-relation-changed")
	return h
}
