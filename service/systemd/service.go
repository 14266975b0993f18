// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package systemd controls system services through the systemd D-Bus API.
package systemd

import (
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/coreos/go-systemd/v22/util"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("dashboard.service.systemd")

// IsRunning returns whether or not systemd is the local init system.
func IsRunning() bool {
	return util.IsRunningSystemd()
}

// DBusAPI is the subset of the systemd D-Bus connection used here.
type DBusAPI interface {
	Close()
	ListUnits() ([]dbus.UnitStatus, error)
	StartUnit(name string, mode string, ch chan<- string) (int, error)
	StopUnit(name string, mode string, ch chan<- string) (int, error)
	RestartUnit(name string, mode string, ch chan<- string) (int, error)
}

// Type alias for a DBusAPI factory method.
type DBusAPIFactory = func() (DBusAPI, error)

var NewDBusAPI = func() (DBusAPI, error) {
	return dbus.New()
}

var newChan = func() chan string {
	return make(chan string)
}

// Manager starts, stops and restarts services by name.
type Manager struct {
	newDBus DBusAPIFactory
}

// NewManager returns a Manager that opens a D-Bus connection per
// operation.
func NewManager(newDBus DBusAPIFactory) *Manager {
	return &Manager{newDBus: newDBus}
}

// NewManagerWithDefaults returns a Manager using the system bus.
func NewManagerWithDefaults() *Manager {
	return NewManager(NewDBusAPI)
}

func unitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

func (m *Manager) errorf(err error, name, msg string, args ...interface{}) error {
	msg += " for service %q"
	args = append(args, name)
	if err == nil {
		err = errors.Errorf(msg, args...)
	} else {
		err = errors.Annotatef(err, msg, args...)
	}
	err.(*errors.Err).SetLocation(1)
	logger.Errorf("%v", err)
	return err
}

func (m *Manager) newConn(name string) (DBusAPI, error) {
	conn, err := m.newDBus()
	if err != nil {
		logger.Errorf("failed to connect to dbus for service %q: %v", name, err)
	}
	return conn, err
}

// Running reports whether the named service is loaded and active.
func (m *Manager) Running(name string) (bool, error) {
	conn, err := m.newConn(name)
	if err != nil {
		return false, errors.Trace(err)
	}
	defer conn.Close()

	units, err := conn.ListUnits()
	if err != nil {
		return false, m.errorf(err, name, "failed to query services from dbus")
	}

	unit := unitName(name)
	for _, u := range units {
		if u.Name == unit {
			return u.LoadState == "loaded" && u.ActiveState == "active", nil
		}
	}
	return false, nil
}

// Start starts the named service; a running service is left alone.
func (m *Manager) Start(name string) error {
	running, err := m.Running(name)
	if err != nil {
		return errors.Trace(err)
	}
	if running {
		logger.Debugf("service %q already running", name)
		return nil
	}
	if err := m.do("start", name); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("service %q successfully started", name)
	return nil
}

// Stop stops the named service; a stopped service is left alone.
func (m *Manager) Stop(name string) error {
	running, err := m.Running(name)
	if err != nil {
		return errors.Trace(err)
	}
	if !running {
		logger.Debugf("service %q not running", name)
		return nil
	}
	if err := m.do("stop", name); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("service %q successfully stopped", name)
	return nil
}

// Restart restarts the named service, starting it if it was stopped.
func (m *Manager) Restart(name string) error {
	if err := m.do("restart", name); err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("service %q successfully restarted", name)
	return nil
}

func (m *Manager) do(op, name string) error {
	conn, err := m.newConn(name)
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	statusCh := newChan()
	unit := unitName(name)
	switch op {
	case "start":
		_, err = conn.StartUnit(unit, "fail", statusCh)
	case "stop":
		_, err = conn.StopUnit(unit, "fail", statusCh)
	case "restart":
		_, err = conn.RestartUnit(unit, "fail", statusCh)
	default:
		return errors.NotSupportedf("service operation %q", op)
	}
	if err != nil {
		return m.errorf(err, name, "dbus %s request failed", op)
	}

	// "done" is the only job result that means the job succeeded; the
	// others are canceled, timeout, failed, dependency and skipped.
	if status := <-statusCh; status != "done" {
		return m.errorf(nil, name, "failed to %s (API status %q)", op, status)
	}
	return nil
}
