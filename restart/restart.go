// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package restart restarts services whose configuration changed while an
// operation ran.
package restart

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/registry"
)

var logger = loggo.GetLogger("dashboard.restart")

// Services controls system services.
type Services interface {
	Start(name string) error
	Stop(name string) error
	Restart(name string) error
}

// PauseState reports whether the unit has been paused by an operator.
type PauseState interface {
	IsPaused() (bool, error)
}

// Config drives a Coordinator.
type Config struct {
	// RestartMap lists the watched files and their services, in order.
	RestartMap []registry.RestartEntry

	Services Services
	Paused   PauseState
	Clock    clock.Clock

	// StopStart stops every affected service before starting any of
	// them, instead of restarting each in turn.
	StopStart bool

	// Delay is waited after each stop in StopStart mode.
	Delay time.Duration
}

// Validate returns an error if config cannot drive a Coordinator.
func (config Config) Validate() error {
	if config.Services == nil {
		return errors.NotValidf("nil Services")
	}
	if config.Paused == nil {
		return errors.NotValidf("nil Paused")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Delay < 0 {
		return errors.NotValidf("negative Delay")
	}
	return nil
}

// Coordinator wraps operations that may rewrite watched files.
type Coordinator struct {
	config Config
}

// NewCoordinator returns a Coordinator backed by config.
func NewCoordinator(config Config) (*Coordinator, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Coordinator{config: config}, nil
}

// SetRestartMap replaces the watched files. Files added while an
// operation runs count as changed when it completes.
func (c *Coordinator) SetRestartMap(m []registry.RestartEntry) {
	c.config.RestartMap = m
}

// missing is the hash of a file that does not exist.
const missing = ""

// Hash returns the hex sha256 of the file at path, or the empty string if
// there is no such file.
func Hash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return missing, nil
	} else if err != nil {
		return "", errors.Annotatef(err, "hashing %s", path)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (c *Coordinator) snapshot() (map[string]string, error) {
	hashes := make(map[string]string, len(c.config.RestartMap))
	for _, entry := range c.config.RestartMap {
		h, err := Hash(entry.Path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		hashes[entry.Path] = h
	}
	return hashes, nil
}

// changedServices returns the services of every file whose hash differs
// from before, each once, in restart map order.
func (c *Coordinator) changedServices(before map[string]string) ([]string, error) {
	seen := set.NewStrings()
	var services []string
	for _, entry := range c.config.RestartMap {
		h, err := Hash(entry.Path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if h == before[entry.Path] {
			continue
		}
		logger.Debugf("%s changed", entry.Path)
		for _, svc := range entry.Services {
			if !seen.Contains(svc) {
				seen.Add(svc)
				services = append(services, svc)
			}
		}
	}
	return services, nil
}

// OnChange runs fn and then restarts the services of every watched file
// fn changed. Restarts are evaluated even if fn fails, in which case fn's
// error is returned once they are done. While the unit is paused fn runs
// alone.
func (c *Coordinator) OnChange(fn func() error) error {
	paused, err := c.config.Paused.IsPaused()
	if err != nil {
		return errors.Annotate(err, "checking paused state")
	}
	if paused {
		logger.Debugf("unit paused, not watching for config changes")
		return fn()
	}

	before, err := c.snapshot()
	if err != nil {
		return errors.Trace(err)
	}
	fnErr := fn()

	services, err := c.changedServices(before)
	if err == nil {
		err = c.restart(services)
	}
	if fnErr != nil {
		if err != nil {
			logger.Errorf("restarting after failed operation: %v", err)
		}
		return fnErr
	}
	return errors.Trace(err)
}

func (c *Coordinator) restart(services []string) error {
	if len(services) == 0 {
		return nil
	}
	svc := c.config.Services
	if !c.config.StopStart {
		for _, name := range services {
			logger.Infof("restarting %s", name)
			if err := svc.Restart(name); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	for _, name := range services {
		logger.Infof("stopping %s", name)
		if err := svc.Stop(name); err != nil {
			return errors.Trace(err)
		}
		if c.config.Delay > 0 {
			<-c.config.Clock.After(c.config.Delay)
		}
	}
	for _, name := range services {
		logger.Infof("starting %s", name)
		if err := svc.Start(name); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
