// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package runner runs the external programs the charm depends on: hook
// tools, apt and dpkg, apache helpers and the dashboard management script.
package runner

import (
	"fmt"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"
)

//go:generate go run go.uber.org/mock/mockgen -package mocks -destination mocks/runner_mock.go github.com/juju/charm-openstack-dashboard/internal/runner Runner

var logger = loggo.GetLogger("dashboard.runner")

// Runner runs a single program to completion and returns its standard output.
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

// ExitError is returned when a program ran but exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Stderr  string
}

// Error implements error.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// IsExitError reports whether err, or its cause, is an *ExitError.
func IsExitError(err error) bool {
	_, ok := errors.Cause(err).(*ExitError)
	return ok
}

// CommandRunner is the production Runner; every call goes through bash so
// environment handling matches what the unit agent gives hooks.
type CommandRunner struct {
	// Env holds extra environment variables appended to the process
	// environment.
	Env []string
	// Dir is the working directory; empty means the current directory.
	Dir string
}

// New returns a CommandRunner with the settings apt needs to never prompt.
func New() *CommandRunner {
	return &CommandRunner{
		Env: []string{
			"DEBIAN_FRONTEND=noninteractive",
			"APT_LISTCHANGES_FRONTEND=none",
		},
	}
}

var runCommands = exec.RunCommands

// Run implements Runner.
func (r *CommandRunner) Run(name string, args ...string) ([]byte, error) {
	command := shellquote.Join(append([]string{name}, args...)...)
	logger.Tracef("running: %s", command)
	resp, err := runCommands(exec.RunParams{
		Commands:    command,
		WorkingDir:  r.Dir,
		Environment: append(os.Environ(), r.Env...),
	})
	if err != nil {
		return nil, errors.Annotatef(err, "running %s", name)
	}
	if resp.Code != 0 {
		return resp.Stdout, &ExitError{
			Command: name,
			Code:    resp.Code,
			Stderr:  strings.TrimSpace(string(resp.Stderr)),
		}
	}
	return resp.Stdout, nil
}
