// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hookenv

import (
	"fmt"
	"strings"

	"github.com/juju/loggo/v2"
)

// LogWriter is a loggo.Writer that sends log entries to the unit log
// through juju-log.
type LogWriter struct {
	unit Unit
}

// NewLogWriter returns a LogWriter for the unit.
func NewLogWriter(unit Unit) *LogWriter {
	return &LogWriter{unit: unit}
}

// Write implements loggo.Writer.
func (w *LogWriter) Write(entry loggo.Entry) {
	// Running juju-log goes through the runner, which logs itself.
	if strings.HasPrefix(entry.Module, "dashboard.runner") {
		return
	}
	_ = w.unit.Log(entry.Level, fmt.Sprintf("%s: %s", entry.Module, entry.Message))
}
