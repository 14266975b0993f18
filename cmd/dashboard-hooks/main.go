// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/juju/cmd/v3"
	"github.com/juju/loggo/v2"
)

var logger = loggo.GetLogger("dashboard.cmd")

const (
	binaryName = "dashboard-hooks"

	// exitErr is returned when the binary was invoked incorrectly.
	exitErr = 2
	// exitPanic is returned when we exit due to an unhandled panic.
	exitPanic = 3
)

func main() {
	os.Exit(Main(os.Args))
}

// Main is not redundant with main(), because it provides an entry point
// for testing with arbitrary command line arguments.
func Main(args []string) int {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Criticalf("Unhandled panic: \n%v\n%s", r, buf)
			os.Exit(exitPanic)
		}
	}()

	ctx, err := cmd.DefaultContext()
	if err != nil {
		cmd.WriteError(os.Stderr, err)
		os.Exit(exitErr)
	}

	// Hooks and actions are symlinks to this binary.
	commandName := filepath.Base(args[0])
	if commandName == binaryName {
		return cmd.Main(newSuperCommand(), ctx, args[1:])
	}
	return cmd.Main(newDispatchCommand(commandName), ctx, args[1:])
}

func newSuperCommand() *cmd.SuperCommand {
	sc := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    binaryName,
		Purpose: "run openstack-dashboard charm hooks and actions",
		Doc: `
Hooks and actions are normally run through symlinks named after them. The
run command executes one explicitly.
`,
	})
	sc.Register(newRunCommand())
	return sc
}
