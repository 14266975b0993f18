// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package packaging wraps apt and dpkg for installing, upgrading and
// inspecting the dashboard's packages.
package packaging

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/retry"
	"github.com/juju/utils/v4"
	debversion "github.com/knqyf263/go-deb-version"

	"github.com/juju/charm-openstack-dashboard/internal/runner"
)

var logger = loggo.GetLogger("dashboard.packaging")

// This is the apt-get invocation used for every operation; the options
// mean apt never blocks waiting for a prompt.
var aptGetCommand = []string{
	"--option=Dpkg::Options::=--force-confold",
	"--assume-yes", "--quiet",
}

// UpgradeOptions make an upgrade take the package maintainer's version of
// changed configuration files.
var UpgradeOptions = []string{
	"--option", "Dpkg::Options::=--force-confnew",
	"--option", "Dpkg::Options::=--force-confdef",
}

// apt-get exits with this code when another process holds the dpkg lock.
const aptNoLock = 100

const (
	lockRetryAttempts = 30
	lockRetryDelay    = 10 * time.Second
)

const (
	cloudArchiveURL  = "http://ubuntu-cloud.archive.canonical.com/ubuntu"
	ubuntuArchiveURL = "http://archive.ubuntu.com/ubuntu"
)

// Apt runs apt-get and dpkg-query.
type Apt struct {
	runner     runner.Runner
	clock      clock.Clock
	sourcesDir string
	series     string
}

// NewApt returns an Apt for a host running series whose extra apt sources
// live in sourcesDir. The clock paces retries while the dpkg lock is held
// elsewhere.
func NewApt(r runner.Runner, clk clock.Clock, sourcesDir, series string) *Apt {
	return &Apt{runner: r, clock: clk, sourcesDir: sourcesDir, series: series}
}

func isLockHeld(err error) bool {
	exitErr, ok := errors.Cause(err).(*runner.ExitError)
	return ok && exitErr.Code == aptNoLock
}

func (a *Apt) aptGet(args ...string) error {
	cmdArgs := append(append([]string(nil), aptGetCommand...), args...)
	logger.Infof("running: apt-get %s", strings.Join(cmdArgs, " "))
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			_, err := a.runner.Run("apt-get", cmdArgs...)
			return err
		},
		IsFatalError: func(err error) bool {
			return !isLockHeld(err)
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Infof("couldn't acquire dpkg lock (attempt %d): %v", attempt, err)
		},
		Attempts: lockRetryAttempts,
		Delay:    lockRetryDelay,
		Clock:    a.clock,
	})
	if retry.IsAttemptsExceeded(err) {
		err = retry.LastError(err)
	}
	return errors.Trace(err)
}

// Update refreshes the package index.
func (a *Apt) Update() error {
	return errors.Annotate(a.aptGet("update"), "updating package index")
}

// Install installs packages. Installing nothing is a no-op.
func (a *Apt) Install(packages ...string) error {
	if len(packages) == 0 {
		return nil
	}
	return errors.Annotatef(a.aptGet(append([]string{"install"}, packages...)...), "installing %s", strings.Join(packages, " "))
}

// Upgrade upgrades every installed package, as a dist-upgrade if dist is
// set.
func (a *Apt) Upgrade(dist bool, options ...string) error {
	args := append([]string(nil), options...)
	if dist {
		args = append(args, "dist-upgrade")
	} else {
		args = append(args, "upgrade")
	}
	return errors.Annotate(a.aptGet(args...), "upgrading packages")
}

// InstalledVersion returns the installed version of pkg, or a NotFound
// error if it is not installed.
func (a *Apt) InstalledVersion(pkg string) (string, error) {
	out, err := a.runner.Run("dpkg-query", "--show", "--showformat=${Status} ${Version}", pkg)
	if runner.IsExitError(err) {
		return "", errors.NotFoundf("package %q", pkg)
	} else if err != nil {
		return "", errors.Annotatef(err, "querying package %q", pkg)
	}
	fields := strings.Fields(string(out))
	// Status is "want flag status", e.g. "install ok installed".
	if len(fields) < 4 || fields[2] != "installed" {
		return "", errors.NotFoundf("package %q", pkg)
	}
	return fields[3], nil
}

// FilterInstalled returns the packages in pkgs that are not yet
// installed, without duplicates and in their original order.
func (a *Apt) FilterInstalled(pkgs []string) ([]string, error) {
	seen := set.NewStrings()
	var missing []string
	for _, pkg := range pkgs {
		if seen.Contains(pkg) {
			continue
		}
		seen.Add(pkg)
		_, err := a.InstalledVersion(pkg)
		if errors.IsNotFound(err) {
			missing = append(missing, pkg)
			continue
		} else if err != nil {
			return nil, errors.Trace(err)
		}
	}
	return missing, nil
}

// CompareVersions compares two Debian versions, returning -1, 0 or 1.
func CompareVersions(a, b string) (int, error) {
	va, err := debversion.NewVersion(a)
	if err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("version %q", a))
	}
	vb, err := debversion.NewVersion(b)
	if err != nil {
		return 0, errors.NewNotValid(err, fmt.Sprintf("version %q", b))
	}
	switch cmp := va.Compare(vb); {
	case cmp < 0:
		return -1, nil
	case cmp > 0:
		return 1, nil
	}
	return 0, nil
}

// CompareInstalled compares the installed version of pkg with revno.
func (a *Apt) CompareInstalled(pkg, revno string) (int, error) {
	installed, err := a.InstalledVersion(pkg)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return CompareVersions(installed, revno)
}

// ConfigureSource makes the openstack-origin source available to apt.
// "distro" needs nothing; "distro-proposed" enables the series' proposed
// pocket; "cloud:<series>-<release>[/proposed]" enables the cloud
// archive; ppa, deb and http sources go through add-apt-repository.
func (a *Apt) ConfigureSource(source string) error {
	source = strings.TrimSpace(source)
	switch {
	case source == "" || source == "distro":
		return nil
	case source == "distro-proposed":
		line := fmt.Sprintf("deb %s %s-proposed main universe multiverse restricted\n", ubuntuArchiveURL, a.series)
		return a.writeSource("proposed.list", line)
	case strings.HasPrefix(source, "cloud:"):
		return a.configureCloudArchive(strings.TrimPrefix(source, "cloud:"))
	case strings.HasPrefix(source, "ppa:"), strings.HasPrefix(source, "deb"), strings.HasPrefix(source, "http"):
		_, err := a.runner.Run("add-apt-repository", "--yes", source)
		return errors.Annotatef(err, "adding source %q", source)
	}
	return errors.NotValidf("install source %q", source)
}

func (a *Apt) configureCloudArchive(pocket string) error {
	stage := "updates"
	if i := strings.Index(pocket, "/"); i >= 0 {
		stage = pocket[i+1:]
		pocket = pocket[:i]
	}
	i := strings.LastIndex(pocket, "-")
	if i < 0 {
		return errors.NotValidf("cloud archive pocket %q", pocket)
	}
	series, release := pocket[:i], pocket[i+1:]
	if series != a.series {
		return errors.NotValidf("cloud archive for %q on a %q host", series, a.series)
	}
	if err := a.Install("ubuntu-cloud-keyring"); err != nil {
		return errors.Trace(err)
	}
	line := fmt.Sprintf("deb %s %s-%s/%s main\n", cloudArchiveURL, series, stage, release)
	return a.writeSource("cloud-archive.list", line)
}

func (a *Apt) writeSource(name, line string) error {
	path := filepath.Join(a.sourcesDir, name)
	logger.Infof("writing apt source %s", path)
	return errors.Annotatef(utils.AtomicWriteFile(path, []byte(line), 0644), "writing %s", path)
}
