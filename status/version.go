// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package status

import (
	"strings"

	"github.com/juju/errors"

	"github.com/juju/charm-openstack-dashboard/hookenv"
)

// VersionPackage is the package whose version the application reports.
const VersionPackage = "openstack-dashboard"

// PackageVersions returns installed package versions.
type PackageVersions interface {
	InstalledVersion(pkg string) (string, error)
}

// UpstreamVersion strips the epoch and Debian revision from a package
// version: "2:9.0.1-0ubuntu1" becomes "9.0.1".
func UpstreamVersion(version string) string {
	if i := strings.Index(version, ":"); i >= 0 {
		version = version[i+1:]
	}
	if i := strings.LastIndex(version, "-"); i >= 0 {
		version = version[:i]
	}
	return version
}

// SetApplicationVersion reports the installed dashboard's upstream
// version. Nothing is reported until the package is installed.
func SetApplicationVersion(unit hookenv.Unit, pkgs PackageVersions) error {
	version, err := pkgs.InstalledVersion(VersionPackage)
	if errors.IsNotFound(err) {
		logger.Debugf("%s not installed, not setting application version", VersionPackage)
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(unit.ApplicationVersionSet(UpstreamVersion(version)))
}
