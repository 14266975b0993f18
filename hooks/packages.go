// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooks

import (
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/os/v2/series"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/packaging"
	"github.com/juju/charm-openstack-dashboard/status"
)

// BasePackages are installed on every release.
var BasePackages = []string{
	"haproxy",
	"memcached",
	status.VersionPackage,
	"openstack-dashboard-ubuntu-theme",
	"python-keystoneclient",
	"python-memcache",
	"python-novaclient",
	"python-murano-dashboard",
}

// DeterminePackages returns the packages the dashboard needs on rel,
// sorted.
func DeterminePackages(rel release.Codename) []string {
	pkgs := set.NewStrings(BasePackages...)
	if rel.AtLeast(release.Mitaka) {
		pkgs.Add("python-pymysql")
	}
	if rel.Before(release.Icehouse) {
		pkgs.Add("nodejs")
		pkgs.Add("node-less")
	}
	return pkgs.SortedValues()
}

// installMissing installs whichever of pkgs are not installed yet.
func installMissing(e *Environment, pkgs ...string) error {
	missing, err := e.Packages.FilterInstalled(pkgs)
	if err != nil {
		return errors.Trace(err)
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.Trace(e.Packages.Install(missing...))
}

// originRelease is the release openstack-origin points at.
func originRelease(e *Environment) (release.Codename, error) {
	rel, err := release.FromInstallSource(e.Config.String(config.OpenStackOrigin), e.Series)
	return rel, errors.Trace(err)
}

// installedRelease is the release of the installed dashboard package.
func installedRelease(e *Environment) (release.Codename, error) {
	version, err := e.Packages.InstalledVersion(status.VersionPackage)
	if err != nil {
		return release.Unknown, errors.Trace(err)
	}
	rel, err := release.FromPackageVersion(version)
	return rel, errors.Trace(err)
}

// UpgradeAvailable reports whether openstack-origin names a newer release
// than the one installed, and which.
func UpgradeAvailable(e *Environment) (bool, release.Codename, error) {
	current, err := installedRelease(e)
	if errors.IsNotFound(err) {
		return false, release.Unknown, nil
	} else if err != nil {
		return false, release.Unknown, errors.Trace(err)
	}
	available, err := originRelease(e)
	if err != nil {
		return false, release.Unknown, errors.Trace(err)
	}
	return available.Compare(current) > 0, available, nil
}

// DoOpenStackUpgrade moves the unit to the release openstack-origin
// names: the archive is reconfigured, every package dist-upgraded and the
// managed files switched to the new release's templates.
func DoOpenStackUpgrade(e *Environment) error {
	target, err := originRelease(e)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Infof("Performing OpenStack upgrade to %s.", target)
	if err := e.Packages.ConfigureSource(e.Config.String(config.OpenStackOrigin)); err != nil {
		return errors.Annotate(err, "configuring installation source")
	}
	if err := e.Packages.Update(); err != nil {
		return errors.Trace(err)
	}
	if err := e.Packages.Upgrade(true, packaging.UpgradeOptions...); err != nil {
		return errors.Annotate(err, "upgrading packages")
	}
	if err := installMissing(e, DeterminePackages(target)...); err != nil {
		return errors.Trace(err)
	}
	if err := e.SetRelease(target); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.RenderAll())
}

// seriesBefore reports whether Ubuntu series s was released before
// other.
func seriesBefore(s, other string) (bool, error) {
	v, err := series.SeriesVersion(s)
	if err != nil {
		return false, errors.Trace(err)
	}
	ov, err := series.SeriesVersion(other)
	if err != nil {
		return false, errors.Trace(err)
	}
	cmp, err := packaging.CompareVersions(v, ov)
	return cmp < 0, errors.Trace(err)
}
