// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooks

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/charm-openstack-dashboard/contexts"
	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/hookenv"
	"github.com/juju/charm-openstack-dashboard/nrpe"
)

const trustyBackports = "deb http://archive.ubuntu.com/ubuntu trusty-backports main"

func install(e *Environment) error {
	if err := e.Packages.ConfigureSource(e.Config.String(config.OpenStackOrigin)); err != nil {
		return errors.Annotate(err, "configuring installation source")
	}
	if err := e.Packages.Update(); err != nil {
		return errors.Trace(err)
	}
	rel, err := originRelease(e)
	if err != nil {
		return errors.Trace(err)
	}
	if e.Series == "precise" {
		// The archive's python-six is too old for the dashboard.
		if err := e.Packages.Install("python-six"); err != nil {
			return errors.Trace(err)
		}
	}
	missing, err := e.Packages.FilterInstalled(DeterminePackages(rel))
	if err != nil {
		return errors.Trace(err)
	}
	if len(missing) == 0 {
		return nil
	}
	if err := e.Hook.StatusSet(hookenv.Maintenance, "Installing packages"); err != nil {
		return errors.Trace(err)
	}
	if err := e.Packages.Install(missing...); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.SetRelease(e.currentRelease()))
}

// currentRelease re-reads the installed release, keeping the one in use
// if it can't be determined.
func (e *Environment) currentRelease() release.Codename {
	rel, err := CurrentRelease(e.Packages, e.Config, e.Series)
	if err != nil {
		logger.Warningf("determining release: %v", err)
		return e.Release()
	}
	return rel
}

func upgradeCharm(e *Environment) error {
	if err := installMissing(e, DeterminePackages(e.Release())...); err != nil {
		return errors.Trace(err)
	}
	if err := updateNRPE(e); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.RenderAll())
}

func setupIPv6(e *Environment) error {
	before, err := seriesBefore(e.Series, "trusty")
	if err != nil {
		return errors.Trace(err)
	}
	if before {
		return errors.NotSupportedf("IPv6 on Ubuntu releases older than trusty")
	}
	// haproxy only handles IPv6 from 1.5.3, which trusty has in backports.
	if e.Series == "trusty" && e.Release().Before(release.Liberty) {
		if err := e.Packages.ConfigureSource(trustyBackports); err != nil {
			return errors.Trace(err)
		}
		if err := e.Packages.Update(); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(e.Packages.Install("haproxy/trusty-backports"))
	}
	return nil
}

func configChanged(e *Environment) error {
	cfg := e.Config
	localhost := "localhost"
	if cfg.Bool(config.PreferIPv6) {
		if err := setupIPv6(e); err != nil {
			return errors.Trace(err)
		}
		localhost = "ip6-localhost"
	}

	if e.Release() == release.Icehouse && !cfg.Flag(config.OfflineCompression) {
		if err := installMissing(e, "python-lesscpy"); err != nil {
			return errors.Trace(err)
		}
	}

	// Default role changes must reach keystone.
	ids, err := e.Hook.RelationIDs(contexts.IdentityServiceRelation)
	if err != nil {
		return errors.Trace(err)
	}
	for _, id := range ids {
		if err := requestIdentity(e, id); err != nil {
			return errors.Trace(err)
		}
	}
	enableSSL(e)

	if !cfg.Bool(config.ActionManagedUpgrade) {
		available, _, err := UpgradeAvailable(e)
		if err != nil {
			return errors.Trace(err)
		}
		if available {
			if err := e.Hook.StatusSet(hookenv.Maintenance, "Upgrading to new OpenStack release"); err != nil {
				return errors.Trace(err)
			}
			if err := DoOpenStackUpgrade(e); err != nil {
				return errors.Trace(err)
			}
		}
	}

	if err := SaveScriptRC(e.Paths.ScriptRC, scriptRCVars(localhost, cfg.String(config.Webroot))); err != nil {
		return errors.Trace(err)
	}
	if err := updateNRPE(e); err != nil {
		return errors.Trace(err)
	}
	if err := e.RenderAll(); err != nil {
		return errors.Trace(err)
	}
	for _, port := range []int{80, 443} {
		if err := e.Hook.OpenPort(port, "tcp"); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// enableSSL switches on apache's ssl module and site. Either may
// already be enabled, or missing on a fresh unit.
func enableSSL(e *Environment) {
	if _, err := e.Runner.Run("a2ensite", "default-ssl"); err != nil {
		logger.Debugf("a2ensite default-ssl: %v", err)
	}
	if _, err := e.Runner.Run("a2enmod", "ssl"); err != nil {
		logger.Debugf("a2enmod ssl: %v", err)
	}
}

func requestIdentity(e *Environment, relationID string) error {
	return errors.Trace(e.Hook.RelationSet(relationID, map[string]string{
		"service":         "None",
		"region":          "None",
		"public_url":      "None",
		"admin_url":       "None",
		"internal_url":    "None",
		"requested_roles": e.Config.String(config.DefaultRole),
	}))
}

func identityJoined(e *Environment) error {
	return requestIdentity(e, "")
}

func identityChanged(e *Environment) error {
	if err := e.RenderAll(); err != nil {
		return errors.Trace(err)
	}
	ca, err := e.Hook.RelationGet("ca_cert", "", "")
	if err != nil || ca == "" {
		return errors.Trace(err)
	}
	decoded := contexts.DecodeRelationValue(contexts.IdentityServiceRelation, "ca_cert", ca)
	if decoded == nil {
		return nil
	}
	return errors.Trace(contexts.InstallCACert(e.Paths, e.Runner, decoded))
}

func clusterJoined(e *Environment) error {
	if !e.Config.Bool(config.PreferIPv6) {
		return nil
	}
	addr, err := e.Network.IPv6Address(e.Config.VIPs()...)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.Hook.RelationSet("", map[string]string{"private-address": addr}))
}

func clusterChanged(e *Environment) error {
	_, err := e.Renderer.Render(e.Paths.HAProxyConf)
	return errors.Trace(err)
}

func websiteJoined(e *Environment) error {
	addr, err := e.Hook.UnitGet("private-address")
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.Hook.RelationSet("", map[string]string{
		"port":     "70",
		"hostname": addr,
	}))
}

// updateNRPE exports service checks to nagios when the nrpe subordinate
// is present.
func updateNRPE(e *Environment) error {
	// check_systemd.py needs dbus bindings.
	if err := installMissing(e, "python-dbus"); err != nil {
		return errors.Trace(err)
	}
	if _, err := os.Stat(e.Paths.NRPEConfDir); os.IsNotExist(err) {
		logger.Debugf("%s missing, nrpe not installed", e.Paths.NRPEConfDir)
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}

	unit := e.Hook.LocalUnit()
	checks := nrpe.NewSet(e.Config, unit, e.Paths)
	if err := checks.AddServiceChecks(e.Registry.Services()); err != nil {
		return errors.Trace(err)
	}
	if err := checks.AddHAProxyChecks(); err != nil {
		return errors.Trace(err)
	}
	if params := e.Config.String(config.NagiosCheckHTTPParams); params != "" {
		err := checks.Add(nrpe.Check{
			Shortname:   "vhost",
			Description: "Check Virtual Host {" + unit + "}",
			Command:     "check_http " + params,
		})
		if err != nil {
			return errors.Trace(err)
		}
	}
	changed, err := checks.Write(e.Hook)
	if err != nil {
		return errors.Annotate(err, "writing nrpe checks")
	}
	if changed {
		return errors.Trace(e.Services.Restart("nagios-nrpe-server"))
	}
	return nil
}

func pluginJoined(e *Environment) error {
	return errors.Trace(e.Hook.RelationSet("", map[string]string{
		"release":       e.Release().String(),
		"bin_path":      "/usr/bin",
		"openstack_dir": e.Paths.InstallDir,
	}))
}

func pluginChanged(e *Environment) error {
	_, err := e.Renderer.Render(e.Paths.LocalSettings)
	return errors.Trace(err)
}

func updateStatus(e *Environment) error {
	logger.Infof("Updating status.")
	return nil
}

func sharedDBJoined(e *Environment) error {
	cfg := e.Config
	settings := map[string]string{
		"database": cfg.String(config.Database),
		"username": cfg.String(config.DatabaseUser),
	}
	if cfg.Bool(config.PreferIPv6) {
		addrs, err := e.Network.IPv6Addresses(cfg.VIPs()...)
		if err != nil {
			return errors.Trace(err)
		}
		if len(addrs) == 0 {
			return errors.NotFoundf("global IPv6 address")
		}
		hosts, err := json.Marshal(addrs)
		if err != nil {
			return errors.Trace(err)
		}
		settings["hostname"] = string(hosts)
		return errors.Trace(e.Hook.RelationSet("", settings))
	}

	host, err := e.Hook.NetworkPrimaryAddress(contexts.SharedDBRelation)
	if errors.IsNotSupported(err) {
		host, err = e.Hook.UnitGet("private-address")
	}
	if err != nil {
		return errors.Trace(err)
	}
	settings["hostname"] = host
	return errors.Trace(e.Hook.RelationSet("", settings))
}

func sharedDBChanged(e *Environment) error {
	complete, err := e.Renderer.CompleteContexts()
	if err != nil {
		return errors.Trace(err)
	}
	if !set.NewStrings(complete...).Contains(contexts.SharedDBRelation) {
		logger.Infof("shared-db relation incomplete. Peer not ready?")
		return nil
	}
	if err := e.RenderAll(); err != nil {
		return errors.Trace(err)
	}

	leader, err := e.Hook.IsLeader()
	if err != nil {
		return errors.Trace(err)
	}
	if !leader {
		logger.Infof("Not running database migration, not leader")
		return nil
	}
	allowed, err := e.Hook.RelationGet("allowed_units", "", "")
	if err != nil {
		return errors.Trace(err)
	}
	if !set.NewStrings(strings.Fields(allowed)...).Contains(e.Hook.LocalUnit()) {
		logger.Infof("Not running database migration, either no allowed_units or this unit is not present")
		return nil
	}
	migrateDatabase(e)
	return nil
}

// migrateDatabase syncs the dashboard's session tables. A failure leaves
// the dashboard usable, so it is only logged.
func migrateDatabase(e *Environment) {
	if out, err := e.Runner.Run(e.Paths.ManagePy, "syncdb", "--noinput"); err != nil {
		logger.Errorf("database migration failed: %v\n%s", err, out)
	}
}
