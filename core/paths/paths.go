// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package paths

import (
	"path/filepath"
	"reflect"
)

// Collection couples together every path the charm manages. Instances
// should be passed by value.
type Collection struct {
	// ApacheConfDir is the root of the apache2 configuration.
	ApacheConfDir string

	// DashboardConfDir holds local_settings.py and the database CA.
	DashboardConfDir string

	// LocalSettings is the dashboard's Django settings override.
	LocalSettings string

	// ApacheConf and ApacheSSL and ApacheDefault are the pre-2.4 apache
	// layout.
	ApacheConf    string
	ApacheSSL     string
	ApacheDefault string

	// Apache24Conf and Apache24SSL and Apache24Default are the 2.4 apache
	// layout.
	Apache24Conf    string
	Apache24SSL     string
	Apache24Default string

	PortsConf string

	HAProxyConf    string
	HAProxyDefault string

	// InstallDir is where the dashboard package installs itself.
	InstallDir       string
	RouterSetting    string
	KeystoneV3Policy string
	ManagePy         string

	SSLCert string
	SSLKey  string

	// CACertDir is scanned by update-ca-certificates.
	CACertDir string

	// StateDir is the charm's private state directory.
	StateDir string

	NRPEConfDir     string
	NagiosExportDir string
	ScriptRC        string
}

// Host is the real layout on an Ubuntu machine.
var Host = Collection{
	ApacheConfDir:    "/etc/apache2",
	DashboardConfDir: "/etc/openstack-dashboard",
	LocalSettings:    "/etc/openstack-dashboard/local_settings.py",
	ApacheConf:       "/etc/apache2/conf.d/openstack-dashboard.conf",
	ApacheSSL:        "/etc/apache2/sites-available/default-ssl",
	ApacheDefault:    "/etc/apache2/sites-available/default",
	Apache24Conf:     "/etc/apache2/conf-available/openstack-dashboard.conf",
	Apache24SSL:      "/etc/apache2/sites-available/default-ssl.conf",
	Apache24Default:  "/etc/apache2/sites-available/000-default.conf",
	PortsConf:        "/etc/apache2/ports.conf",
	HAProxyConf:      "/etc/haproxy/haproxy.cfg",
	HAProxyDefault:   "/etc/default/haproxy",
	InstallDir:       "/usr/share/openstack-dashboard",
	RouterSetting:    "/usr/share/openstack-dashboard/openstack_dashboard/enabled/_40_router.py",
	KeystoneV3Policy: "/usr/share/openstack-dashboard/openstack_dashboard/conf/keystonev3_policy.json",
	ManagePy:         "/usr/share/openstack-dashboard/manage.py",
	SSLCert:          "/etc/ssl/certs/dashboard.cert",
	SSLKey:           "/etc/ssl/private/dashboard.key",
	CACertDir:        "/usr/local/share/ca-certificates",
	StateDir:         "/var/lib/charm/openstack-dashboard",
	NRPEConfDir:      "/etc/nagios/nrpe.d",
	NagiosExportDir:  "/var/lib/nagios/export",
	ScriptRC:         "/var/lib/charm/openstack-dashboard/scriptrc",
}

// ForRoot returns the host layout relocated under root. It is used by
// tests to keep every write inside a temporary directory.
func ForRoot(root string) Collection {
	c := Host
	v := reflect.ValueOf(&c).Elem()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		f.SetString(filepath.Join(root, f.String()))
	}
	return c
}

// SecretKeyFile holds the generated dashboard secret.
func (c Collection) SecretKeyFile() string {
	return filepath.Join(c.StateDir, "secret-key")
}

// UnitStateDB is the unit's persistent key/value store.
func (c Collection) UnitStateDB() string {
	return filepath.Join(c.StateDir, "state.db")
}

// LogFile is the local, rotated copy of everything the charm logs.
func (c Collection) LogFile() string {
	return filepath.Join(c.StateDir, "dashboard-hooks.log")
}
