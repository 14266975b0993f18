// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config holds the charm's options: their schema, defaults and
// typed accessors.
package config

import (
	"strings"

	"github.com/juju/errors"
	"github.com/juju/schema"
	"gopkg.in/juju/environschema.v1"

	"github.com/juju/charm-openstack-dashboard/hookenv"
)

const (
	OpenStackOrigin       = "openstack-origin"
	OpenStackOriginGit    = "openstack-origin-git"
	ActionManagedUpgrade  = "action-managed-upgrade"
	Debug                 = "debug"
	DefaultRole           = "default-role"
	Webroot               = "webroot"
	UbuntuTheme           = "ubuntu-theme"
	DefaultTheme          = "default-theme"
	Secret                = "secret"
	OfflineCompression    = "offline-compression"
	Profile               = "profile"
	NeutronNetworkDVR     = "neutron-network-dvr"
	NeutronNetworkL3HA    = "neutron-network-l3ha"
	NeutronNetworkLB      = "neutron-network-lb"
	NeutronNetworkFW      = "neutron-network-firewall"
	NeutronNetworkVPN     = "neutron-network-vpn"
	CinderBackup          = "cinder-backup"
	EnforceSSL            = "enforce-ssl"
	SSLCert               = "ssl_cert"
	SSLKey                = "ssl_key"
	SSLCA                 = "ssl_ca"
	SSLSelfSigned         = "ssl-self-signed"
	VIP                   = "vip"
	VIPIface              = "vip_iface"
	VIPCIDR               = "vip_cidr"
	HABindIface           = "ha-bindiface"
	HAMcastPort           = "ha-mcastport"
	DNSHA                 = "dns-ha"
	OSPublicHostname      = "os-public-hostname"
	PreferIPv6            = "prefer-ipv6"
	EndpointType          = "endpoint-type"
	DatabaseUser          = "database-user"
	Database              = "database"
	UseSyslog             = "use-syslog"
	NagiosContext         = "nagios_context"
	NagiosServiceGroups   = "nagios_servicegroups"
	NagiosCheckHTTPParams = "nagios_check_http_params"
	HAProxyServerTimeout  = "haproxy-server-timeout"
	HAProxyClientTimeout  = "haproxy-client-timeout"
	HAProxyQueueTimeout   = "haproxy-queue-timeout"
	HAProxyConnectTimeout = "haproxy-connect-timeout"
)

func stringField(desc string) environschema.Attr {
	return environschema.Attr{Description: desc, Type: environschema.Tstring}
}

func boolField(desc string) environschema.Attr {
	return environschema.Attr{Description: desc, Type: environschema.Tbool}
}

func intField(desc string) environschema.Attr {
	return environschema.Attr{Description: desc, Type: environschema.Tint}
}

var configSchema = environschema.Fields{
	OpenStackOrigin:       stringField("Repository from which to install: distro, cloud:<series>-<release>, ppa:<name> or a deb line."),
	OpenStackOriginGit:    stringField("Git repositories to install from. Not supported by this charm."),
	ActionManagedUpgrade:  boolField("Only upgrade OpenStack through the openstack-upgrade action."),
	Debug:                 stringField("Enable dashboard debug mode (yes/no)."),
	DefaultRole:           stringField("Default role for users created through the dashboard."),
	Webroot:               stringField("Path the dashboard is served from."),
	UbuntuTheme:           stringField("Use the Ubuntu theme (yes/no)."),
	DefaultTheme:          stringField("Default theme when several are installed."),
	Secret:                stringField("Secret key for the dashboard's session signing."),
	OfflineCompression:    stringField("Pre-compress static assets (yes/no)."),
	Profile:               stringField("Vendor profile to enable (only cisco is recognised)."),
	NeutronNetworkDVR:     boolField("Show the distributed router option."),
	NeutronNetworkL3HA:    boolField("Show the HA router option."),
	NeutronNetworkLB:      boolField("Show the load balancer panel."),
	NeutronNetworkFW:      boolField("Show the firewall panel."),
	NeutronNetworkVPN:     boolField("Show the VPN panel."),
	CinderBackup:          boolField("Show the volume backup panel."),
	EnforceSSL:            boolField("Redirect HTTP to HTTPS when SSL is configured."),
	SSLCert:               stringField("Base64 encoded SSL certificate."),
	SSLKey:                stringField("Base64 encoded SSL key."),
	SSLCA:                 stringField("Base64 encoded CA certificate."),
	SSLSelfSigned:         boolField("Generate a self-signed certificate when no other is available."),
	VIP:                   stringField("Space separated virtual IPs for HA."),
	VIPIface:              stringField("Fallback interface for the VIPs."),
	VIPCIDR:               intField("Fallback netmask (CIDR bits) for the VIPs."),
	HABindIface:           stringField("Interface corosync binds to."),
	HAMcastPort:           intField("Corosync multicast port."),
	DNSHA:                 boolField("Use DNS HA instead of VIPs."),
	OSPublicHostname:      stringField("Public hostname registered in DNS when dns-ha is set."),
	PreferIPv6:            boolField("Use IPv6 addresses for everything."),
	EndpointType:          stringField("Comma separated endpoint types: publicURL, internalURL, adminURL."),
	DatabaseUser:          stringField("Database user requested on the shared-db relation."),
	Database:              stringField("Database name requested on the shared-db relation."),
	UseSyslog:             boolField("Log to syslog."),
	NagiosContext:         stringField("Prefix for nagios host names."),
	NagiosServiceGroups:   stringField("Nagios service groups for the checks."),
	NagiosCheckHTTPParams: stringField("Arguments for an extra check_http virtual host check."),
	HAProxyServerTimeout:  intField("haproxy server timeout in milliseconds."),
	HAProxyClientTimeout:  intField("haproxy client timeout in milliseconds."),
	HAProxyQueueTimeout:   intField("haproxy queue timeout in milliseconds."),
	HAProxyConnectTimeout: intField("haproxy connect timeout in milliseconds."),
}

var configDefaults = schema.Defaults{
	OpenStackOrigin:       "distro",
	OpenStackOriginGit:    schema.Omit,
	ActionManagedUpgrade:  false,
	Debug:                 "no",
	DefaultRole:           "Member",
	Webroot:               "/horizon",
	UbuntuTheme:           "yes",
	DefaultTheme:          schema.Omit,
	Secret:                schema.Omit,
	OfflineCompression:    "yes",
	Profile:               schema.Omit,
	NeutronNetworkDVR:     false,
	NeutronNetworkL3HA:    false,
	NeutronNetworkLB:      false,
	NeutronNetworkFW:      false,
	NeutronNetworkVPN:     false,
	CinderBackup:          false,
	EnforceSSL:            false,
	SSLCert:               schema.Omit,
	SSLKey:                schema.Omit,
	SSLCA:                 schema.Omit,
	SSLSelfSigned:         false,
	VIP:                   schema.Omit,
	VIPIface:              "eth0",
	VIPCIDR:               24,
	HABindIface:           "eth0",
	HAMcastPort:           5410,
	DNSHA:                 false,
	OSPublicHostname:      schema.Omit,
	PreferIPv6:            false,
	EndpointType:          schema.Omit,
	DatabaseUser:          "horizon",
	Database:              "horizon",
	UseSyslog:             false,
	NagiosContext:         "juju",
	NagiosServiceGroups:   schema.Omit,
	NagiosCheckHTTPParams: schema.Omit,
	HAProxyServerTimeout:  schema.Omit,
	HAProxyClientTimeout:  schema.Omit,
	HAProxyQueueTimeout:   schema.Omit,
	HAProxyConnectTimeout: schema.Omit,
}

// Config is the coerced charm configuration for one hook invocation.
type Config struct {
	attrs map[string]interface{}
}

// New validates raw option values and fills in defaults. Unset options
// (nil values) take their default; options the charm does not know about
// are ignored.
func New(raw map[string]interface{}) (*Config, error) {
	fields, _, err := configSchema.ValidationSchema()
	if err != nil {
		return nil, errors.Trace(err)
	}
	attrs := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		if _, ok := configSchema[k]; !ok {
			continue
		}
		attrs[k] = v
	}
	coerced, err := schema.FieldMap(fields, configDefaults).Coerce(attrs, nil)
	if err != nil {
		return nil, errors.NewNotValid(err, "charm config")
	}
	return &Config{attrs: coerced.(map[string]interface{})}, nil
}

// Read fetches and coerces the charm configuration.
func Read(src hookenv.Config) (*Config, error) {
	raw, err := src.ConfigGetAll()
	if err != nil {
		return nil, errors.Annotate(err, "reading charm config")
	}
	return New(raw)
}

// Attributes returns a copy of every set option.
func (c *Config) Attributes() map[string]interface{} {
	out := make(map[string]interface{}, len(c.attrs))
	for k, v := range c.attrs {
		out[k] = v
	}
	return out
}

// IsSet reports whether the option has a non-empty value.
func (c *Config) IsSet(key string) bool {
	v, ok := c.attrs[key]
	if !ok {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// String returns a string option, or "" when unset.
func (c *Config) String(key string) string {
	v, _ := c.attrs[key].(string)
	return v
}

// Bool returns a boolean option, or false when unset.
func (c *Config) Bool(key string) bool {
	v, _ := c.attrs[key].(bool)
	return v
}

// Int returns an integer option, or 0 when unset.
func (c *Config) Int(key string) int {
	switch v := c.attrs[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Flag returns a yes/no style string option as a bool. Unparseable
// values read as false.
func (c *Config) Flag(key string) bool {
	v, err := BoolFromString(c.String(key))
	if err != nil {
		return false
	}
	return v
}

// BoolFromString interprets the yes/no, true/false, on/off spellings used
// by charm options.
func BoolFromString(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "true", "t", "on":
		return true, nil
	case "n", "no", "false", "f", "off", "":
		return false, nil
	}
	return false, errors.NotValidf("boolean value %q", value)
}

var validEndpointTypes = map[string]string{
	"PUBLICURL":   "publicURL",
	"INTERNALURL": "internalURL",
	"ADMINURL":    "adminURL",
}

// EndpointTypes returns the normalised endpoint types from the
// endpoint-type option, primary first. An unset option returns nil; an
// unrecognised type is a NotValid error.
func (c *Config) EndpointTypes() ([]string, error) {
	raw := c.String(EndpointType)
	if raw == "" {
		return nil, nil
	}
	var types []string
	for _, t := range strings.Split(raw, ",") {
		normal, ok := validEndpointTypes[strings.ToUpper(strings.TrimSpace(t))]
		if !ok {
			return nil, errors.NotValidf("endpoint type %q", t)
		}
		types = append(types, normal)
	}
	return types, nil
}

// VIPs returns the configured virtual IPs.
func (c *Config) VIPs() []string {
	return strings.Fields(c.String(VIP))
}
