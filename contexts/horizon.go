// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/juju/charm-openstack-dashboard/core/config"
)

const ciscoProfile = "cisco"

// Horizon provides the dashboard's own settings.
type Horizon struct {
	deps *Deps
}

// NewHorizon returns the dashboard settings provider.
func NewHorizon(d *Deps) *Horizon {
	return &Horizon{deps: d}
}

func (*Horizon) Name() string { return "horizon" }

func (*Horizon) Inputs() Inputs {
	return Inputs{Config: []string{
		config.OfflineCompression, config.Debug, config.DefaultRole,
		config.Webroot, config.UbuntuTheme, config.DefaultTheme,
		config.Secret, config.Profile, config.NeutronNetworkDVR,
		config.NeutronNetworkL3HA, config.NeutronNetworkLB,
		config.NeutronNetworkFW, config.NeutronNetworkVPN,
		config.CinderBackup,
	}}
}

func (h *Horizon) Context() (Context, error) {
	cfg := h.deps.Config
	secret, err := h.secret()
	if err != nil {
		return nil, errors.Trace(err)
	}
	webroot := cfg.String(config.Webroot)
	if webroot == "" {
		webroot = "/"
	}
	ctx := Context{
		"compress_offline":         cfg.Flag(config.OfflineCompression),
		"debug":                    cfg.Flag(config.Debug),
		"default_role":             cfg.String(config.DefaultRole),
		"webroot":                  webroot,
		"ubuntu_theme":             cfg.Flag(config.UbuntuTheme),
		"secret":                   secret,
		"neutron_network_dvr":      cfg.Bool(config.NeutronNetworkDVR),
		"neutron_network_l3ha":     cfg.Bool(config.NeutronNetworkL3HA),
		"neutron_network_lb":       cfg.Bool(config.NeutronNetworkLB),
		"neutron_network_firewall": cfg.Bool(config.NeutronNetworkFW),
		"neutron_network_vpn":      cfg.Bool(config.NeutronNetworkVPN),
		"cinder_backup":            cfg.Bool(config.CinderBackup),
		"support_profile":          nil,
		"virtualenv":               nil,
	}
	if strings.ToLower(cfg.String(config.Profile)) == ciscoProfile {
		ctx["support_profile"] = ciscoProfile
	}
	if theme := cfg.String(config.DefaultTheme); theme != "" {
		ctx["default_theme"] = theme
	}
	return ctx, nil
}

// secret returns the configured secret, or one generated on first use and
// kept in the state directory afterwards.
func (h *Horizon) secret() (string, error) {
	if s := h.deps.Config.String(config.Secret); s != "" {
		return s, nil
	}
	path := h.deps.Paths.SecretKeyFile()
	data, err := os.ReadFile(path)
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return strings.TrimSpace(string(data)), nil
	} else if err != nil && !os.IsNotExist(err) {
		return "", errors.Annotatef(err, "reading %s", path)
	}
	secret, err := utils.RandomPassword()
	if err != nil {
		return "", errors.Annotate(err, "generating secret")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", errors.Trace(err)
	}
	if err := utils.AtomicWriteFile(path, []byte(secret), 0600); err != nil {
		return "", errors.Annotatef(err, "writing %s", path)
	}
	logger.Infof("generated new dashboard secret in %s", path)
	return secret, nil
}

// Syslog provides the use_syslog switch.
type Syslog struct {
	deps *Deps
}

// NewSyslog returns the syslog provider.
func NewSyslog(d *Deps) *Syslog {
	return &Syslog{deps: d}
}

func (*Syslog) Name() string { return "syslog" }

func (*Syslog) Inputs() Inputs {
	return Inputs{Config: []string{config.UseSyslog}}
}

func (s *Syslog) Context() (Context, error) {
	return Context{"use_syslog": s.deps.Config.Bool(config.UseSyslog)}, nil
}

// RouterSetting disables the router panel unless a vendor profile that
// supplies one is enabled.
type RouterSetting struct {
	deps *Deps
}

// NewRouterSetting returns the router panel provider.
func NewRouterSetting(d *Deps) *RouterSetting {
	return &RouterSetting{deps: d}
}

func (*RouterSetting) Name() string { return "router-setting" }

func (*RouterSetting) Inputs() Inputs {
	return Inputs{Config: []string{config.Profile}}
}

func (r *RouterSetting) Context() (Context, error) {
	profile := strings.ToLower(r.deps.Config.String(config.Profile))
	return Context{"disable_router": profile != ciscoProfile}, nil
}
