// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts

import (
	"fmt"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/network"
)

const statPasswordKey = "stat-password"

// ServicePorts maps each haproxy frontend to its public and apache ports.
var ServicePorts = map[string][]int{
	"dash_insecure": {80, HTTPPort},
	"dash_secure":   {443, HTTPSPort},
}

func enableHAProxy(d *Deps) error {
	logger.Debugf("ensuring haproxy enabled in %s", d.Paths.HAProxyDefault)
	return errors.Trace(writeFile(d.Paths.HAProxyDefault, []byte("ENABLED=1\n"), 0644))
}

// clusterBackends returns every cluster peer's address keyed by unit.
func clusterBackends(d *Deps) (map[string]string, error) {
	backends := make(map[string]string)
	err := eachUnit(d.Env, ClusterRelation, func(_, unit string, settings map[string]string) bool {
		if addr := settings["private-address"]; addr != "" {
			backends[unitKey(unit)] = addr
		}
		return true
	})
	return backends, errors.Annotate(err, "reading cluster relation")
}

// HorizonHAProxy provides the haproxy backends for the dashboard's
// frontends: this unit and every cluster peer.
type HorizonHAProxy struct {
	deps *Deps
}

// NewHorizonHAProxy returns the dashboard haproxy provider.
func NewHorizonHAProxy(d *Deps) *HorizonHAProxy {
	return &HorizonHAProxy{deps: d}
}

func (*HorizonHAProxy) Name() string { return "horizon-haproxy" }

func (*HorizonHAProxy) Inputs() Inputs {
	return Inputs{
		Config:    []string{config.PreferIPv6, config.VIP},
		Relations: []string{ClusterRelation},
	}
}

func (h *HorizonHAProxy) Context() (Context, error) {
	addr, err := localAddress(h.deps)
	if err != nil {
		return nil, errors.Trace(err)
	}
	units, err := clusterBackends(h.deps)
	if err != nil {
		return nil, errors.Trace(err)
	}
	units[unitKey(h.deps.Env.LocalUnit())] = addr
	if err := enableHAProxy(h.deps); err != nil {
		return nil, errors.Trace(err)
	}
	return Context{
		"units":         units,
		"service_ports": ServicePorts,
		"prefer_ipv6":   h.deps.Config.Bool(config.PreferIPv6),
	}, nil
}

// Frontend is one haproxy frontend network and its backends.
type Frontend struct {
	Network  string
	Backends map[string]string
}

// HAProxy provides the generic haproxy settings for a single address
// frontend. It always produces output, even with no peers.
type HAProxy struct {
	deps *Deps
}

// NewHAProxy returns the generic haproxy provider.
func NewHAProxy(d *Deps) *HAProxy {
	return &HAProxy{deps: d}
}

func (*HAProxy) Name() string { return "haproxy" }

func (*HAProxy) Inputs() Inputs {
	return Inputs{
		Config: []string{
			config.PreferIPv6, config.VIP,
			config.HAProxyServerTimeout, config.HAProxyClientTimeout,
			config.HAProxyQueueTimeout, config.HAProxyConnectTimeout,
		},
		Relations: []string{ClusterRelation},
	}
}

var timeouts = map[string]string{
	config.HAProxyServerTimeout:  "haproxy_server_timeout",
	config.HAProxyClientTimeout:  "haproxy_client_timeout",
	config.HAProxyQueueTimeout:   "haproxy_queue_timeout",
	config.HAProxyConnectTimeout: "haproxy_connect_timeout",
}

func (h *HAProxy) Context() (Context, error) {
	cfg := h.deps.Config
	addr, err := localAddress(h.deps)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !cfg.Bool(config.PreferIPv6) {
		if addr, err = network.ResolveAddress(addr); err != nil {
			return nil, errors.Trace(err)
		}
	}

	cidr := addr
	if netmask, err := h.deps.Network.NetmaskForAddress(addr); err == nil {
		cidr = fmt.Sprintf("%s/%s", addr, netmask)
	} else if !errors.IsNotFound(err) {
		return nil, errors.Trace(err)
	}

	backends, err := clusterBackends(h.deps)
	if err != nil {
		return nil, errors.Trace(err)
	}
	backends[unitKey(h.deps.Env.LocalUnit())] = addr

	password, err := h.deps.State.Memoize(statPasswordKey, utils.RandomPassword)
	if err != nil {
		return nil, errors.Trace(err)
	}

	ctx := Context{
		"frontends": map[string]Frontend{
			addr: {Network: cidr, Backends: backends},
		},
		"default_backend": addr,
		"stat_port":       "8888",
		"stat_password":   password,
	}
	for option, key := range timeouts {
		if v := cfg.Int(option); v > 0 {
			ctx[key] = v
		}
	}
	if cfg.Bool(config.PreferIPv6) {
		ctx["ipv6"] = true
		ctx["local_host"] = "ip6-localhost"
		ctx["haproxy_host"] = "::"
	} else {
		ctx["local_host"] = "127.0.0.1"
		ctx["haproxy_host"] = "0.0.0.0"
	}
	if err := enableHAProxy(h.deps); err != nil {
		return nil, errors.Trace(err)
	}
	return ctx, nil
}
