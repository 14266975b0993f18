// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hooks

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/network"
)

const (
	haproxyResource  = "res_horizon_haproxy"
	haproxyClone     = "cl_horizon_haproxy"
	vipGroup         = "grp_horizon_vips"
	hostnameResource = "res_horizon_public_hostname"
	hostnameGroup    = "grp_horizon_hostnames"
)

// HAResources is what the unit asks the hacluster subordinate to manage.
type HAResources struct {
	Resources      map[string]string
	ResourceParams map[string]string
	Groups         map[string]string
	InitServices   map[string]string
	Clones         map[string]string
	BindIface      string
	McastPort      int
}

// BuildHAResources describes the haproxy clone and either a VIP or DNS
// resource per public address.
func BuildHAResources(e *Environment) (*HAResources, error) {
	cfg := e.Config
	res := &HAResources{
		Resources:      map[string]string{haproxyResource: "lsb:haproxy"},
		ResourceParams: map[string]string{haproxyResource: `op monitor interval="5s"`},
		Groups:         map[string]string{},
		InitServices:   map[string]string{haproxyResource: "haproxy"},
		Clones:         map[string]string{haproxyClone: haproxyResource},
		BindIface:      cfg.String(config.HABindIface),
		McastPort:      cfg.Int(config.HAMcastPort),
	}
	if cfg.Bool(config.DNSHA) {
		if err := addDNSResources(e, res); err != nil {
			return nil, errors.Trace(err)
		}
		return res, nil
	}

	var group []string
	for _, vip := range cfg.VIPs() {
		kind, param := "ocf:heartbeat:IPaddr2", "ip"
		if network.IsIPv6(vip) {
			kind, param = "ocf:heartbeat:IPv6addr", "ipv6addr"
		}
		iface, err := e.Network.InterfaceForAddress(vip)
		if err != nil && !errors.IsNotFound(err) {
			return nil, errors.Trace(err)
		} else if iface == "" {
			iface = cfg.String(config.VIPIface)
		}
		netmask, err := e.Network.NetmaskForAddress(vip)
		if err != nil && !errors.IsNotFound(err) {
			return nil, errors.Trace(err)
		} else if netmask == "" {
			netmask = strconv.Itoa(cfg.Int(config.VIPCIDR))
		}
		if iface == "" {
			continue
		}
		key := fmt.Sprintf("res_horizon_%s_vip", iface)
		res.Resources[key] = kind
		res.ResourceParams[key] = fmt.Sprintf(`params %s="%s" cidr_netmask="%s" nic="%s"`, param, vip, netmask, iface)
		group = append(group, key)
	}
	if len(group) > 1 {
		res.Groups[vipGroup] = strings.Join(group, " ")
	}
	return res, nil
}

func addDNSResources(e *Environment, res *HAResources) error {
	hostname := e.Config.String(config.OSPublicHostname)
	if hostname == "" {
		return errors.NotValidf("dns-ha without %s", config.OSPublicHostname)
	}
	addr, err := e.Hook.UnitGet("public-address")
	if err != nil {
		return errors.Trace(err)
	}
	addr, err = network.ResolveAddress(addr)
	if err != nil {
		return errors.Annotatef(err, "resolving public address")
	}
	res.Resources[hostnameResource] = "ocf:maas:dns"
	res.ResourceParams[hostnameResource] = fmt.Sprintf(`params fqdn="%s" ip_address="%s" `, hostname, addr)
	res.Groups[hostnameGroup] = hostnameResource
	return nil
}

// Settings encodes the resources as relation settings. Maps are sent as
// JSON objects, which the hacluster charm reads as literals.
func (r *HAResources) Settings() (map[string]string, error) {
	settings := map[string]string{
		"corosync_bindiface": r.BindIface,
		"corosync_mcastport": strconv.Itoa(r.McastPort),
	}
	for key, value := range map[string]map[string]string{
		"resources":       r.Resources,
		"resource_params": r.ResourceParams,
		"init_services":   r.InitServices,
		"clones":          r.Clones,
	} {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Trace(err)
		}
		settings[key] = string(data)
	}
	if len(r.Groups) > 0 {
		data, err := json.Marshal(r.Groups)
		if err != nil {
			return nil, errors.Trace(err)
		}
		settings["groups"] = string(data)
	}
	return settings, nil
}

func haJoined(e *Environment) error {
	res, err := BuildHAResources(e)
	if err != nil {
		return errors.Trace(err)
	}
	settings, err := res.Settings()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(e.Hook.RelationSet("", settings))
}
