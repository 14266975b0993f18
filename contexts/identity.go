// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/network"
)

// Region is one keystone endpoint offered to users at login.
type Region struct {
	Endpoint string
	Title    string
}

// IdentityService provides the keystone endpoint the dashboard
// authenticates against.
type IdentityService struct {
	deps *Deps
}

// NewIdentityService returns the keystone provider.
func NewIdentityService(d *Deps) *IdentityService {
	return &IdentityService{deps: d}
}

func (*IdentityService) Name() string { return "identity-service" }

func (*IdentityService) Inputs() Inputs {
	return Inputs{
		Config:    []string{config.EndpointType},
		Relations: []string{IdentityServiceRelation},
	}
}

// unitContext builds the context one keystone unit offers.
func unitContext(settings map[string]string) Context {
	apiVersion := settings["api_version"]
	if apiVersion == "" {
		apiVersion = "2"
	}
	protocol := settings["service_protocol"]
	if protocol == "" {
		protocol = "http"
	}
	ctx := Context{
		"service_host":     network.FormatIPv6(settings["service_host"]),
		"service_port":     settings["service_port"],
		"service_protocol": protocol,
		"api_version":      apiVersion,
	}
	if apiVersion == "3" {
		ctx["admin_domain_id"] = settings["admin_domain_id"]
	}
	return ctx
}

func (s *IdentityService) Context() (Context, error) {
	// Validate config first: a bad endpoint type fails the hook even
	// before keystone is related.
	endpointTypes, err := s.deps.Config.EndpointTypes()
	if err != nil {
		return nil, errors.Trace(err)
	}

	ctx := Context{}
	seen := set.NewStrings()
	var regions []Region
	err = eachUnit(s.deps.Env, IdentityServiceRelation, func(_, unit string, settings map[string]string) bool {
		local := unitContext(settings)
		if !Complete(local) {
			logger.Debugf("identity-service unit %s is not ready", unit)
			return true
		}
		if region, ok := settings["region"]; ok && region != "" {
			endpoint := fmt.Sprintf("%s://%s:%s/v2.0", local["service_protocol"], local["service_host"], local["service_port"])
			for _, title := range strings.Fields(region) {
				key := endpoint + " " + title
				if seen.Contains(key) {
					continue
				}
				seen.Add(key)
				regions = append(regions, Region{Endpoint: endpoint, Title: title})
			}
		}
		if len(ctx) == 0 {
			ctx = local
		}
		return true
	})
	if err != nil {
		return nil, errors.Annotate(err, "reading identity-service relation")
	}

	if len(regions) > 1 {
		sort.SliceStable(regions, func(i, j int) bool {
			if regions[i].Endpoint != regions[j].Endpoint {
				return regions[i].Endpoint < regions[j].Endpoint
			}
			return regions[i].Title < regions[j].Title
		})
		out := make([]map[string]string, len(regions))
		for i, r := range regions {
			out[i] = map[string]string{"endpoint": r.Endpoint, "title": r.Title}
		}
		ctx["regions"] = out
	}

	if len(endpointTypes) > 0 {
		ctx["primary_endpoint"] = endpointTypes[0]
	}
	if len(endpointTypes) > 1 {
		ctx["secondary_endpoint"] = endpointTypes[1]
	}
	return ctx, nil
}
