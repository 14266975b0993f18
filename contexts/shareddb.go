// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/network"
)

// SharedDB provides the database the dashboard keeps sessions in.
type SharedDB struct {
	deps *Deps
}

// NewSharedDB returns the database provider.
func NewSharedDB(d *Deps) *SharedDB {
	return &SharedDB{deps: d}
}

func (*SharedDB) Name() string { return "shared-db" }

func (*SharedDB) Inputs() Inputs {
	return Inputs{
		Config:    []string{config.Database, config.DatabaseUser},
		Relations: []string{SharedDBRelation},
	}
}

func (s *SharedDB) Context() (Context, error) {
	database := s.deps.Config.String(config.Database)
	user := s.deps.Config.String(config.DatabaseUser)
	if database == "" || user == "" {
		return nil, errors.NotValidf("shared-db without database and database-user")
	}
	dbType := "mysql"
	if s.deps.Release.AtLeast(release.Mitaka) {
		dbType = "mysql+pymysql"
	}

	var (
		ctx      Context
		settings map[string]string
	)
	err := eachUnit(s.deps.Env, SharedDBRelation, func(_, _ string, rdata map[string]string) bool {
		candidate := Context{
			"database_host":     network.FormatIPv6(rdata["db_host"]),
			"database":          database,
			"database_user":     user,
			"database_password": rdata["password"],
			"database_type":     dbType,
		}
		if Complete(candidate) {
			ctx, settings = candidate, rdata
			return false
		}
		return true
	})
	if err != nil {
		return nil, errors.Annotate(err, "reading shared-db relation")
	}
	if ctx == nil {
		return Context{}, nil
	}
	if err := s.writeSSL(ctx, settings); err != nil {
		return nil, errors.Trace(err)
	}
	return ctx, nil
}

// writeSSL installs the client CA, certificate and key the database
// offers, if any.
func (s *SharedDB) writeSSL(ctx Context, settings map[string]string) error {
	dir := s.deps.Paths.DashboardConfDir
	for _, f := range []struct {
		key, file, ctxKey string
		perm              os.FileMode
	}{
		{"ssl_ca", "db-client.ca", "database_ssl_ca", 0644},
		{"ssl_cert", "db-client.cert", "database_ssl_cert", 0644},
		{"ssl_key", "db-client.key", "database_ssl_key", 0600},
	} {
		data := DecodeRelationValue(SharedDBRelation, f.key, settings[f.key])
		if data == nil {
			continue
		}
		path := filepath.Join(dir, f.file)
		if err := writeFile(path, data, f.perm); err != nil {
			return errors.Trace(err)
		}
		ctx[f.ctxKey] = path
	}
	return nil
}
