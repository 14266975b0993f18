// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package contexts

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/juju/utils/v4"

	"github.com/juju/charm-openstack-dashboard/core/config"
	"github.com/juju/charm-openstack-dashboard/core/paths"
	"github.com/juju/charm-openstack-dashboard/internal/runner"
	"github.com/juju/charm-openstack-dashboard/network"
	"github.com/juju/charm-openstack-dashboard/pki"
)

const (
	// HTTPPort and HTTPSPort are where apache listens behind haproxy.
	HTTPPort  = 70
	HTTPSPort = 433

	caCertName    = "keystone_juju_ca_cert.crt"
	selfSignedKey = "ssl-self-signed"
)

// now exists to allow patching during tests.
var now = time.Now

// Apache provides the apache listen ports and, when HTTPS is enforced,
// the address HTTP requests are redirected to.
type Apache struct {
	deps *Deps
}

// NewApache returns the apache ports provider.
func NewApache(d *Deps) *Apache {
	return &Apache{deps: d}
}

func (*Apache) Name() string { return "apache" }

func (*Apache) Inputs() Inputs {
	return Inputs{
		Config:    []string{config.EnforceSSL, config.VIP, config.PreferIPv6, config.SSLCert, config.SSLKey, config.SSLSelfSigned},
		Relations: []string{IdentityServiceRelation},
	}
}

func (a *Apache) Context() (Context, error) {
	ctx := Context{"http_port": HTTPPort, "https_port": HTTPSPort}
	if !a.deps.Config.Bool(config.EnforceSSL) {
		return ctx, nil
	}
	cert, key, _, err := configuredCert(a.deps)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if (cert == "" || key == "") && !a.deps.Config.Bool(config.SSLSelfSigned) {
		logger.Warningf("enforce ssl redirect requested but ssl not configured - skipping redirect")
		return ctx, nil
	}
	addr, err := a.sslAddress()
	if err != nil {
		return nil, errors.Trace(err)
	}
	ctx["ssl_addr"] = addr
	return ctx, nil
}

func (a *Apache) sslAddress() (string, error) {
	cfg := a.deps.Config
	if vips := cfg.VIPs(); len(vips) > 0 {
		return vips[0], nil
	}
	if cfg.Bool(config.PreferIPv6) {
		addr, err := a.deps.Network.IPv6Address(cfg.VIPs()...)
		if err != nil {
			return "", errors.Trace(err)
		}
		return network.FormatIPv6(addr), nil
	}
	private, err := a.deps.Env.UnitGet("private-address")
	if err != nil {
		return "", errors.Trace(err)
	}
	return network.ResolveAddress(private)
}

// ApacheSSL installs the certificate apache serves HTTPS with and reports
// whether SSL is configured.
type ApacheSSL struct {
	deps *Deps
}

// NewApacheSSL returns the apache certificate provider.
func NewApacheSSL(d *Deps) *ApacheSSL {
	return &ApacheSSL{deps: d}
}

func (*ApacheSSL) Name() string { return "apache-ssl" }

func (*ApacheSSL) Inputs() Inputs {
	return Inputs{
		Config:    []string{config.SSLCert, config.SSLKey, config.SSLCA, config.SSLSelfSigned},
		Relations: []string{IdentityServiceRelation},
	}
}

func (s *ApacheSSL) Context() (Context, error) {
	ca, fromRelation, err := configuredCA(s.deps)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var decoded []byte
	if fromRelation {
		decoded = DecodeRelationValue(IdentityServiceRelation, "ca_cert", ca)
	} else if ca != "" {
		if decoded, err = base64.StdEncoding.DecodeString(ca); err != nil {
			return nil, errors.NewNotValid(err, "CA certificate is not base64")
		}
	}
	if decoded != nil {
		if err := InstallCACert(s.deps.Paths, s.deps.Runner, decoded); err != nil {
			return nil, errors.Trace(err)
		}
	}

	certPEM, keyPEM, err := s.certificate()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if certPEM == nil || keyPEM == nil {
		return Context{"ssl_configured": false}, nil
	}
	p := s.deps.Paths
	if err := writeFile(p.SSLCert, certPEM, 0644); err != nil {
		return nil, errors.Trace(err)
	}
	if err := writeFile(p.SSLKey, keyPEM, 0600); err != nil {
		return nil, errors.Trace(err)
	}
	return Context{
		"ssl_configured": true,
		"ssl_cert":       p.SSLCert,
		"ssl_key":        p.SSLKey,
	}, nil
}

// certificate returns the decoded certificate and key from config or the
// identity relation, else a memoized self-signed pair when enabled.
func (s *ApacheSSL) certificate() ([]byte, []byte, error) {
	cert, key, fromRelation, err := configuredCert(s.deps)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	if fromRelation {
		certPEM := DecodeRelationValue(IdentityServiceRelation, "ssl_cert", cert)
		keyPEM := DecodeRelationValue(IdentityServiceRelation, "ssl_key", key)
		if certPEM != nil && keyPEM != nil {
			return certPEM, keyPEM, nil
		}
	} else if cert != "" && key != "" {
		certPEM, err := base64.StdEncoding.DecodeString(cert)
		if err != nil {
			return nil, nil, errors.NewNotValid(err, "SSL certificate is not base64")
		}
		keyPEM, err := base64.StdEncoding.DecodeString(key)
		if err != nil {
			return nil, nil, errors.NewNotValid(err, "SSL key is not base64")
		}
		return certPEM, keyPEM, nil
	}
	if !s.deps.Config.Bool(config.SSLSelfSigned) {
		return nil, nil, nil
	}
	bundle, err := s.deps.State.Memoize(selfSignedKey, s.generate)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return pki.SplitPEM([]byte(bundle))
}

func (s *ApacheSSL) generate() (string, error) {
	cn, err := s.deps.Env.UnitGet("private-address")
	if err != nil {
		return "", errors.Trace(err)
	}
	hosts := s.deps.Config.VIPs()
	if h := s.deps.Config.String(config.OSPublicHostname); h != "" {
		hosts = append(hosts, h)
	}
	certPEM, keyPEM, err := pki.SelfSigned(cn, hosts, nil, now())
	if err != nil {
		return "", errors.Trace(err)
	}
	logger.Infof("generated self-signed certificate for %s", cn)
	return string(certPEM) + string(keyPEM), nil
}

// configuredCert returns the base64 certificate and key from config, else
// from the first identity-service unit offering both, and whether they came
// from the relation.
func configuredCert(d *Deps) (string, string, bool, error) {
	cert, key := d.Config.String(config.SSLCert), d.Config.String(config.SSLKey)
	if cert != "" && key != "" {
		return cert, key, false, nil
	}
	cert, key = "", ""
	err := eachUnit(d.Env, IdentityServiceRelation, func(_, _ string, settings map[string]string) bool {
		if settings["ssl_cert"] != "" && settings["ssl_key"] != "" {
			cert, key = settings["ssl_cert"], settings["ssl_key"]
			return false
		}
		return true
	})
	if err != nil {
		return "", "", false, errors.Annotate(err, "reading identity-service certificates")
	}
	return cert, key, cert != "", nil
}

// configuredCA returns the base64 CA certificate from config, else from
// the identity relation, and whether it came from the relation.
func configuredCA(d *Deps) (string, bool, error) {
	if ca := d.Config.String(config.SSLCA); ca != "" {
		return ca, false, nil
	}
	var ca string
	err := eachUnit(d.Env, IdentityServiceRelation, func(_, _ string, settings map[string]string) bool {
		ca = settings["ca_cert"]
		return ca == ""
	})
	if err != nil {
		return "", false, errors.Annotate(err, "reading identity-service CA")
	}
	return ca, ca != "", nil
}

// DecodeRelationValue decodes a base64 value another unit published.
// Malformed data is logged and treated as absent.
func DecodeRelationValue(relation, key, value string) []byte {
	if value == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		logger.Warningf("ignoring %s %s: not base64: %v", relation, key, err)
		return nil
	}
	return data
}

// InstallCACert adds ca to the system trust store, refreshing the store
// only when the certificate changed.
func InstallCACert(p paths.Collection, r runner.Runner, ca []byte) error {
	path := filepath.Join(p.CACertDir, caCertName)
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(bytes.TrimSpace(existing), bytes.TrimSpace(ca)) {
		return nil
	}
	if err := writeFile(path, ca, 0644); err != nil {
		return errors.Trace(err)
	}
	logger.Infof("installing CA certificate %s", path)
	if _, err := r.Run("update-ca-certificates", "--fresh"); err != nil {
		return errors.Annotate(err, "updating CA certificates")
	}
	return nil
}

func writeFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(utils.AtomicWriteFile(path, data, perm), "writing %s", path)
}
