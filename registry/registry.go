// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package registry decides which configuration files the charm manages on
// this host, which providers feed each of them and which services must
// restart when they change.
package registry

import (
	"os"
	"path/filepath"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/juju/charm-openstack-dashboard/contexts"
	"github.com/juju/charm-openstack-dashboard/core/release"
)

var logger = loggo.GetLogger("dashboard.registry")

// Services the charm manages.
const (
	Apache2 = "apache2"
	HAProxy = "haproxy"
)

// Layout is the apache configuration layout in use on the host.
type Layout int

const (
	// ApacheLegacy is the pre-2.4 layout: conf.d and extensionless sites.
	ApacheLegacy Layout = iota
	// Apache24 is the conf-available and sites-available/*.conf layout.
	Apache24
)

func (l Layout) String() string {
	switch l {
	case ApacheLegacy:
		return "apache-legacy"
	case Apache24:
		return "apache-2.4"
	}
	return "unknown"
}

// VersionProber compares an installed package's version with revno.
type VersionProber interface {
	CompareInstalled(pkg, revno string) (int, error)
}

// Entry is one managed file.
type Entry struct {
	// Path is where the file is written. It identifies the entry.
	Path string

	// Template names the template the file is rendered from.
	Template string

	// Providers feed the template, later ones overriding earlier ones.
	Providers []contexts.Provider

	// Services restart when the file's content changes.
	Services []string
}

// RestartEntry is a path and the services its change restarts.
type RestartEntry struct {
	Path     string
	Services []string
}

// Registry is the ordered set of managed files for one invocation.
type Registry struct {
	entries []*Entry
	index   map[string]*Entry
	layout  Layout
}

// Entries returns the managed files in registration order.
func (r *Registry) Entries() []*Entry {
	return append([]*Entry(nil), r.entries...)
}

// Entry returns the entry registered for path.
func (r *Registry) Entry(path string) (*Entry, error) {
	e, ok := r.index[path]
	if !ok {
		return nil, errors.NotFoundf("config file %q", path)
	}
	return e, nil
}

// Paths returns the managed paths in registration order.
func (r *Registry) Paths() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Path
	}
	return out
}

// Layout returns the apache layout the registry was built for.
func (r *Registry) Layout() Layout {
	return r.layout
}

// RestartMap returns, in registration order, every managed path that has
// services to restart.
func (r *Registry) RestartMap() []RestartEntry {
	var out []RestartEntry
	for _, e := range r.entries {
		if len(e.Services) == 0 {
			continue
		}
		out = append(out, RestartEntry{
			Path:     e.Path,
			Services: append([]string(nil), e.Services...),
		})
	}
	return out
}

// Services returns every service named by the restart map, each once, in
// first-seen order.
func (r *Registry) Services() []string {
	seen := set.NewStrings()
	var out []string
	for _, e := range r.RestartMap() {
		for _, svc := range e.Services {
			if !seen.Contains(svc) {
				seen.Add(svc)
				out = append(out, svc)
			}
		}
	}
	return out
}

func (r *Registry) register(e *Entry) {
	if e.Template == "" {
		e.Template = filepath.Base(e.Path)
	}
	if _, ok := r.index[e.Path]; ok {
		logger.Warningf("config file %s registered twice", e.Path)
		return
	}
	logger.Tracef("registered %s (template %s)", e.Path, e.Template)
	r.entries = append(r.entries, e)
	r.index[e.Path] = e
}

// DetectLayout reports the 2.4 layout if the apache configuration
// directory exists and the installed apache2 is at least 2.4. An apache2
// that is not installed reads as the legacy layout.
func DetectLayout(apacheConfDir string, prober VersionProber) (Layout, error) {
	exists, err := isDir(apacheConfDir)
	if err != nil || !exists {
		return ApacheLegacy, errors.Trace(err)
	}
	cmp, err := prober.CompareInstalled(Apache2, "2.4")
	if errors.IsNotFound(err) {
		return ApacheLegacy, nil
	} else if err != nil {
		return ApacheLegacy, errors.Annotate(err, "probing apache2 version")
	}
	if cmp >= 0 {
		return Apache24, nil
	}
	return ApacheLegacy, nil
}

// New builds the registry for the host described by d. The apache layout
// is resolved once here and configuration belonging to the other layout
// is removed from disk.
func New(d *contexts.Deps, prober VersionProber) (*Registry, error) {
	layout, err := DetectLayout(d.Paths.ApacheConfDir, prober)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewForLayout(d, layout)
}

// NewForLayout builds the registry for an already known apache layout.
func NewForLayout(d *contexts.Deps, layout Layout) (*Registry, error) {
	p := d.Paths
	r := &Registry{
		index:  make(map[string]*Entry),
		layout: layout,
	}

	var (
		horizon       = contexts.NewHorizon(d)
		identity      = contexts.NewIdentityService(d)
		syslog        = contexts.NewSyslog(d)
		apache        = contexts.NewApache(d)
		apacheSSL     = contexts.NewApacheSSL(d)
		localSettings = []contexts.Provider{horizon, identity, syslog, contexts.NewLocalSettings(d)}
	)

	if d.Release.AtLeast(release.Mitaka) {
		r.register(&Entry{
			Path:      p.KeystoneV3Policy,
			Providers: []contexts.Provider{identity},
			Services:  []string{Apache2},
		})
		localSettings = append(localSettings, contexts.NewSharedDB(d))
	}
	r.register(&Entry{
		Path:      p.LocalSettings,
		Providers: localSettings,
		Services:  []string{Apache2},
	})
	r.register(&Entry{
		Path:      p.HAProxyConf,
		Providers: []contexts.Provider{contexts.NewHorizonHAProxy(d), contexts.NewHAProxy(d)},
		Services:  []string{HAProxy},
	})
	r.register(&Entry{
		Path:      p.PortsConf,
		Providers: []contexts.Provider{apache},
		Services:  []string{Apache2},
	})

	active := apachePaths{site: p.ApacheDefault, conf: p.ApacheConf, ssl: p.ApacheSSL}
	stale := apachePaths{site: p.Apache24Default, conf: p.Apache24Conf, ssl: p.Apache24SSL}
	if layout == Apache24 {
		active, stale = stale, active
	}
	for _, path := range stale.all() {
		if err := removeStale(path); err != nil {
			return nil, errors.Trace(err)
		}
	}
	r.register(&Entry{
		Path:      active.site,
		Providers: []contexts.Provider{apache},
		Services:  []string{Apache2},
	})
	r.register(&Entry{
		Path:      active.conf,
		Providers: []contexts.Provider{horizon, syslog},
		Services:  []string{Apache2},
	})
	r.register(&Entry{
		Path:      active.ssl,
		Providers: []contexts.Provider{apacheSSL, apache},
		Services:  []string{Apache2},
	})

	// The router panel only exists when the dashboard ships it.
	exists, err := isDir(filepath.Dir(p.RouterSetting))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if exists {
		r.register(&Entry{
			Path:      p.RouterSetting,
			Providers: []contexts.Provider{contexts.NewRouterSetting(d)},
			Services:  []string{Apache2},
		})
	}
	logger.Debugf("registered %d config files for %s layout", len(r.entries), layout)
	return r, nil
}

type apachePaths struct {
	site, conf, ssl string
}

func (a apachePaths) all() []string {
	return []string{a.conf, a.ssl, a.site}
}

func removeStale(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Annotatef(err, "checking %s", path)
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	logger.Infof("removing old config %s", path)
	return errors.Trace(os.Remove(path))
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	} else if err != nil {
		return false, errors.Annotatef(err, "checking %s", path)
	}
	return info.IsDir(), nil
}
