// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package templating renders the registered configuration files from
// release-specific templates.
package templating

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"text/template"

	"dario.cat/mergo"
	"github.com/Masterminds/sprig/v3"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/utils/v4"

	"github.com/juju/charm-openstack-dashboard/contexts"
	"github.com/juju/charm-openstack-dashboard/core/release"
	"github.com/juju/charm-openstack-dashboard/registry"
)

var logger = loggo.GetLogger("dashboard.templating")

// Templates are looked up under a release directory first, then under each
// older release, then at the top level.
//
//go:embed all:templates
var embedded embed.FS

// Templates returns the templates shipped with the charm.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Registry is the source of managed files.
type Registry interface {
	Entries() []*registry.Entry
	Entry(path string) (*registry.Entry, error)
}

// Renderer writes managed files from their templates and contexts.
type Renderer struct {
	registry  Registry
	templates fs.FS
	release   release.Codename
}

// NewRenderer returns a renderer for the registry's files using the
// templates in fsys for release rel.
func NewRenderer(r Registry, fsys fs.FS, rel release.Codename) *Renderer {
	return &Renderer{
		registry:  r,
		templates: fsys,
		release:   rel,
	}
}

// SetRelease switches the templates later renders use. Files already
// written are left alone.
func (r *Renderer) SetRelease(rel release.Codename) {
	logger.Debugf("switching templates from %q to %q", r.release, rel)
	r.release = rel
}

// Release returns the release whose templates are in use.
func (r *Renderer) Release() release.Codename {
	return r.release
}

// Render writes the file at path if its rendered content differs from
// what is on disk. It reports whether the file was written.
func (r *Renderer) Render(path string) (bool, error) {
	entry, err := r.registry.Entry(path)
	if err != nil {
		return false, errors.Trace(err)
	}
	return r.render(entry)
}

// RenderAll renders every registered file in registration order and
// returns the paths that were written.
func (r *Renderer) RenderAll() ([]string, error) {
	var written []string
	for _, entry := range r.registry.Entries() {
		changed, err := r.render(entry)
		if err != nil {
			return written, errors.Trace(err)
		}
		if changed {
			written = append(written, entry.Path)
		}
	}
	return written, nil
}

// CompleteContexts returns, sorted, the relations consumed by providers
// whose context is currently complete.
func (r *Renderer) CompleteContexts() ([]string, error) {
	done := make(map[contexts.Provider]bool)
	complete := set.NewStrings()
	for _, entry := range r.registry.Entries() {
		for _, p := range entry.Providers {
			if done[p] {
				continue
			}
			done[p] = true
			ctx, err := p.Context()
			if err != nil {
				return nil, errors.Annotatef(err, "evaluating %s context", p.Name())
			}
			if contexts.Complete(ctx) {
				complete = complete.Union(set.NewStrings(p.Inputs().Relations...))
			}
		}
	}
	return complete.SortedValues(), nil
}

func (r *Renderer) render(entry *registry.Entry) (bool, error) {
	data, err := r.Content(entry)
	if err != nil {
		return false, errors.Trace(err)
	}
	existing, err := os.ReadFile(entry.Path)
	if err == nil && bytes.Equal(existing, data) {
		logger.Tracef("%s unchanged", entry.Path)
		return false, nil
	} else if err != nil && !os.IsNotExist(err) {
		return false, errors.Annotatef(err, "reading %s", entry.Path)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(entry.Path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(entry.Path), 0755); err != nil {
		return false, errors.Trace(err)
	}
	if err := utils.AtomicWriteFile(entry.Path, data, mode); err != nil {
		return false, errors.Annotatef(err, "writing %s", entry.Path)
	}
	logger.Infof("wrote %s", entry.Path)
	return true, nil
}

// Content returns the rendered content of entry without writing it.
func (r *Renderer) Content(entry *registry.Entry) ([]byte, error) {
	vars, err := mergeContexts(entry.Providers)
	if err != nil {
		return nil, errors.Annotatef(err, "building context for %s", entry.Path)
	}
	name, err := r.templatePath(entry.Template)
	if err != nil {
		return nil, errors.Trace(err)
	}
	source, err := fs.ReadFile(r.templates, name)
	if err != nil {
		return nil, errors.Annotatef(err, "reading template %s", name)
	}
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(string(source))
	if err != nil {
		return nil, errors.Annotatef(err, "parsing template %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return nil, errors.Annotatef(err, "rendering %s", entry.Path)
	}
	return buf.Bytes(), nil
}

// templatePath finds the template for the active release.
func (r *Renderer) templatePath(name string) (string, error) {
	var dirs []string
	if r.release.IsKnown() {
		dirs = append(dirs, string(r.release))
		for _, older := range r.release.Older() {
			dirs = append(dirs, string(older))
		}
	}
	dirs = append(dirs, ".")
	for _, dir := range dirs {
		candidate := path.Join(dir, name)
		if _, err := fs.Stat(r.templates, candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errors.NotFoundf("template %q for release %q", name, r.release)
}

// mergeContexts merges provider output in order, later providers
// overriding earlier ones.
func mergeContexts(providers []contexts.Provider) (map[string]interface{}, error) {
	merged := make(map[string]interface{})
	for _, p := range providers {
		ctx, err := p.Context()
		if err != nil {
			return nil, errors.Annotatef(err, "%s context", p.Name())
		}
		if len(ctx) == 0 {
			logger.Debugf("%s context is incomplete", p.Name())
			continue
		}
		if err := mergo.Merge(&merged, map[string]interface{}(ctx), mergo.WithOverride); err != nil {
			return nil, errors.Annotatef(err, "merging %s context", p.Name())
		}
	}
	return merged, nil
}

// Names lists every template name in fsys, sorted.
func Names(fsys fs.FS) ([]string, error) {
	names := set.NewStrings()
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names.Add(path.Base(p))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return names.SortedValues(), nil
}
