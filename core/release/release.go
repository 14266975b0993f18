// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package release knows the OpenStack release codenames and how to
// derive one from a package version, an install source or a host series.
package release

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Codename is an OpenStack release codename such as "mitaka".
type Codename string

// Unknown is returned when no release could be determined.
const Unknown Codename = ""

const (
	Diablo   Codename = "diablo"
	Essex    Codename = "essex"
	Folsom   Codename = "folsom"
	Grizzly  Codename = "grizzly"
	Havana   Codename = "havana"
	Icehouse Codename = "icehouse"
	Juno     Codename = "juno"
	Kilo     Codename = "kilo"
	Liberty  Codename = "liberty"
	Mitaka   Codename = "mitaka"
	Newton   Codename = "newton"
	Ocata    Codename = "ocata"
)

// ordered holds every known release, oldest first.
var ordered = []Codename{
	Diablo, Essex, Folsom, Grizzly, Havana, Icehouse,
	Juno, Kilo, Liberty, Mitaka, Newton, Ocata,
}

// yearVersions maps the date based versions used up to liberty.
var yearVersions = map[string]Codename{
	"2011.2": Diablo,
	"2012.1": Essex,
	"2012.2": Folsom,
	"2013.1": Grizzly,
	"2013.2": Havana,
	"2014.1": Icehouse,
	"2014.2": Juno,
	"2015.1": Kilo,
	"2015.2": Liberty,
	"2016.1": Mitaka,
	"2016.2": Newton,
	"2017.1": Ocata,
}

// dashboardMajors maps the semantic major versions of the dashboard
// package to their release.
var dashboardMajors = map[int]Codename{
	8:  Liberty,
	9:  Mitaka,
	10: Newton,
	11: Ocata,
}

// seriesDefaults is the release shipped in each Ubuntu series archive.
var seriesDefaults = map[string]Codename{
	"precise": Essex,
	"quantal": Folsom,
	"raring":  Grizzly,
	"saucy":   Havana,
	"trusty":  Icehouse,
	"utopic":  Juno,
	"vivid":   Kilo,
	"wily":    Liberty,
	"xenial":  Mitaka,
	"yakkety": Newton,
	"zesty":   Ocata,
}

// All returns every known codename, oldest first.
func All() []Codename {
	out := make([]Codename, len(ordered))
	copy(out, ordered)
	return out
}

func (c Codename) index() int {
	for i, known := range ordered {
		if known == c {
			return i
		}
	}
	return -1
}

// IsKnown reports whether c is one of the known releases.
func (c Codename) IsKnown() bool {
	return c.index() >= 0
}

// Compare returns -1, 0 or 1 as c is older than, the same as or newer
// than other. Unknown codenames sort before every known one.
func (c Codename) Compare(other Codename) int {
	a, b := c.index(), other.index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// AtLeast reports whether c is other or newer.
func (c Codename) AtLeast(other Codename) bool {
	return c.Compare(other) >= 0
}

// Before reports whether c is strictly older than other.
func (c Codename) Before(other Codename) bool {
	return c.Compare(other) < 0
}

// Older returns the releases older than c, newest first.
func (c Codename) Older() []Codename {
	i := c.index()
	if i <= 0 {
		return nil
	}
	out := make([]Codename, 0, i)
	for j := i - 1; j >= 0; j-- {
		out = append(out, ordered[j])
	}
	return out
}

func (c Codename) String() string {
	return string(c)
}

// FromPackageVersion returns the release an installed dashboard package
// version belongs to, for example "2:9.0.1-0ubuntu1" or
// "1:2014.1.5-0ubuntu2".
func FromPackageVersion(version string) (Codename, error) {
	upstream := version
	if i := strings.Index(upstream, ":"); i >= 0 {
		upstream = upstream[i+1:]
	}
	if i := strings.Index(upstream, "-"); i >= 0 {
		upstream = upstream[:i]
	}
	parts := strings.Split(upstream, ".")
	if len(parts) >= 2 {
		if c, ok := yearVersions[parts[0]+"."+parts[1]]; ok {
			return c, nil
		}
	}
	if major, err := strconv.Atoi(parts[0]); err == nil {
		if c, ok := dashboardMajors[major]; ok {
			return c, nil
		}
	}
	return Unknown, errors.NotFoundf("release for package version %q", version)
}

// ForSeries returns the release shipped in the Ubuntu series archive.
func ForSeries(series string) (Codename, error) {
	c, ok := seriesDefaults[series]
	if !ok {
		return Unknown, errors.NotFoundf("default release for series %q", series)
	}
	return c, nil
}

// FromInstallSource returns the release an openstack-origin value would
// install on a host running series. Supported forms are "distro",
// "distro-proposed", "cloud:<series>-<release>[/<pocket>]" and ppa or deb
// lines that mention a codename.
func FromInstallSource(source, series string) (Codename, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "" || source == "distro" || source == "distro-proposed":
		return ForSeries(series)
	case strings.HasPrefix(source, "cloud:"):
		pocket := strings.TrimPrefix(source, "cloud:")
		if i := strings.Index(pocket, "/"); i >= 0 {
			pocket = pocket[:i]
		}
		name := pocket
		if i := strings.LastIndex(pocket, "-"); i >= 0 {
			name = pocket[i+1:]
		}
		c := Codename(name)
		if !c.IsKnown() {
			return Unknown, errors.NotValidf("cloud archive pocket %q", pocket)
		}
		return c, nil
	case strings.HasPrefix(source, "deb"), strings.HasPrefix(source, "ppa"), strings.HasPrefix(source, "http"):
		for i := len(ordered) - 1; i >= 0; i-- {
			if strings.Contains(source, string(ordered[i])) {
				return ordered[i], nil
			}
		}
		return Unknown, errors.NotFoundf("release in install source %q", source)
	}
	return Unknown, errors.NotValidf("install source %q", source)
}
