// Package version implements the version arithmetic monocrate applies when
// a crate changes.
//
// Versions are [semver.Version] values from github.com/Masterminds/semver/v3,
// parsed strictly because Cargo only accepts full major.minor.patch versions.
package version

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Parse parses a strict semantic version such as "1.2.3" or "0.4.0-alpha.1".
func Parse(raw string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return v, nil
}

// MustParse is like [Parse] but panics on malformed input.
func MustParse(raw string) *semver.Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero returns 0.0.0, the baseline assumed for crates that were never published.
func Zero() *semver.Version {
	return semver.New(0, 0, 0, "", "")
}

// Bump computes the next version after prev.
//
// Below 1.0 the minor component is the breaking axis, so a breaking change
// bumps minor and a compatible one bumps patch. From 1.0 on a breaking change
// bumps major. Lower components reset to zero and pre-release and build
// metadata are dropped. The result is always strictly greater than prev.
func Bump(prev *semver.Version, breaking bool) *semver.Version {
	major, minor, patch := prev.Major(), prev.Minor(), prev.Patch()
	switch {
	case breaking && major == 0:
		return semver.New(0, minor+1, 0, "", "")
	case breaking:
		return semver.New(major+1, 0, 0, "", "")
	default:
		return semver.New(major, minor, patch+1, "", "")
	}
}

// Newer reports whether local is strictly ahead of published.
func Newer(local, published *semver.Version) bool {
	return local.GreaterThan(published)
}

// Max returns the highest version in vs by semver precedence, or nil when vs is empty.
func Max(vs []*semver.Version) *semver.Version {
	if len(vs) == 0 {
		return nil
	}
	return slices.MaxFunc(vs, func(a, b *semver.Version) int { return a.Compare(b) })
}

// IsWildcard reports whether a dependency requirement accepts any version.
func IsWildcard(req string) bool {
	return strings.TrimSpace(req) == "*"
}
