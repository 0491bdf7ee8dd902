// Package semver implements the strict version policy for release
// descriptors: exactly major.minor.patch, no "v" prefix, no prerelease or
// build suffixes. Anything looser is rejected before ordering is ever
// consulted.
package semver

import (
	"fmt"
	"regexp"

	masterminds "github.com/Masterminds/semver"
)

var strictPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// Version is a parsed, strictly-valid major.minor.patch version.
type Version struct {
	raw   string
	inner *masterminds.Version
}

// IsValid reports whether s is a strict major.minor.patch version string.
func IsValid(s string) bool {
	return strictPattern.MatchString(s)
}

// Parse parses a strict major.minor.patch version string.
// Strings with a "v" prefix, prerelease tags, or build metadata are rejected.
func Parse(s string) (Version, error) {
	if !strictPattern.MatchString(s) {
		return Version{}, fmt.Errorf("invalid version %q: must match major.minor.patch exactly", s)
	}
	v, err := masterminds.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return Version{raw: s, inner: v}, nil
}

// MustParse is Parse for known-good literals; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the original version string.
func (v Version) String() string {
	return v.raw
}

// Compare returns -1, 0, or 1 when a is older than, equal to, or newer than b.
func Compare(a, b Version) int {
	return a.inner.Compare(b.inner)
}

// IsStrictlyNewer reports whether candidate is strictly newer than current.
// Equal and older candidates both return false.
func IsStrictlyNewer(candidate, current Version) bool {
	return Compare(candidate, current) > 0
}
