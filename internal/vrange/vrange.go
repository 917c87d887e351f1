// Package vrange wraps semantic versions and version-range constraints.
//
// Ranges use the constraint grammar shared with the IDL: the operators
// ^, ~, >=, >, <, <=, =, the * wildcard, and comma-separated AND
// clauses. Version pinning (the per-compilation memo that keeps every
// use site of the same (path, range) on one version) also lives here.
package vrange

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is a parsed semantic version.
type Version struct {
	v *semver.Version
}

// ParseVersion parses a MAJOR.MINOR.PATCH version with optional
// pre-release and build labels.
func ParseVersion(s string) (Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("bad version %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// MustVersion parses a version and panics on failure. Test fixtures only.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether the version is the unset zero value.
func (v Version) IsZero() bool { return v.v == nil }

// String renders the version, or "" for the zero value.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Major returns the major component.
func (v Version) Major() uint64 { return v.v.Major() }

// Compare orders two versions per semver precedence.
func (v Version) Compare(other Version) int { return v.v.Compare(other.v) }

// Equal reports version equality, treating two zero values as equal.
func (v Version) Equal(other Version) bool {
	if v.v == nil || other.v == nil {
		return v.v == other.v
	}
	return v.v.Equal(other.v)
}

// MarshalText renders the version for JSON/YAML embedding.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText parses the version from JSON/YAML.
func (v *Version) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = Version{}
		return nil
	}
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Range is a predicate over versions.
type Range struct {
	c   *semver.Constraints
	raw string
}

// ParseRange parses a range expression such as "^1", ">=1.2, <2", or
// "1.*". The empty string and "*" both mean any version.
func ParseRange(s string) (Range, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		raw = "*"
	}
	c, err := semver.NewConstraint(raw)
	if err != nil {
		return Range{}, fmt.Errorf("bad version range %q: %w", s, err)
	}
	return Range{c: c, raw: raw}, nil
}

// MustRange parses a range and panics on failure. Test fixtures only.
func MustRange(s string) Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Any matches every version.
func Any() Range {
	return MustRange("*")
}

// IsZero reports whether the range is the unset zero value.
func (r Range) IsZero() bool { return r.c == nil }

// Matches reports whether the version satisfies the range.
func (r Range) Matches(v Version) bool {
	if r.c == nil {
		return true
	}
	return r.c.Check(v.v)
}

// String returns the range as written, trimmed of surrounding space;
// an empty range renders as "*".
func (r Range) String() string {
	if r.c == nil {
		return "*"
	}
	return r.raw
}
