// Package release holds the data model shared by the scanner, the
// graph builder, and the plugin pipeline: versions, release metadata,
// and the Concrete/Abstract release split.
package release

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is a semantic version with a total order. It wraps
// Masterminds/semver/v3 so the ordering, parsing, and string form
// exactly follow semver rules.
type Version struct {
	v *semver.Version
}

// NewVersion parses s as a semantic version.
func NewVersion(s string) (Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// String returns the canonical semver string form.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Compare returns -1, 0, or 1 following semver precedence rules.
func (v Version) Compare(o Version) int {
	return v.v.Compare(o.v)
}

// Equal reports whether v and o denote the same version.
func (v Version) Equal(o Version) bool {
	if v.v == nil || o.v == nil {
		return v.v == o.v
	}
	return v.v.Equal(o.v)
}

// IsZero reports whether v was never assigned a value.
func (v Version) IsZero() bool {
	return v.v == nil
}

// MarshalJSON renders the canonical semver string.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON parses the canonical semver string.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := NewVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// VersionSet is a set of distinct versions, rendered in JSON as an
// array but compared by membership rather than order.
type VersionSet []Version

// Contains reports whether s contains v.
func (s VersionSet) Contains(v Version) bool {
	for _, existing := range s {
		if existing.Equal(v) {
			return true
		}
	}
	return false
}
