package release

import "fmt"

// KindV0 is the only currently-defined metadata schema variant.
const KindV0 = "v0"

// Metadata is the release-metadata document embedded inside a tag's
// topmost image layer, at release-manifests/release-metadata.
type Metadata struct {
	Kind     string            `json:"kind"`
	Version  Version           `json:"version"`
	Previous VersionSet        `json:"previous"`
	Next     VersionSet        `json:"next"`
	Metadata map[string]string `json:"metadata"`
}

// Validate checks the invariants spec.md assigns to Metadata: Previous
// and Next never contain Version itself.
func (m *Metadata) Validate() error {
	if m.Version.IsZero() {
		return fmt.Errorf("metadata: version is required")
	}
	if m.Previous.Contains(m.Version) {
		return fmt.Errorf("metadata: previous set contains own version %s", m.Version)
	}
	if m.Next.Contains(m.Version) {
		return fmt.Errorf("metadata: next set contains own version %s", m.Version)
	}
	return nil
}
