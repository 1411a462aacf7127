package ociclient

import (
	"encoding/json"
	"fmt"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// schema1Manifest models the legacy Docker Image Manifest v2, Schema 1
// wire format just deeply enough to recover its layer digests, the
// way go.podman.io/image/v5/manifest.Schema1 does: fsLayers listed
// newest-first.
type schema1Manifest struct {
	FSLayers []struct {
		BlobSum string `json:"blobSum"`
	} `json:"fsLayers"`
}

// LayersOf returns raw's layer digests with the manifest's own order
// reversed, for both schemas. Schema 1 lists fsLayers newest-first, so
// its result is base-first; schema 2 lists layers base-first, so its
// result is topmost-first.
func LayersOf(kind ManifestKind, raw []byte) ([]string, error) {
	switch kind {
	case KindV2S1Signed:
		var m schema1Manifest
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("ociclient: parsing schema1 manifest: %w", err)
		}
		digests := make([]string, len(m.FSLayers))
		for i, l := range m.FSLayers {
			digests[i] = l.BlobSum
		}
		reverse(digests)
		return digests, nil

	case KindV2S2:
		var m ocispec.Manifest
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("ociclient: parsing schema2 manifest: %w", err)
		}
		digests := make([]string, len(m.Layers))
		for i, l := range m.Layers {
			digests[i] = l.Digest.String()
		}
		reverse(digests)
		return digests, nil

	default:
		return nil, ErrUnknownManifest
	}
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
