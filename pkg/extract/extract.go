// Package extract locates and parses the release-metadata file
// embedded inside a gzip-compressed tar layer blob.
package extract

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/abcxyz/pkg/logging"
	"github.com/klauspost/compress/gzip"

	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// MetadataPath is the fixed location of the release-metadata file
// inside an image layer tarball.
const MetadataPath = "release-manifests/release-metadata"

// ErrNotFound indicates the layer did not contain a release-metadata file.
var ErrNotFound = errors.New("extract: release-metadata not found in layer")

// ErrMalformed indicates a release-metadata file was found but could
// not be parsed as JSON conforming to the Metadata schema.
var ErrMalformed = errors.New("extract: release-metadata is malformed")

// Metadata decompresses r as gzip, reads it as a tar archive, and
// returns the parsed contents of the first entry whose path exactly
// equals MetadataPath. Entries that fail to read are skipped, not
// fatal; only the absence of MetadataPath or a parse failure on its
// contents is returned as an error.
func Metadata(ctx context.Context, r io.Reader) (*release.Metadata, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening gzip stream: %v", ErrMalformed, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, tar.ErrHeader) {
			// A corrupt entry is skipped, not fatal: a later entry
			// might still carry valid metadata. tar.Reader errors are
			// sticky, so a fresh reader resumes at the next block.
			logging.FromContext(ctx).DebugContext(ctx, "skipping unreadable tar entry", "error", err)
			tr = tar.NewReader(gz)
			continue
		}
		if err != nil {
			// The stream itself is unreadable past this point.
			logging.FromContext(ctx).DebugContext(ctx, "stopping at unreadable tar stream", "error", err)
			break
		}

		if hdr.Name != MetadataPath {
			continue
		}

		contents, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrMalformed, MetadataPath, err)
		}

		var m release.Metadata
		if err := json.Unmarshal(contents, &m); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrMalformed, MetadataPath, err)
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: validating %s: %v", ErrMalformed, MetadataPath, err)
		}
		return &m, nil
	}

	return nil, ErrNotFound
}
