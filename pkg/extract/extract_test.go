package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func buildLayer(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, contents := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(contents)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader() error = %v", err)
		}
		if _, err := tw.Write([]byte(contents)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close() error = %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}
	return buf.Bytes()
}

const validMetadataJSON = `{
	"kind": "v0",
	"version": "1.0.0",
	"previous": [],
	"next": [],
	"metadata": {"channel": "stable"}
}`

func TestMetadataFound(t *testing.T) {
	t.Parallel()

	layer := buildLayer(t, map[string]string{
		"some/other/file":               "irrelevant",
		"release-manifests/release-metadata": validMetadataJSON,
	})

	m, err := Metadata(context.Background(), bytes.NewReader(layer))
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if m.Version.String() != "1.0.0" {
		t.Errorf("Version = %s, want 1.0.0", m.Version)
	}
	if m.Metadata["channel"] != "stable" {
		t.Errorf("Metadata[channel] = %q, want stable", m.Metadata["channel"])
	}
}

func TestMetadataNotFound(t *testing.T) {
	t.Parallel()

	layer := buildLayer(t, map[string]string{
		"some/other/file": "irrelevant",
	})

	_, err := Metadata(context.Background(), bytes.NewReader(layer))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMetadataMalformed(t *testing.T) {
	t.Parallel()

	layer := buildLayer(t, map[string]string{
		"release-manifests/release-metadata": "{not json",
	})

	_, err := Metadata(context.Background(), bytes.NewReader(layer))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestMetadataNotGzip(t *testing.T) {
	t.Parallel()

	_, err := Metadata(context.Background(), bytes.NewReader([]byte("not a gzip stream")))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

// buildLayerWithCorruptFirstEntry writes two tar entries — an empty
// "bad" entry whose header checksum is then corrupted, followed by a
// real release-metadata entry — and gzips the result. The corrupt
// header fails tar.Reader.Next() but the following entry must still
// be read.
func buildLayerWithCorruptFirstEntry(t *testing.T, metadataJSON string) []byte {
	t.Helper()

	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)

	if err := tw.WriteHeader(&tar.Header{Name: "bad", Mode: 0o644, Size: 0}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}

	if err := tw.WriteHeader(&tar.Header{
		Name: "release-manifests/release-metadata",
		Mode: 0o644,
		Size: int64(len(metadataJSON)),
	}); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	if _, err := tw.Write([]byte(metadataJSON)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar Close() error = %v", err)
	}

	tarBytes := raw.Bytes()
	// The checksum field occupies bytes 148-155 of a USTAR header
	// block; corrupting it makes Next() reject the first entry's
	// header without touching its (zero-length) body.
	tarBytes[148] ^= 0xFF

	var gzBuf bytes.Buffer
	gz := gzip.NewWriter(&gzBuf)
	if _, err := gz.Write(tarBytes); err != nil {
		t.Fatalf("gzip Write() error = %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip Close() error = %v", err)
	}
	return gzBuf.Bytes()
}

func TestMetadataSkipsCorruptEntryThenFindsValid(t *testing.T) {
	t.Parallel()

	layer := buildLayerWithCorruptFirstEntry(t, validMetadataJSON)

	m, err := Metadata(context.Background(), bytes.NewReader(layer))
	if err != nil {
		t.Fatalf("Metadata() error = %v, want the corrupt entry skipped and the valid one found", err)
	}
	if m.Version.String() != "1.0.0" {
		t.Errorf("Version = %s, want 1.0.0", m.Version)
	}
}
