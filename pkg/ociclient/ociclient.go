// Package ociclient is a read-only adapter over an OCI/Docker v2
// registry: list tags, fetch manifests, classify them, and read their
// layer blobs. It is built on oras.land/oras-go/v2, the same registry
// client library the ocifactory push/pull path uses, generalized here
// from push/pull to enumerate-and-read.
package ociclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/cincinnati-project/graph-builder/pkg/credentials"
)

// TagListPageSize bounds how many tags the remote returns per Tags
// call. The registry may still return fewer; oras-go paginates
// transparently regardless of what a single page holds.
const TagListPageSize = 20

var (
	// ErrLoginFailed means the registry rejected the supplied
	// credentials outright (HTTP 401).
	ErrLoginFailed = errors.New("ociclient: login failed")

	// ErrTokenRejected means a bearer token exchange succeeded but the
	// resulting token was refused by the registry (HTTP 403).
	ErrTokenRejected = errors.New("ociclient: token rejected")

	// ErrProtocolUnsupported means the remote host does not speak the
	// registry v2 HTTP API.
	ErrProtocolUnsupported = errors.New("ociclient: remote does not speak registry v2")

	// ErrUnknownManifest means a manifest's media type is neither
	// Docker v2 schema 1 nor schema 2.
	ErrUnknownManifest = errors.New("ociclient: unknown manifest kind")
)

// TagManifest is a transient per-tag view: a tag name paired with its
// layer digests in the order LayersOf returns them. The scanner does
// not construct it; it passes the LayersOf digest slice directly.
type TagManifest struct {
	Tag    string
	Layers []string
}

// ManifestKind classifies a fetched manifest's wire format.
type ManifestKind int

const (
	KindUnknown ManifestKind = iota
	KindV2S1Signed
	KindV2S2
)

func (k ManifestKind) String() string {
	switch k {
	case KindV2S1Signed:
		return "v2s1signed"
	case KindV2S2:
		return "v2s2"
	default:
		return "unknown"
	}
}

const (
	mediaTypeDockerV2S1Signed = "application/vnd.docker.distribution.manifest.v1+prettyjws"
	mediaTypeDockerV2S1       = "application/vnd.docker.distribution.manifest.v1+json"
	mediaTypeDockerV2S2       = "application/vnd.docker.distribution.manifest.v2+json"
	mediaTypeOCIManifest      = "application/vnd.oci.image.manifest.v1+json"
)

// Client is a bound handle to one repository on one registry host. Its
// zero value is not usable; construct one with Authenticate.
type Client struct {
	repo *remote.Repository

	// ManifestTimeout bounds a single GetManifest call.
	ManifestTimeout time.Duration
	// BlobTimeout bounds a single GetBlob call.
	BlobTimeout time.Duration
}

// Authenticate builds a Client bound to host/repo, attaching creds (if
// non-anonymous) as a static username/password credential, then probes
// connectivity and auth by listing the repository's tags once and
// discarding the result.
func Authenticate(ctx context.Context, host, repo string, creds *credentials.Credentials) (*Client, error) {
	ref := fmt.Sprintf("%s/%s", host, repo)
	r, err := remote.NewRepository(ref)
	if err != nil {
		return nil, fmt.Errorf("ociclient: new repository %q: %w", ref, err)
	}
	r.TagListPageSize = TagListPageSize

	if creds != nil && creds.Username != "" {
		r.Client = &auth.Client{
			Client: retry.DefaultClient,
			Credential: auth.StaticCredential(host, auth.Credential{
				Username: creds.Username,
				Password: creds.Password,
			}),
		}
	}

	c := &Client{
		repo:            r,
		ManifestTimeout: 30 * time.Second,
		BlobTimeout:     5 * time.Minute,
	}

	if err := r.Tags(ctx, "", func(tags []string) error { return nil }); err != nil {
		return nil, classifyProbeError(err)
	}

	return c, nil
}

func classifyProbeError(err error) error {
	var ec *errcode.ErrorResponse
	if errors.As(err, &ec) {
		switch ec.StatusCode {
		case 401:
			return fmt.Errorf("%w: %v", ErrLoginFailed, err)
		case 403:
			return fmt.Errorf("%w: %v", ErrTokenRejected, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrProtocolUnsupported, err)
}

// ListTags returns every tag in the repository, fetched page by page
// (oras-go paginates internally at TagListPageSize per request).
func ListTags(ctx context.Context, c *Client) ([]string, error) {
	var tags []string
	err := c.repo.Tags(ctx, "", func(page []string) error {
		tags = append(tags, page...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ociclient: listing tags: %w", err)
	}
	return tags, nil
}

// GetManifest resolves tag to a descriptor, fetches its content, and
// classifies it by the descriptor's media type.
func GetManifest(ctx context.Context, c *Client, tag string) (ManifestKind, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.ManifestTimeout)
	defer cancel()

	desc, err := c.repo.Resolve(ctx, tag)
	if err != nil {
		return KindUnknown, nil, fmt.Errorf("ociclient: resolving tag %q: %w", tag, err)
	}

	rc, err := c.repo.Fetch(ctx, desc)
	if err != nil {
		return KindUnknown, nil, fmt.Errorf("ociclient: fetching manifest for tag %q: %w", tag, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return KindUnknown, nil, fmt.Errorf("ociclient: reading manifest for tag %q: %w", tag, err)
	}

	switch desc.MediaType {
	case mediaTypeDockerV2S1Signed, mediaTypeDockerV2S1:
		return KindV2S1Signed, raw, nil
	case mediaTypeDockerV2S2, mediaTypeOCIManifest:
		return KindV2S2, raw, nil
	default:
		return KindUnknown, raw, nil
	}
}

// GetBlob fetches the blob identified by digest. The returned
// ReadCloser's Close also releases the per-call timeout; callers must
// always Close it.
func GetBlob(ctx context.Context, c *Client, digest string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.BlobTimeout)

	desc, err := c.repo.Blobs().Resolve(ctx, digest)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ociclient: resolving blob %q: %w", digest, err)
	}

	rc, err := c.repo.Blobs().Fetch(ctx, desc)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ociclient: fetching blob %q: %w", digest, err)
	}
	return &cancelOnCloseReader{ReadCloser: rc, cancel: cancel}, nil
}

// cancelOnCloseReader releases a context's timeout goroutine once the
// wrapped stream is closed, instead of on return from GetBlob.
type cancelOnCloseReader struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnCloseReader) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
