// Package scanner drives the repository scan cycle: enumerate tags,
// resolve each tag's metadata (via the cache when possible), build a
// graph from the results, run it through the plugin pipeline, and
// publish the serialized graph.
//
// Run's scan-immediately-then-every-period loop, its resetCh for
// runtime interval changes, and its clock.Clock seam are all
// generalized from Will-Luck/Docker-Sentinel's
// internal/engine.Scheduler.Run, applied here to registry-tag scanning
// instead of container-update scanning.
package scanner

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/abcxyz/pkg/logging"

	"github.com/cincinnati-project/graph-builder/pkg/cache"
	"github.com/cincinnati-project/graph-builder/pkg/clock"
	"github.com/cincinnati-project/graph-builder/pkg/credentials"
	"github.com/cincinnati-project/graph-builder/pkg/extract"
	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/ociclient"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/release"
	"github.com/cincinnati-project/graph-builder/pkg/snapshot"
)

// DefaultMaxInFlight is the default cap on concurrently running scan
// cycles.
const DefaultMaxInFlight = 5

// registryClient is the subset of ociclient operations a scan cycle
// needs, bound to one already-authenticated repository. Tests
// substitute a fake so scanTag/runCycle can run without a live
// registry, the same stub-the-backend approach ocifactory's own
// pkg/oci tests use against an in-memory oras-go store.
type registryClient interface {
	ListTags(ctx context.Context) ([]string, error)
	GetManifest(ctx context.Context, tag string) (ociclient.ManifestKind, []byte, error)
	GetBlob(ctx context.Context, digest string) (io.ReadCloser, error)
}

type realRegistryClient struct {
	client *ociclient.Client
}

func (r *realRegistryClient) ListTags(ctx context.Context) ([]string, error) {
	return ociclient.ListTags(ctx, r.client)
}

func (r *realRegistryClient) GetManifest(ctx context.Context, tag string) (ociclient.ManifestKind, []byte, error) {
	return ociclient.GetManifest(ctx, r.client, tag)
}

func (r *realRegistryClient) GetBlob(ctx context.Context, digest string) (io.ReadCloser, error) {
	return ociclient.GetBlob(ctx, r.client, digest)
}

// Scanner periodically scans one repository and publishes the
// resulting graph.
type Scanner struct {
	Period      time.Duration
	Host        string
	Repo        string
	Credentials *credentials.Credentials

	Cache    *cache.Cache
	Pipeline *plugin.Pipeline
	Snapshot *snapshot.Snapshot

	Clock       clock.Clock
	MaxInFlight int

	// authenticate builds the registryClient for a cycle. Defaulted in
	// New to wrap ociclient.Authenticate; overridden by tests.
	authenticate func(ctx context.Context, host, repo string, creds *credentials.Credentials) (registryClient, error)

	resetCh chan struct{}

	// inFlightMu guards inFlight: startCycle runs on the Run loop
	// goroutine, but forget runs on each spawned cycle's own goroutine,
	// so both sides need to serialize their slice mutations.
	inFlightMu sync.Mutex
	inFlight   []*inFlightScan
}

type inFlightScan struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Scanner with defaults filled in for any zero-valued
// optional field.
func New(host, repo string, period time.Duration, creds *credentials.Credentials, c *cache.Cache, pipeline *plugin.Pipeline, snap *snapshot.Snapshot) *Scanner {
	return &Scanner{
		Period:      period,
		Host:        host,
		Repo:        repo,
		Credentials: creds,
		Cache:       c,
		Pipeline:    pipeline,
		Snapshot:    snap,
		Clock:       clock.Real{},
		MaxInFlight: DefaultMaxInFlight,
		authenticate: func(ctx context.Context, host, repo string, creds *credentials.Credentials) (registryClient, error) {
			client, err := ociclient.Authenticate(ctx, host, repo, creds)
			if err != nil {
				return nil, err
			}
			return &realRegistryClient{client: client}, nil
		},
		resetCh: make(chan struct{}, 1),
	}
}

// SetPeriod changes the scan period at runtime and wakes the run loop
// to reset its timer.
func (s *Scanner) SetPeriod(d time.Duration) {
	s.Period = d
	select {
	case s.resetCh <- struct{}{}:
	default:
	}
}

// Run scans immediately, then every Period, until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	log := logging.FromContext(ctx)

	s.startCycle(ctx)

	for {
		select {
		case <-s.Clock.After(s.Period):
			s.startCycle(ctx)
		case <-s.resetCh:
			log.InfoContext(ctx, "scan period changed, resetting timer", "period", s.Period)
		case <-ctx.Done():
			log.InfoContext(ctx, "scanner stopped")
			return nil
		}
	}
}

// startCycle enforces the in-flight cap (evicting the oldest cycle if
// needed) and launches a new scan cycle in its own goroutine.
func (s *Scanner) startCycle(ctx context.Context) {
	s.inFlightMu.Lock()
	if len(s.inFlight) >= s.maxInFlight() {
		oldest := s.inFlight[0]
		s.inFlight = s.inFlight[1:]
		oldest.cancel()
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	entry := &inFlightScan{cancel: cancel, done: done}
	s.inFlight = append(s.inFlight, entry)
	s.inFlightMu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		s.runCycle(cycleCtx)
		s.forget(entry)
	}()
}

func (s *Scanner) forget(target *inFlightScan) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	for i, e := range s.inFlight {
		if e == target {
			s.inFlight = append(s.inFlight[:i], s.inFlight[i+1:]...)
			return
		}
	}
}

// inFlightLen reports how many scan cycles are currently tracked.
func (s *Scanner) inFlightLen() int {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	return len(s.inFlight)
}

func (s *Scanner) maxInFlight() int {
	if s.MaxInFlight <= 0 {
		return DefaultMaxInFlight
	}
	return s.MaxInFlight
}

// runCycle performs one full scan-build-publish cycle. Failures that
// should abort the cycle are logged and leave the snapshot untouched.
func (s *Scanner) runCycle(ctx context.Context) {
	log := logging.FromContext(ctx)

	client, err := s.authenticate(ctx, s.Host, s.Repo, s.Credentials)
	if err != nil {
		log.ErrorContext(ctx, "authentication failed, ending cycle", "error", err)
		return
	}

	tags, err := client.ListTags(ctx)
	if err != nil {
		log.ErrorContext(ctx, "listing tags failed, ending cycle", "error", err)
		return
	}

	var candidates []release.Candidate
	for _, tag := range tags {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c, err := s.scanTag(ctx, client, tag)
		if err != nil {
			log.WarnContext(ctx, "scanning tag failed, skipping", "tag", tag, "error", err)
			continue
		}
		if c != nil {
			candidates = append(candidates, *c)
		}
	}

	g, err := graph.Build(ctx, candidates)
	if err != nil {
		log.ErrorContext(ctx, "building graph failed, keeping previous snapshot", "error", err)
		return
	}

	if s.Pipeline != nil {
		g, err = s.Pipeline.Run(ctx, g, &plugin.Context{})
		if err != nil {
			log.ErrorContext(ctx, "plugin pipeline failed, keeping previous snapshot", "error", err)
			return
		}
	}

	body, err := graph.ToJSON(g)
	if err != nil {
		log.ErrorContext(ctx, "serializing graph failed, keeping previous snapshot", "error", err)
		return
	}

	s.Snapshot.Store(string(body))
}

// scanTag resolves one tag to a release.Candidate. The returned
// pointer is nil when the tag's manifest had no extractable metadata
// on any layer.
//
// The cache stores the full extracted Candidate, not just the
// projected Concrete node: C5 rebuilds the whole graph from scratch
// every cycle (spec.md §4.5 step 1), so a cache hit still needs
// Previous/Next to reproduce this tag's edges without re-fetching its
// blobs.
func (s *Scanner) scanTag(ctx context.Context, client registryClient, tag string) (*release.Candidate, error) {
	kind, raw, err := client.GetManifest(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}

	layers, err := ociclient.LayersOf(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("reading layers: %w", err)
	}

	hash := cache.Key(layers)

	if found, cached, err := s.Cache.Query(ctx, hash); err != nil {
		return nil, fmt.Errorf("querying cache: %w", err)
	} else if found {
		return cached, nil
	}

	candidate, err := s.extractFirst(ctx, client, tag, layers)
	if err != nil {
		return nil, fmt.Errorf("extracting metadata: %w", err)
	}

	if err := s.Cache.Insert(ctx, hash, candidate); err != nil {
		return nil, fmt.Errorf("inserting into cache: %w", err)
	}

	return candidate, nil
}

// extractFirst walks layers in order, trying to extract metadata from
// each blob, and returns the first success. It returns a nil Candidate
// (not an error) when no layer yields metadata.
func (s *Scanner) extractFirst(ctx context.Context, client registryClient, tag string, layers []string) (*release.Candidate, error) {
	for _, digest := range layers {
		blob, err := client.GetBlob(ctx, digest)
		if err != nil {
			continue
		}
		m, err := extract.Metadata(ctx, blob)
		blob.Close()
		if err != nil {
			continue
		}

		return &release.Candidate{
			Metadata: *m,
			Payload:  fmt.Sprintf("%s/%s:%s", s.Host, s.Repo, tag),
		}, nil
	}
	return nil, nil
}
