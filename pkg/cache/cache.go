// Package cache implements the content-addressed release cache: a
// single-owner actor that memoizes metadata lookups keyed by the hash
// of a tag's ordered layer digests. Both positive and negative results
// are retained for the process lifetime; there is no eviction, because
// the key is content-addressed and immutable.
package cache

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// Key hashes an ordered sequence of layer digests into a stable,
// reproducible 64-bit cache key. The hash never crosses the process
// boundary.
func Key(layerDigests []string) uint64 {
	h := xxhash.New()
	for _, d := range layerDigests {
		_, _ = h.WriteString(d)
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}

type queryReq struct {
	key   uint64
	reply chan queryResp
}

type queryResp struct {
	found   bool
	release *release.Candidate
}

type insertReq struct {
	key     uint64
	release *release.Candidate
	reply   chan struct{}
}

// Cache is a single-owner, content-addressed release cache. All
// queries and insertions are serialized through its inbox goroutine,
// so a Query sent after an Insert for the same key always observes
// that Insert.
type Cache struct {
	queries chan queryReq
	inserts chan insertReq
	done    chan struct{}
}

// New starts the cache's owning goroutine and returns a handle to it.
// Callers should cancel ctx to stop the goroutine when the cache is no
// longer needed.
func New(ctx context.Context) *Cache {
	c := &Cache{
		queries: make(chan queryReq),
		inserts: make(chan insertReq),
		done:    make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

func (c *Cache) run(ctx context.Context) {
	defer close(c.done)

	entries := make(map[uint64]*release.Candidate)
	present := make(map[uint64]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.queries:
			_, found := present[req.key]
			req.reply <- queryResp{found: found, release: entries[req.key]}
		case req := <-c.inserts:
			if _, exists := present[req.key]; !exists {
				present[req.key] = struct{}{}
				entries[req.key] = req.release
			}
			close(req.reply)
		}
	}
}

// Query looks up hash. found is false on a cache miss; when found is
// true, release is nil for a cached negative result.
func (c *Cache) Query(ctx context.Context, hash uint64) (found bool, rel *release.Candidate, err error) {
	reply := make(chan queryResp, 1)
	select {
	case c.queries <- queryReq{key: hash, reply: reply}:
	case <-ctx.Done():
		return false, nil, fmt.Errorf("cache: query cancelled: %w", ctx.Err())
	case <-c.done:
		return false, nil, fmt.Errorf("cache: closed")
	}

	select {
	case resp := <-reply:
		return resp.found, resp.release, nil
	case <-ctx.Done():
		return false, nil, fmt.Errorf("cache: query cancelled: %w", ctx.Err())
	}
}

// Insert records rel (nil for a negative result) under hash. Inserting
// the same hash twice is a no-op on value: the first insertion wins.
func (c *Cache) Insert(ctx context.Context, hash uint64, rel *release.Candidate) error {
	reply := make(chan struct{})
	select {
	case c.inserts <- insertReq{key: hash, release: rel, reply: reply}:
	case <-ctx.Done():
		return fmt.Errorf("cache: insert cancelled: %w", ctx.Err())
	case <-c.done:
		return fmt.Errorf("cache: closed")
	}

	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("cache: insert cancelled: %w", ctx.Err())
	}
}
