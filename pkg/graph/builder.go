package graph

import (
	"context"
	"fmt"

	"github.com/abcxyz/pkg/logging"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// Build assembles a Graph from a set of candidates (a parsed Metadata
// document plus the pullspec it was read from). Construction is
// order-independent with respect to input permutations: building from
// the same candidate set in any order produces the same nodes and
// edges.
//
// An empty input is not an error: Build returns an empty graph and
// logs a warning.
func Build(ctx context.Context, candidates []release.Candidate) (*Graph, error) {
	g := New()

	if len(candidates) == 0 {
		logging.FromContext(ctx).WarnContext(ctx, "no releases to build a graph from")
		return g, nil
	}

	for _, c := range candidates {
		rel := &release.ConcreteRelease{
			Version:  c.Metadata.Version,
			Payload:  c.Payload,
			Metadata: c.Metadata.Metadata,
		}

		current, err := g.AddConcrete(rel)
		if err != nil {
			return nil, fmt.Errorf("adding release %s to graph: %w", c.Metadata.Version, err)
		}

		for _, v := range c.Metadata.Previous {
			prev := g.addAbstractIfAbsent(v)
			if err := g.AddTransition(prev, current); err != nil {
				return nil, fmt.Errorf("adding transition %s -> %s: %w", v, c.Metadata.Version, err)
			}
		}

		for _, v := range c.Metadata.Next {
			next := g.addAbstractIfAbsent(v)
			if err := g.AddTransition(current, next); err != nil {
				return nil, fmt.Errorf("adding transition %s -> %s: %w", c.Metadata.Version, v, err)
			}
		}
	}

	return g, nil
}
