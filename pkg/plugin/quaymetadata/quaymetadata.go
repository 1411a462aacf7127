// Package quaymetadata implements the quay-metadata-fetch plugin: for
// each Concrete release it queries Quay's labels API for the release's
// manifest and merges the returned labels into the release's metadata.
package quaymetadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/quay"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// Name is this plugin's catalog key.
const Name = "quay-metadata-fetch"

// labelsClient is the subset of *quay.Client this plugin needs, so
// tests can substitute a fake.
type labelsClient interface {
	Labels(ctx context.Context, repo, digest string) (map[string]string, error)
}

// Settings is the quay-metadata-fetch plugin's configuration.
type Settings struct {
	Repository string
}

// Decode builds Settings from a configuration table.
func Decode(raw map[string]any) (plugin.Settings, error) {
	repo, _ := raw["repository"].(string)
	return &Settings{Repository: repo}, nil
}

// Build implements plugin.Settings.
func (s *Settings) Build(reg *prometheus.Registry) (plugin.Plugin, error) {
	return &quayMetadata{client: quay.New()}, nil
}

type quayMetadata struct {
	client labelsClient
}

// Run implements plugin.Plugin.
func (p *quayMetadata) Run(ctx context.Context, g *graph.Graph, pctx *plugin.Context) (*graph.Graph, error) {
	for i := 0; i < g.NodeCount(); i++ {
		concrete, ok := g.Node(i).(*release.ConcreteRelease)
		if !ok {
			continue
		}

		repo, digest, ok := parsePullspec(concrete.Payload)
		if !ok {
			continue
		}

		labels, err := p.client.Labels(ctx, repo, digest)
		if err != nil {
			return nil, fmt.Errorf("quaymetadata: fetching labels for %s: %w", concrete.Payload, err)
		}

		if concrete.Metadata == nil {
			concrete.Metadata = make(map[string]string, len(labels))
		}
		for k, v := range labels {
			concrete.Metadata[k] = v
		}
	}

	return g, nil
}

// parsePullspec splits "host/repo:tag" into its repo and tag parts. It
// reports false when payload doesn't have that shape.
func parsePullspec(payload string) (repo, tag string, ok bool) {
	slash := strings.Index(payload, "/")
	if slash == -1 {
		return "", "", false
	}
	rest := payload[slash+1:]
	colon := strings.LastIndex(rest, ":")
	if colon == -1 {
		return "", "", false
	}
	return rest[:colon], rest[colon+1:], true
}
