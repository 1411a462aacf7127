// Package cincinnatigraphfetch implements the cincinnati-graph-fetch
// plugin: it fetches a graph from an upstream Cincinnati-compatible
// server and merges its nodes and edges into the current graph. An
// upstream node whose version is not already present is inserted as a
// Concrete release when it carries a payload, and as an Abstract
// placeholder otherwise.
package cincinnatigraphfetch

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/cincinnaticlient"
	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// Name is this plugin's catalog key.
const Name = "cincinnati-graph-fetch"

// graphFetcher is the subset of *cincinnaticlient.Client this plugin
// needs, so tests can substitute a fake.
type graphFetcher interface {
	FetchGraph(ctx context.Context, baseURL, channel string) (*cincinnaticlient.Graph, error)
}

// Settings is the cincinnati-graph-fetch plugin's configuration.
type Settings struct {
	UpstreamURL string
	Channel     string
}

// Decode builds Settings from a configuration table.
func Decode(raw map[string]any) (plugin.Settings, error) {
	upstream, _ := raw["upstream_url"].(string)
	if upstream == "" {
		return nil, fmt.Errorf("cincinnatigraphfetch: %q is required", "upstream_url")
	}
	channel, _ := raw["channel"].(string)
	if channel == "" {
		return nil, fmt.Errorf("cincinnatigraphfetch: %q is required", "channel")
	}
	return &Settings{UpstreamURL: upstream, Channel: channel}, nil
}

// Build implements plugin.Settings.
func (s *Settings) Build(reg *prometheus.Registry) (plugin.Plugin, error) {
	return &graphFetch{
		client:      cincinnaticlient.New(),
		upstreamURL: s.UpstreamURL,
		channel:     s.Channel,
	}, nil
}

type graphFetch struct {
	client      graphFetcher
	upstreamURL string
	channel     string
}

// Run implements plugin.Plugin.
func (p *graphFetch) Run(ctx context.Context, g *graph.Graph, pctx *plugin.Context) (*graph.Graph, error) {
	upstream, err := p.client.FetchGraph(ctx, p.upstreamURL, p.channel)
	if err != nil {
		return nil, fmt.Errorf("cincinnatigraphfetch: %w", err)
	}

	indexByUpstream := make([]int, len(upstream.Nodes))
	for i, n := range upstream.Nodes {
		v, err := release.NewVersion(n.Version)
		if err != nil {
			return nil, fmt.Errorf("cincinnatigraphfetch: parsing upstream version %q: %w", n.Version, err)
		}

		if existing := g.FindByVersion(v); existing != -1 {
			indexByUpstream[i] = existing
			continue
		}

		if n.Payload != "" {
			idx, err := g.AddConcrete(&release.ConcreteRelease{Version: v, Payload: n.Payload, Metadata: n.Metadata})
			if err != nil {
				return nil, fmt.Errorf("cincinnatigraphfetch: merging node %s: %w", n.Version, err)
			}
			indexByUpstream[i] = idx
			continue
		}

		idx, err := g.AddAbstract(v)
		if err != nil {
			return nil, fmt.Errorf("cincinnatigraphfetch: merging node %s: %w", n.Version, err)
		}
		indexByUpstream[i] = idx
	}

	for _, e := range upstream.Edges {
		from, to := indexByUpstream[e[0]], indexByUpstream[e[1]]
		if err := g.AddTransition(from, to); err != nil {
			return nil, fmt.Errorf("cincinnatigraphfetch: merging edge: %w", err)
		}
	}

	return g, nil
}
