// Package channelfilter implements the channel-filter plugin: it keeps
// only Concrete releases whose channels annotation contains a
// configured channel name. Every other node, Abstract placeholders
// included, is deleted with its edges and without rewiring; retained
// nodes stay even when they are left with no edges.
package channelfilter

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// Name is this plugin's catalog key.
const Name = "channel-filter"

// channelsAnnotation is the metadata key Cincinnati releases use to
// advertise their channel membership, a comma-separated list.
const channelsAnnotation = "io.openshift.upgrades.graph.release.channels"

// Settings is the channel-filter plugin's validated configuration.
type Settings struct {
	Channel string
}

// Decode builds Settings from a configuration table.
func Decode(raw map[string]any) (plugin.Settings, error) {
	channel, _ := raw["channel"].(string)
	if channel == "" {
		return nil, fmt.Errorf("channelfilter: %q is required", "channel")
	}
	return &Settings{Channel: channel}, nil
}

// Build implements plugin.Settings.
func (s *Settings) Build(reg *prometheus.Registry) (plugin.Plugin, error) {
	return &channelFilter{channel: s.Channel}, nil
}

type channelFilter struct {
	channel string
}

// Run implements plugin.Plugin.
func (p *channelFilter) Run(ctx context.Context, g *graph.Graph, pctx *plugin.Context) (*graph.Graph, error) {
	keep := make(map[int]bool)
	for i := 0; i < g.NodeCount(); i++ {
		n := g.Node(i)
		if n == nil {
			continue
		}
		if p.inChannel(n) {
			keep[i] = true
		}
	}

	for i := 0; i < g.NodeCount(); i++ {
		if g.Node(i) != nil && !keep[i] {
			g.DeleteNode(i)
		}
	}
	g.Compact()

	return g, nil
}

func (p *channelFilter) inChannel(n release.Release) bool {
	concrete, ok := n.(*release.ConcreteRelease)
	if !ok {
		return false
	}
	channels := concrete.Metadata[channelsAnnotation]
	for _, c := range strings.Split(channels, ",") {
		if strings.TrimSpace(c) == p.channel {
			return true
		}
	}
	return false
}
