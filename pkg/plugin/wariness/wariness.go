// Package wariness implements the assign-wariness plugin: it derives a
// float weight per edge from the destination release's wariness
// annotation, defaulting to zero when the annotation is absent or
// unparsable.
package wariness

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

// Name is this plugin's catalog key.
const Name = "assign-wariness"

// warinessAnnotation is the metadata key carrying a release's wariness
// value, the same annotation the original Cincinnati project uses.
const warinessAnnotation = "release.openshift.io/wariness"

// Settings is the assign-wariness plugin's configuration. It has no
// tunable fields today; it exists so the catalog can construct this
// plugin uniformly with the others.
type Settings struct{}

// Decode builds Settings from a configuration table.
func Decode(raw map[string]any) (plugin.Settings, error) {
	return &Settings{}, nil
}

// Build implements plugin.Settings.
func (s *Settings) Build(reg *prometheus.Registry) (plugin.Plugin, error) {
	return &assignWariness{}, nil
}

type assignWariness struct{}

// Run implements plugin.Plugin.
func (p *assignWariness) Run(ctx context.Context, g *graph.Graph, pctx *plugin.Context) (*graph.Graph, error) {
	for _, e := range g.Edges() {
		from, to := e[0], e[1]
		weight := warinessOf(g.Node(to))
		g.SetEdgeWeight(from, to, weight)
	}
	return g, nil
}

func warinessOf(n release.Release) float64 {
	concrete, ok := n.(*release.ConcreteRelease)
	if !ok {
		return 0
	}
	raw, ok := concrete.Metadata[warinessAnnotation]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
