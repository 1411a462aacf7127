// Package noderemove implements the node-remove plugin: it drops
// nodes matching a configured list of exact versions or semver
// constraint strings, rewiring each removed node's inbound neighbors
// directly to its outbound neighbors so transitive reachability
// survives the removal.
package noderemove

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
)

// Name is this plugin's catalog key.
const Name = "node-remove"

// Settings is the node-remove plugin's validated configuration: a
// list of semver constraint strings (an exact version like "4.1.0" is
// itself a valid constraint).
type Settings struct {
	Constraints []*semver.Constraints
}

// Decode builds Settings from a configuration table. A missing
// "versions" key yields an empty constraint list, so the plugin is
// valid (and removes nothing) on its default configuration.
func Decode(raw map[string]any) (plugin.Settings, error) {
	var entries []any
	if v, ok := raw["versions"]; ok {
		entries, ok = v.([]any)
		if !ok {
			return nil, fmt.Errorf("noderemove: %q must be an array", "versions")
		}
	}

	constraints := make([]*semver.Constraints, 0, len(entries))
	for _, e := range entries {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("noderemove: entries in %q must be strings", "versions")
		}
		c, err := semver.NewConstraint(s)
		if err != nil {
			return nil, fmt.Errorf("noderemove: parsing constraint %q: %w", s, err)
		}
		constraints = append(constraints, c)
	}

	return &Settings{Constraints: constraints}, nil
}

// Build implements plugin.Settings.
func (s *Settings) Build(reg *prometheus.Registry) (plugin.Plugin, error) {
	return &nodeRemove{constraints: s.Constraints}, nil
}

type nodeRemove struct {
	constraints []*semver.Constraints
}

// Run implements plugin.Plugin.
func (p *nodeRemove) Run(ctx context.Context, g *graph.Graph, pctx *plugin.Context) (*graph.Graph, error) {
	var toRemove []int
	for i := 0; i < g.NodeCount(); i++ {
		n := g.Node(i)
		if n == nil {
			continue
		}
		sv, err := semver.NewVersion(n.GetVersion().String())
		if err != nil {
			continue
		}
		for _, c := range p.constraints {
			if c.Check(sv) {
				toRemove = append(toRemove, i)
				break
			}
		}
	}

	for _, idx := range toRemove {
		g.RemoveNode(idx)
	}
	g.Compact()

	return g, nil
}
