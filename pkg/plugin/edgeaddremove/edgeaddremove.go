// Package edgeaddremove implements the edge-add-remove plugin: it
// applies a declarative list of edges to add and edges to remove,
// referenced by version string, silently skipping any reference to a
// version absent from the graph.
package edgeaddremove

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

func parseVersion(s string) (release.Version, error) {
	return release.NewVersion(s)
}

// Name is this plugin's catalog key.
const Name = "edge-add-remove"

// EdgeRef names an edge by the version strings of its endpoints.
type EdgeRef struct {
	From string
	To   string
}

// Settings is the edge-add-remove plugin's validated configuration.
type Settings struct {
	Add    []EdgeRef
	Remove []EdgeRef
}

// Decode builds Settings from a configuration table.
func Decode(raw map[string]any) (plugin.Settings, error) {
	add, err := decodeRefs(raw["add"])
	if err != nil {
		return nil, fmt.Errorf("edgeaddremove: %q: %w", "add", err)
	}
	remove, err := decodeRefs(raw["remove"])
	if err != nil {
		return nil, fmt.Errorf("edgeaddremove: %q: %w", "remove", err)
	}
	return &Settings{Add: add, Remove: remove}, nil
}

func decodeRefs(v any) ([]EdgeRef, error) {
	entries, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("expected an array of tables")
	}
	out := make([]EdgeRef, 0, len(entries))
	for _, e := range entries {
		table, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a table with from/to")
		}
		from, _ := table["from"].(string)
		to, _ := table["to"].(string)
		if from == "" || to == "" {
			return nil, fmt.Errorf("entry requires both %q and %q", "from", "to")
		}
		out = append(out, EdgeRef{From: from, To: to})
	}
	return out, nil
}

// Build implements plugin.Settings.
func (s *Settings) Build(reg *prometheus.Registry) (plugin.Plugin, error) {
	return &edgeAddRemove{add: s.Add, remove: s.Remove}, nil
}

type edgeAddRemove struct {
	add    []EdgeRef
	remove []EdgeRef
}

// Run implements plugin.Plugin.
func (p *edgeAddRemove) Run(ctx context.Context, g *graph.Graph, pctx *plugin.Context) (*graph.Graph, error) {
	for _, ref := range p.remove {
		fromV, err := parseVersion(ref.From)
		if err != nil {
			continue
		}
		toV, err := parseVersion(ref.To)
		if err != nil {
			continue
		}
		from := g.FindByVersion(fromV)
		to := g.FindByVersion(toV)
		if from == -1 || to == -1 {
			continue
		}
		g.RemoveTransition(from, to)
	}

	for _, ref := range p.add {
		fromV, err := parseVersion(ref.From)
		if err != nil {
			continue
		}
		toV, err := parseVersion(ref.To)
		if err != nil {
			continue
		}
		from := g.FindByVersion(fromV)
		to := g.FindByVersion(toV)
		if from == -1 || to == -1 {
			continue
		}
		if err := g.AddTransition(from, to); err != nil {
			return nil, fmt.Errorf("edgeaddremove: adding %s -> %s: %w", ref.From, ref.To, err)
		}
	}

	return g, nil
}
