// Package plugin defines the graph-transform pipeline: a sequence of
// named, independently configured stages that each take a graph and
// return a (possibly modified) graph, run in declared order after
// every scan cycle. The set of available plugins is fixed at compile
// time, the same catalog-of-named-stages shape the source's
// cincinnati::plugins::catalog module uses.
package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
)

// Context carries the collaborators a plugin may need beyond the
// graph itself.
type Context struct {
	// Metrics is the registry plugins may register collectors into.
	// It is nil when the caller hasn't wired metrics collection.
	Metrics *prometheus.Registry
}

// Plugin transforms a graph.
type Plugin interface {
	Run(ctx context.Context, g *graph.Graph, pctx *Context) (*graph.Graph, error)
}

// Settings is a validated, defaults-filled plugin configuration,
// capable of producing the Plugin it configures.
type Settings interface {
	Build(reg *prometheus.Registry) (Plugin, error)
}

// ErrMissingPluginName is returned by LoadConfig when a configuration
// table has no "name" key.
var ErrMissingPluginName = errors.New("plugin: configuration entry is missing a name")

// ErrUnknownPlugin is returned by LoadConfig when a configuration
// table names a plugin not present in the catalog.
type ErrUnknownPlugin struct {
	Name string
}

func (e *ErrUnknownPlugin) Error() string {
	return fmt.Sprintf("plugin: unknown plugin %q", e.Name)
}

// Decoder turns one configuration table into validated Settings.
type Decoder func(raw map[string]any) (Settings, error)

// Catalog is the fixed set of plugins this build knows how to
// configure, keyed by the "name" field in the plugin's configuration
// table. Subpackages don't self-register; the caller builds the
// Catalog it wants from the Decode function each subpackage exports
// (see pkg/config.DefaultCatalog for the catalog this module ships).
type Catalog map[string]Decoder

// LoadConfig decodes a sequence of plugin configuration tables (as
// produced by BurntSushi/toml decoding a TOML `[[plugins]]` array into
// []map[string]any) into validated Settings, in order, using catalog
// to resolve each table's "name" field.
func LoadConfig(catalog Catalog, raw []map[string]any) ([]Settings, error) {
	out := make([]Settings, 0, len(raw))
	for i, table := range raw {
		name, _ := table["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("plugin: entry %d: %w", i, ErrMissingPluginName)
		}
		decode, ok := catalog[name]
		if !ok {
			return nil, fmt.Errorf("plugin: entry %d: %w", i, &ErrUnknownPlugin{Name: name})
		}
		settings, err := decode(table)
		if err != nil {
			return nil, fmt.Errorf("plugin: entry %d (%s): %w", i, name, err)
		}
		out = append(out, settings)
	}
	return out, nil
}

// Pipeline is an ordered sequence of built plugins.
type Pipeline struct {
	plugins []Plugin
}

// Build constructs a Pipeline from settings, in order, wiring reg into
// every plugin that wants a metrics sink.
func Build(settings []Settings, reg *prometheus.Registry) (*Pipeline, error) {
	p := &Pipeline{plugins: make([]Plugin, 0, len(settings))}
	for i, s := range settings {
		pl, err := s.Build(reg)
		if err != nil {
			return nil, fmt.Errorf("plugin: building entry %d: %w", i, err)
		}
		p.plugins = append(p.plugins, pl)
	}
	return p, nil
}

// Run threads g through every plugin in order, returning the final
// graph. Any plugin error aborts the pipeline immediately; the caller
// is responsible for leaving the previous snapshot authoritative.
func (p *Pipeline) Run(ctx context.Context, g *graph.Graph, pctx *Context) (*graph.Graph, error) {
	current := g
	for i, pl := range p.plugins {
		next, err := pl.Run(ctx, current, pctx)
		if err != nil {
			return nil, fmt.Errorf("plugin: stage %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}
