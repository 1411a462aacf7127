// Package config loads the TOML plugin-configuration document: a
// top-level `plugins` array of tables, each decoded by the catalog
// entry its "name" field selects.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/plugin/channelfilter"
	"github.com/cincinnati-project/graph-builder/pkg/plugin/cincinnatigraphfetch"
	"github.com/cincinnati-project/graph-builder/pkg/plugin/edgeaddremove"
	"github.com/cincinnati-project/graph-builder/pkg/plugin/noderemove"
	"github.com/cincinnati-project/graph-builder/pkg/plugin/quaymetadata"
	"github.com/cincinnati-project/graph-builder/pkg/plugin/wariness"
)

// DefaultCatalog returns the catalog of every plugin this module
// ships, keyed by the catalog names documented for the plugin
// pipeline.
func DefaultCatalog() plugin.Catalog {
	return plugin.Catalog{
		channelfilter.Name:        channelfilter.Decode,
		edgeaddremove.Name:        edgeaddremove.Decode,
		noderemove.Name:           noderemove.Decode,
		wariness.Name:             wariness.Decode,
		quaymetadata.Name:         quaymetadata.Decode,
		cincinnatigraphfetch.Name: cincinnatigraphfetch.Decode,
	}
}

// document is the top-level shape of the plugin configuration file.
type document struct {
	Plugins []map[string]any `toml:"plugins"`
}

// LoadPlugins reads the TOML document at path and decodes its
// `plugins` array into validated Settings using catalog.
func LoadPlugins(path string, catalog plugin.Catalog) ([]plugin.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	settings, err := plugin.LoadConfig(catalog, doc.Plugins)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return settings, nil
}
