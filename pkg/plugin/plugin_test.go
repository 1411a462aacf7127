package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
)

func TestLoadConfigMissingName(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(Catalog{}, []map[string]any{{}})
	if !errors.Is(err, ErrMissingPluginName) {
		t.Errorf("error = %v, want ErrMissingPluginName", err)
	}
}

func TestLoadConfigUnknownPlugin(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(Catalog{}, []map[string]any{{"name": "no-such-plugin"}})
	var unknown *ErrUnknownPlugin
	if !errors.As(err, &unknown) {
		t.Errorf("error = %v, want ErrUnknownPlugin", err)
	}
}

type passthroughPlugin struct{}

func (passthroughPlugin) Run(ctx context.Context, g *graph.Graph, pctx *Context) (*graph.Graph, error) {
	return g, nil
}

type passthroughSettings struct{}

func (passthroughSettings) Build(reg *prometheus.Registry) (Plugin, error) {
	return passthroughPlugin{}, nil
}

func TestLoadConfigDispatchesByName(t *testing.T) {
	t.Parallel()

	catalog := Catalog{
		"passthrough": func(raw map[string]any) (Settings, error) {
			return passthroughSettings{}, nil
		},
	}

	settings, err := LoadConfig(catalog, []map[string]any{{"name": "passthrough"}})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(settings) != 1 {
		t.Fatalf("len(settings) = %d, want 1", len(settings))
	}
}

func TestPipelineRunThreadsGraphThroughStages(t *testing.T) {
	t.Parallel()

	g := graph.New()
	p := &Pipeline{plugins: []Plugin{passthroughPlugin{}, passthroughPlugin{}}}

	out, err := p.Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out != g {
		t.Error("Run() returned a different graph than the input for a no-op pipeline")
	}
}
