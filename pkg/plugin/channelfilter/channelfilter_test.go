package channelfilter

import (
	"context"
	"testing"

	"github.com/cincinnati-project/graph-builder/pkg/graph"
	"github.com/cincinnati-project/graph-builder/pkg/release"
)

func mustVer(t *testing.T, s string) release.Version {
	t.Helper()
	v, err := release.NewVersion(s)
	if err != nil {
		t.Fatalf("NewVersion(%q) error = %v", s, err)
	}
	return v
}

func TestRunKeepsOnlyMatchingChannel(t *testing.T) {
	t.Parallel()

	g := graph.New()
	a, _ := g.AddConcrete(&release.ConcreteRelease{
		Version:  mustVer(t, "1.0.0"),
		Metadata: map[string]string{channelsAnnotation: "stable,fast"},
	})
	b, _ := g.AddConcrete(&release.ConcreteRelease{
		Version:  mustVer(t, "1.1.0"),
		Metadata: map[string]string{channelsAnnotation: "candidate"},
	})
	_ = g.AddTransition(a, b)

	settings, err := Decode(map[string]any{"name": Name, "channel": "stable"})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	p, err := settings.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	out, err := p.Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.NodeCount() != 1 {
		t.Fatalf("NodeCount() = %d, want 1", out.NodeCount())
	}
	if out.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", out.EdgeCount())
	}
}

func TestDecodeRequiresChannel(t *testing.T) {
	t.Parallel()

	if _, err := Decode(map[string]any{"name": Name}); err == nil {
		t.Error("Decode() error = nil, want error for missing channel")
	}
}
