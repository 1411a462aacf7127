package noderemove

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

func TestRunRemovesMatchingAndRewires(t *testing.T) {
	t.Parallel()

	g := graph.New()
	a, _ := g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "1.0.0")})
	b, _ := g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "1.1.0")})
	c, _ := g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "1.2.0")})
	_ = g.AddTransition(a, b)
	_ = g.AddTransition(b, c)

	settings, err := Decode(map[string]any{
		"name":     Name,
		"versions": []any{"1.1.0"},
	})
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
	if out.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, want 2", out.NodeCount())
	}
	if out.EdgeCount() != 1 {
		t.Fatalf("EdgeCount() = %d, want 1 (rewired)", out.EdgeCount())
	}
}

func TestDecodeDefaultsToEmptyConstraintsWithoutVersionsKey(t *testing.T) {
	t.Parallel()

	settings, err := Decode(map[string]any{"name": Name})
	if err != nil {
		t.Fatalf("Decode() error = %v, want bare name config to succeed", err)
	}
	s, ok := settings.(*Settings)
	if !ok {
		t.Fatalf("Decode() returned %T, want *Settings", settings)
	}
	if len(s.Constraints) != 0 {
		t.Fatalf("Constraints = %v, want empty", s.Constraints)
	}

	p, err := settings.Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	g := graph.New()
	_, _ = g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "1.0.0")})
	out, err := p.Run(context.Background(), g, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.NodeCount() != 1 {
		t.Fatalf("NodeCount() = %d, want 1 (nothing removed by default)", out.NodeCount())
	}
}

func TestRunSupportsConstraintRanges(t *testing.T) {
	t.Parallel()

	g := graph.New()
	_, _ = g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "1.0.0")})
	_, _ = g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "1.5.0")})
	_, _ = g.AddConcrete(&release.ConcreteRelease{Version: mustVer(t, "2.0.0")})

	settings, err := Decode(map[string]any{
		"name":     Name,
		"versions": []any{"< 2.0.0"},
	})
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
}
