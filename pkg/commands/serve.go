package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abcxyz/pkg/cli"
	"github.com/abcxyz/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cincinnati-project/graph-builder/pkg/cache"
	"github.com/cincinnati-project/graph-builder/pkg/config"
	"github.com/cincinnati-project/graph-builder/pkg/credentials"
	"github.com/cincinnati-project/graph-builder/pkg/httpapi"
	"github.com/cincinnati-project/graph-builder/pkg/plugin"
	"github.com/cincinnati-project/graph-builder/pkg/scanner"
	"github.com/cincinnati-project/graph-builder/pkg/server"
	"github.com/cincinnati-project/graph-builder/pkg/snapshot"
)

// maxVerbosity is the highest -v level spec.md §6 assigns meaning to;
// anything higher is clamped to it rather than rejected.
const maxVerbosity = 3

type serveFlags struct {
	address          string
	port             string
	period           time.Duration
	registry         string
	repository       string
	credentialsPath  string
	pluginConfigPath string
	verbosity        int
}

func (f *serveFlags) Validate() error {
	var merr error
	if f.port == "" {
		merr = errors.Join(merr, fmt.Errorf("port is required"))
	}
	if f.registry == "" {
		merr = errors.Join(merr, fmt.Errorf("registry is required"))
	}
	if f.repository == "" {
		merr = errors.Join(merr, fmt.Errorf("repository is required"))
	}
	if f.period <= 0 {
		merr = errors.Join(merr, fmt.Errorf("period must be positive"))
	}
	if f.verbosity < 0 {
		merr = errors.Join(merr, fmt.Errorf("verbosity must not be negative"))
	}
	if f.verbosity > maxVerbosity {
		f.verbosity = maxVerbosity
	}
	return merr
}

// verbosityLevel maps a -v level to a slog level the same way the
// original source maps verbosity 0..3+ to
// LevelFilter::{Warn,Info,Debug,Trace}: since slog has no Trace level,
// level 3 maps one standard slog increment below Debug.
func verbosityLevel(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelWarn
	case v == 1:
		return slog.LevelInfo
	case v == 2:
		return slog.LevelDebug
	default:
		return slog.LevelDebug - 4
	}
}

// ServeCommand runs the scanner and HTTP server: it periodically scans
// a registry repository, builds the update graph, and serves the
// latest result over the Cincinnati graph endpoint.
type ServeCommand struct {
	cli.BaseCommand

	flags *serveFlags
}

func (c *ServeCommand) Desc() string {
	return "Run the registry scanner and graph HTTP server."
}

func (c *ServeCommand) Help() string {
	return `
Usage: {{ COMMAND }} [options]
`
}

func (c *ServeCommand) Flags() *cli.FlagSet {
	c.flags = &serveFlags{}
	set := c.NewFlagSet()
	sec := set.NewSection("OPTIONS")

	sec.StringVar(&cli.StringVar{
		Name:    "address",
		Target:  &c.flags.address,
		EnvVar:  "GRAPH_BUILDER_ADDRESS",
		Default: "0.0.0.0",
		Usage:   `The IP address the server binds to.`,
	})

	sec.StringVar(&cli.StringVar{
		Name:    "port",
		Target:  &c.flags.port,
		EnvVar:  "PORT",
		Default: "8080",
		Usage:   `The port the server listens on.`,
	})

	sec.DurationVar(&cli.DurationVar{
		Name:    "period",
		Target:  &c.flags.period,
		EnvVar:  "GRAPH_BUILDER_PERIOD",
		Default: 5 * time.Minute,
		Usage:   `How often to scan the registry repository.`,
	})

	sec.StringVar(&cli.StringVar{
		Name:   "registry",
		Target: &c.flags.registry,
		EnvVar: "GRAPH_BUILDER_REGISTRY",
		Usage:  `The registry host to scan, e.g. quay.io.`,
	})

	sec.StringVar(&cli.StringVar{
		Name:   "repository",
		Target: &c.flags.repository,
		EnvVar: "GRAPH_BUILDER_REPOSITORY",
		Usage:  `The repository within the registry to scan.`,
	})

	sec.StringVar(&cli.StringVar{
		Name:   "credentials-path",
		Target: &c.flags.credentialsPath,
		EnvVar: "GRAPH_BUILDER_CREDENTIALS_PATH",
		Usage:  `Path to a Docker-config-style credentials file. Omit for anonymous access.`,
	})

	sec.StringVar(&cli.StringVar{
		Name:   "plugins-config",
		Target: &c.flags.pluginConfigPath,
		EnvVar: "GRAPH_BUILDER_PLUGINS_CONFIG",
		Usage:  `Path to the TOML plugin pipeline configuration. Omit to run no plugins.`,
	})

	sec.IntVar(&cli.IntVar{
		Name:    "verbosity",
		Aliases: []string{"v"},
		Target:  &c.flags.verbosity,
		EnvVar:  "GRAPH_BUILDER_VERBOSITY",
		Default: 0,
		Usage:   `Log verbosity level, 0-3, passed as a value (-v=3); levels above 3 are clamped. Repeating the flag does not add up levels.`,
	})

	return set
}

func (c *ServeCommand) Run(ctx context.Context, args []string) error {
	f := c.Flags()
	if err := f.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	if err := c.flags.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	level := verbosityLevel(c.flags.verbosity)
	logger := slog.New(slog.NewTextHandler(c.Stderr(), &slog.HandlerOptions{Level: level}))
	ctx = logging.WithLogger(ctx, logger)

	creds := &credentials.Credentials{}
	if c.flags.credentialsPath != "" {
		loaded, err := credentials.Read(c.flags.credentialsPath, credentials.TrimProtocol(c.flags.registry))
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		creds = loaded
	}

	var pipeline *plugin.Pipeline
	if c.flags.pluginConfigPath != "" {
		settings, err := config.LoadPlugins(c.flags.pluginConfigPath, config.DefaultCatalog())
		if err != nil {
			return fmt.Errorf("failed to load plugin config: %w", err)
		}
		pipeline, err = plugin.Build(settings, prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("failed to build plugin pipeline: %w", err)
		}
	}

	snap := &snapshot.Snapshot{}
	cacheCtx, cancelCache := context.WithCancel(ctx)
	defer cancelCache()
	c1 := cache.New(cacheCtx)

	s := scanner.New(c.flags.registry, c.flags.repository, c.flags.period, creds, c1, pipeline, snap)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx)
	}()

	srv, err := server.New(c.flags.address, c.flags.port, server.Logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx, httpapi.NewHandler(snap)); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return <-errCh
}
