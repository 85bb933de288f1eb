// Package commands implements CLI command handlers for ocaport.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/Sumatoshi-tech/ocaport/internal/app"
	"github.com/Sumatoshi-tech/ocaport/pkg/config"
	"github.com/Sumatoshi-tech/ocaport/pkg/observability"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
	"github.com/Sumatoshi-tech/ocaport/pkg/version"
)

// Exit codes of runs that report their outcome.
const (
	ExitNothingToDo       = 0
	ExitMigrationEligible = 100
	ExitPortsEligible     = 110
)

// Globals are the persistent flags of the root command.
type Globals struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
}

// ExitError asks main to exit with Code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps a run outcome to the process exit code.
func ExitCode(kind app.Kind) int {
	switch kind {
	case app.MigrationEligible:
		return ExitMigrationEligible
	case app.PortsEligible:
		return ExitPortsEligible
	default:
		return ExitNothingToDo
	}
}

// environment is the configuration and telemetry of one command invocation.
type environment struct {
	cfg       *config.Config
	providers observability.Providers
	github    *observability.REDMetrics
	diff      *observability.DiffMetrics
}

func setup(globals *Globals, mode observability.AppMode) (*environment, error) {
	cfg, err := config.LoadConfig(globals.ConfigPath)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Get().Version
	obsCfg.Mode = mode
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.Prometheus = cfg.Metrics.Textfile != ""
	obsCfg.LogJSON = cfg.Logging.JSON || mode == observability.ModeMCP

	obsCfg.LogLevel, err = observability.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	if globals.Verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	env := &environment{cfg: cfg, providers: providers}

	env.github, err = observability.NewREDMetrics(providers.Meter, observability.NamespaceGitHub)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	env.diff, err = observability.NewDiffMetrics(providers.Meter)
	if err != nil {
		return nil, errors.Join(err, providers.Shutdown(context.Background()))
	}

	return env, nil
}

func (e *environment) httpClient() *http.Client {
	return &http.Client{
		Transport: observability.NewTransport(http.DefaultTransport, e.providers.Tracer, e.github),
	}
}

func (e *environment) newApp(console *terminal.Console, prompter terminal.Prompter) *app.App {
	return app.New(app.Deps{
		Config:     e.cfg,
		Console:    console,
		Prompter:   prompter,
		Logger:     e.providers.Logger,
		Tracer:     e.providers.Tracer,
		Metrics:    e.diff,
		HTTPClient: e.httpClient(),
	})
}

// close writes the metrics textfile and flushes telemetry.
func (e *environment) close() {
	logger := e.providers.Logger

	if path := e.cfg.Metrics.Textfile; path != "" {
		err := observability.WriteTextfile(e.providers.Registry, path)
		if err != nil {
			logger.Warn("metrics textfile write failed", "path", path, "error", err)
		}
	}

	err := e.providers.Shutdown(context.Background())
	if err != nil {
		logger.Warn("observability shutdown failed", "error", err)
	}
}
