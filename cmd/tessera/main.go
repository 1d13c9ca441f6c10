// Package main is the entry point for the tessera server. It wires all
// dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/stackpal/tessera/internal/action"
	"github.com/stackpal/tessera/internal/capability"
	"github.com/stackpal/tessera/internal/config"
	"github.com/stackpal/tessera/internal/definition"
	"github.com/stackpal/tessera/internal/metadata"
	"github.com/stackpal/tessera/internal/observability"
	"github.com/stackpal/tessera/internal/query"
	"github.com/stackpal/tessera/internal/source"
	"github.com/stackpal/tessera/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "tessera", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Load definitions, validate, build registry.
	loader := definition.NewLoader()
	defs, err := loader.LoadAll(cfg.Definitions.Directories)
	if err != nil {
		logger.Error("definition loading failed", zap.Error(err))
		return 1
	}

	validator := definition.NewValidator()
	if verrs := validator.Validate(defs); len(verrs) > 0 {
		for _, ve := range verrs {
			logger.Error("definition validation error", zap.String("error", ve.Error()))
		}
		metrics.RecordDefinitionReload("error")
		return 1
	}

	registry, err := definition.NewRegistry(defs)
	if err != nil {
		logger.Error("registry construction failed", zap.Error(err))
		metrics.RecordDefinitionReload("error")
		return 1
	}
	metrics.RecordDefinitionReload("ok")
	metrics.SetDefinitionsLoaded(float64(len(defs)))

	// Build upstream clients, one per configured service.
	sources := make(map[string]*source.Client, len(cfg.Services))
	for id, svc := range cfg.Services {
		tokens, err := buildTokenSource(svc.Auth)
		if err != nil {
			logger.Error("token source initialization failed",
				zap.String("service_id", id), zap.Error(err))
			return 1
		}
		client := source.NewClient(svc, tokens)
		client.Instrument(id, metrics)
		sources[id] = client
	}

	// Command-action handlers are code; deployments that embed tessera
	// register theirs here. Declared command actions left without a handler
	// are reported at router construction.
	dispatchers := map[string]*action.Dispatcher{}

	router := transport.NewRouter(transport.Dependencies{
		Config:             cfg,
		Logger:             logger,
		Metrics:            metrics,
		Registry:           registry,
		Engine:             query.NewEngine(),
		Tables:             metadata.NewTableProvider(registry),
		Forms:              metadata.NewFormProvider(registry),
		Sources:            sources,
		Dispatchers:        dispatchers,
		CapabilityResolver: capability.NewStaticResolver(cfg.Capability.Roles),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Int("definitions", len(defs)),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Stop accepting new connections and drain in-flight requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildTokenSource creates the token source for one upstream service.
// Unauthenticated services get a nil source.
func buildTokenSource(auth config.ServiceAuthConfig) (source.TokenSource, error) {
	switch auth.Strategy {
	case "", "none":
		return nil, nil
	case "static":
		token := os.Getenv(auth.ClientSecretEnv)
		if token == "" {
			return nil, fmt.Errorf("static token is required (set %s)", auth.ClientSecretEnv)
		}
		return source.StaticTokenSource(token), nil
	case "client_credentials":
		if auth.TokenEndpoint == "" || auth.ClientID == "" {
			return nil, fmt.Errorf("client_credentials requires token_endpoint and client_id")
		}
		secret := os.Getenv(auth.ClientSecretEnv)
		if secret == "" {
			return nil, fmt.Errorf("client secret is required (set %s)", auth.ClientSecretEnv)
		}
		return source.NewClientCredentialsTokenSource(auth.TokenEndpoint, auth.ClientID, secret, nil), nil
	default:
		return nil, fmt.Errorf("unknown auth strategy %q", auth.Strategy)
	}
}
