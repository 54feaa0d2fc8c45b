package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/UnknownOlympus/addr2coo/internal/config"
	"github.com/UnknownOlympus/addr2coo/internal/geocoding"
	"github.com/UnknownOlympus/addr2coo/internal/metrics"
	"github.com/UnknownOlympus/addr2coo/internal/repository"
	"github.com/UnknownOlympus/addr2coo/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// main is the entry point of the application.
func main() {
	// Cancel on interrupt so the resolver can stop between addresses and still save its progress.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	reg := prometheus.NewRegistry()
	appMetrics := metrics.NewMetrics(reg)

	geoProvider, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:      geocoding.ProviderType(cfg.Provider.Type),
		APIKey:    cfg.Provider.APIKey,
		Language:  cfg.Provider.Language,
		Timeout:   cfg.Provider.Timeout,
		RateLimit: cfg.Provider.RateLimit,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create geocoding provider: %v", err)
	}

	logger.InfoContext(ctx, "Geocoding provider initialized", "type", cfg.Provider.Type)

	output, closeOutput, err := repository.NewOutputStore(ctx, repository.StoreConfig{
		Type: repository.StoreType(cfg.Output.Type),
		Path: cfg.Output.Path,
		Postgres: repository.PostgresConfig{
			Host:     cfg.Output.Postgres.Host,
			Port:     cfg.Output.Postgres.Port,
			User:     cfg.Output.Postgres.User,
			Password: cfg.Output.Postgres.Password,
			Name:     cfg.Output.Postgres.Name,
		},
	}, logger)
	if err != nil {
		log.Fatalf("Failed to open output store: %v", err)
	}

	resolver := service.NewResolver(
		logger,
		repository.NewCSVInput(cfg.Input.Path, cfg.Input.Column, logger),
		output,
		geoProvider,
		cfg.Provider.Type, // Provider name for metrics
		appMetrics,
		cfg.RequestDelay,
	)

	summary, err := runAndExport(ctx, logger, resolver, reg, cfg.Metrics.File)
	closeOutput()
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	printSummary(summary, outputTarget(cfg))
}

type runner interface {
	Run(ctx context.Context) (service.Summary, error)
}

// runAndExport runs the resolver and writes the metrics textfile whether or not the run failed.
func runAndExport(
	ctx context.Context,
	logger *slog.Logger,
	resolver runner,
	gatherer prometheus.Gatherer,
	metricsFile string,
) (service.Summary, error) {
	summary, err := resolver.Run(ctx)

	if errWrite := metrics.WriteTextfile(metricsFile, gatherer); errWrite != nil {
		logger.ErrorContext(ctx, "Failed to write metrics", "file", metricsFile, "error", errWrite)
	}

	return summary, err
}

// outputTarget names the output store for the summary line.
func outputTarget(cfg *config.Config) string {
	if repository.StoreType(cfg.Output.Type) == repository.StoreTypePostgres {
		return fmt.Sprintf("postgres://%s:%s/%s", cfg.Output.Postgres.Host, cfg.Output.Postgres.Port,
			cfg.Output.Postgres.Name)
	}

	return cfg.Output.Path
}

func printSummary(summary service.Summary, target string) {
	if summary.Written > 0 {
		fmt.Printf("Successfully written to: %s (Added %d entries)\n", target, summary.Resolved)
	} else {
		fmt.Println("No new data added.")
	}

	fmt.Printf("Processed %d addresses: %d resolved, %d not found, %d already present, %d duplicates, %d blank\n",
		summary.Total, summary.Resolved, summary.NotFound, summary.SkippedDone, summary.SkippedDuplicate,
		summary.SkippedBlank)

	if summary.Interrupted {
		fmt.Println("Interrupted before the end of the input; run again to resume.")
	}
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					return a
				},
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelWarn,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level:     slog.LevelError,
				AddSource: false,
				ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
					if a.Key == slog.TimeKey {
						return slog.Attr{}
					}
					return a
				},
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}
