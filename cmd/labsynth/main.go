package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/labsynth/internal/config"
	"github.com/ehr/labsynth/internal/platform/blobstore"
	"github.com/ehr/labsynth/internal/platform/middleware"
	"github.com/ehr/labsynth/internal/platform/sandbox"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "labsynth",
		Short:         "Synthetic clinical laboratory dataset generator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(generateCmd())
	cmd.AddCommand(listCmd())
	cmd.AddCommand(serveCmd())
	return cmd
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	logger := zerolog.New(w).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the small and large laboratory datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyGenerateFlags(cmd, cfg); err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.OutOrStdout())

			if err := cfg.ValidateGenerate(); err != nil {
				logger.Error().Err(err).Msg("invalid arguments")
				return err
			}

			result, err := runGenerate(cmd.Context(), cfg, logger)
			if err != nil {
				logger.Error().Err(err).Msg("generation failed")
				return err
			}
			logger.Info().
				Str("run_id", result.RunID).
				Int64("seed", result.Seed).
				Int("small", result.SmallRows).
				Int("large", result.LargeRows).
				Dur("duration", result.Duration).
				Msg("done")
			return nil
		},
	}

	cmd.Flags().IntP("small", "s", 10, "number of rows in the small dataset")
	cmd.Flags().IntP("large", "l", 5000, "number of rows in the large dataset")
	cmd.Flags().StringP("output", "o", "", "base name of the output files (required)")
	cmd.Flags().Int64("seed", 0, "random seed, 0 picks a time-based seed")
	cmd.Flags().String("out-dir", ".", "directory the fs driver writes into")
	cmd.Flags().Bool("csv", false, "also write the small dataset as CSV")
	cmd.Flags().Int("window-min", 1, "minimum visit offset in days")
	cmd.Flags().Int("window-max", 160, "maximum visit offset in days")
	return cmd
}

// applyGenerateFlags copies explicitly set flags over the loaded configuration.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && flags.Changed(name) {
			err = apply()
		}
	}

	set("small", func() (e error) { cfg.SmallCount, e = flags.GetInt("small"); return })
	set("large", func() (e error) { cfg.LargeCount, e = flags.GetInt("large"); return })
	set("output", func() (e error) { cfg.OutputName, e = flags.GetString("output"); return })
	set("seed", func() (e error) { cfg.Seed, e = flags.GetInt64("seed"); return })
	set("out-dir", func() (e error) { cfg.OutputDir, e = flags.GetString("out-dir"); return })
	set("csv", func() (e error) { cfg.CSVMirror, e = flags.GetBool("csv"); return })
	set("window-min", func() (e error) { cfg.VisitWindowMinDays, e = flags.GetInt("window-min"); return })
	set("window-max", func() (e error) { cfg.VisitWindowMaxDays, e = flags.GetInt("window-max"); return })
	return err
}

func runGenerate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*sandbox.RunResult, error) {
	opts, err := cfg.DatasetOptions()
	if err != nil {
		return nil, err
	}
	store, err := blobstore.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	seeder := sandbox.NewSeeder(store, logger, nil)
	return seeder.Run(ctx, sandbox.RunOptions{
		Dataset:    opts,
		OutputName: cfg.OutputName,
		CSVMirror:  cfg.CSVMirror,
		Seed:       cfg.Seed,
	})
}

// ---------------------------------------------------------------------------
// list
// ---------------------------------------------------------------------------

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [prefix]",
		Short: "List stored dataset artifacts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out-dir") {
				cfg.OutputDir, _ = cmd.Flags().GetString("out-dir")
			}
			logger := newLogger(cfg, cmd.OutOrStdout())

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			infos, err := listArtifacts(cmd.Context(), cfg, prefix)
			if err != nil {
				logger.Error().Err(err).Msg("list failed")
				return err
			}
			for _, info := range infos {
				logger.Info().
					Str("key", info.Key).
					Int64("size", info.Size).
					Str("content_type", info.ContentType).
					Time("last_modified", info.LastModified).
					Msg("artifact")
			}
			return nil
		},
	}
	cmd.Flags().String("out-dir", ".", "directory the fs driver reads from")
	return cmd
}

func listArtifacts(ctx context.Context, cfg *config.Config, prefix string) ([]blobstore.Info, error) {
	store, err := blobstore.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	return store.List(ctx, prefix)
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP dataset sandbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Config
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	// Artifact store
	ctx := context.Background()
	store, err := blobstore.Open(ctx, cfg.BlobConfig())
	if err != nil {
		logger.Error().Err(err).Msg("failed to open artifact store")
		return err
	}
	logger.Info().Str("driver", cfg.BlobDriver).Msg("artifact store ready")

	e, err := newServer(cfg, logger, store, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware, the sandbox routes and /metrics onto a new echo
// instance. Metrics are registered on reg.
func newServer(cfg *config.Config, logger zerolog.Logger, store blobstore.Store, reg *prometheus.Registry) (*echo.Echo, error) {
	opts, err := cfg.DatasetOptions()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Metrics
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := sandbox.NewMetrics(reg)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Dataset sandbox
	seeder := sandbox.NewSeeder(store, logger, metrics)
	handler := sandbox.NewHandler(seeder, sandbox.RunOptions{
		Dataset:    opts,
		OutputName: cfg.OutputName,
		CSVMirror:  cfg.CSVMirror,
		Seed:       cfg.Seed,
	})
	handler.RegisterRoutes(e.Group("/labdata"), middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))

	return e, nil
}
