package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Ry-ot/Ryot-sub001/internal/config"
	"github.com/Ry-ot/Ryot-sub001/internal/content"
	"github.com/Ry-ot/Ryot-sub001/internal/host"
	"github.com/Ry-ot/Ryot-sub001/internal/metrics"
	"github.com/Ry-ot/Ryot-sub001/internal/nav"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
	"github.com/Ry-ot/Ryot-sub001/internal/tilestore"
)

const EngineConfigPath = "config/ryot.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := EngineConfigPath
	if p := os.Getenv("RYOT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadEngine(cfgPath)
	if err != nil {
		return fmt.Errorf("loading engine config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("config loaded", "path", cfgPath, "tick", cfg.TickInterval)

	store, err := tilestore.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("opening tile store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("closing tile store", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	opts := host.Options{Config: cfg, Store: store, Metrics: m}
	if cfg.CatalogFile != "" {
		catalog, err := content.LoadCatalogFile(cfg.CatalogFile, nav.FlagsFromSpec)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
		opts.Catalog = catalog
		slog.Info("catalog loaded", "elements", catalog.Len())
	}

	world := host.New(opts)
	if err := seed(world, cfg); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			slog.Info("starting metrics endpoint", "address", cfg.Metrics.Address)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		slog.Info("starting world", "tiles", world.Len())
		if err := world.Run(gctx); err != nil {
			return fmt.Errorf("world: %w", err)
		}
		return nil
	})

	runErr := g.Wait()

	n, err := world.Persist()
	if err != nil {
		slog.Error("persisting tiles", "error", err)
	} else {
		slog.Info("tiles persisted", "count", n)
	}

	if runErr != nil {
		return fmt.Errorf("engine error: %w", runErr)
	}
	return nil
}

// seed restores the world from the store, falling back to the ASCII map
// when the store is empty.
func seed(world *host.World, cfg config.Engine) error {
	n, err := world.Restore()
	if err != nil {
		return fmt.Errorf("restoring tiles: %w", err)
	}
	if n > 0 || cfg.MapFile == "" {
		return nil
	}

	drawn, err := world.LoadASCIIFile(cfg.MapFile, tile.Zero, host.DefaultLegend())
	if err != nil {
		return fmt.Errorf("loading map: %w", err)
	}
	slog.Info("map loaded", "path", cfg.MapFile, "strokes", drawn)
	return nil
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
