package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"slopefs/config"
	"slopefs/db"
	shttp "slopefs/http"
	"slopefs/ml"
	"slopefs/monitoring"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction HTTP service",
	Long: `Loads the model and scaler once and serves POST /predict.
Missing artifacts do not stop the service: it starts degraded and every
prediction fails at the scale or predict stage until restarted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg, resolveConfigPath(cmd))
	},
}

func runServe(ctx context.Context, cfg *config.Config, configPath string) error {
	baseDir := filepath.Dir(configPath)

	predictor, err := ml.LoadPredictor(artifactConfig(cfg, baseDir), ml.WithLogger(logger))
	if err != nil {
		logger.Warn("serving degraded; predictions will fail until restart", zap.Error(err))
	}

	deps := shttp.Deps{Logger: logger}
	if cfg.Database.Path != "" {
		dbPath := relativeTo(baseDir, cfg.Database.Path)
		store, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer store.Close()
		deps.Store = store
		logger.Info("prediction history enabled", zap.String("path", dbPath))
	}

	hub := monitoring.NewHub(logger)
	go hub.Run()
	defer hub.Stop()
	deps.Feed = hub
	deps.Metrics = monitoring.NewCollector()

	server := shttp.NewServer(serverConfig(cfg), shttp.NewHandler(predictor, deps), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return server.Stop()
	})
	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}

	sent, dropped := hub.Stats()
	logger.Info("exiting",
		zap.Int("feed_clients", hub.ClientCount()),
		zap.Int64("events_sent", sent),
		zap.Int64("events_dropped", dropped))
	return nil
}

func artifactConfig(cfg *config.Config, baseDir string) ml.ArtifactConfig {
	return ml.ArtifactConfig{
		ModelType:  cfg.ML.ModelType,
		ModelPath:  relativeTo(baseDir, cfg.ML.ModelPath),
		ScalerPath: relativeTo(baseDir, cfg.ML.ScalerPath),
		CacheSize:  cfg.ML.CacheSize,
	}
}

// serverConfig overlays the configured values on the server defaults; zero
// values in the file keep the default.
func serverConfig(cfg *config.Config) shttp.ServerConfig {
	sc := shttp.DefaultServerConfig()
	sc.Port = cfg.Http.Port
	if cfg.Http.Host != "" {
		sc.Host = cfg.Http.Host
	}
	if cfg.Http.Timeout > 0 {
		sc.Timeout = cfg.Http.Timeout
	}
	if cfg.Http.MaxBodyBytes > 0 {
		sc.MaxBodyBytes = cfg.Http.MaxBodyBytes
	}
	if len(cfg.Http.AllowedOrigins) > 0 {
		sc.AllowedOrigins = cfg.Http.AllowedOrigins
	}
	return sc
}

// relativeTo resolves relative paths against the directory holding the
// config file, so running from a subdirectory finds the same artifacts.
// Paths are left untouched when the config lives in the working directory.
func relativeTo(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) || baseDir == "." {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(baseDir, path)
}
