package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sandkasten/pool/internal/api"
	"github.com/sandkasten/pool/internal/command"
	"github.com/sandkasten/pool/internal/config"
	"github.com/sandkasten/pool/internal/engine"
	"github.com/sandkasten/pool/internal/fileio"
	"github.com/sandkasten/pool/internal/pool"
	"github.com/sandkasten/pool/internal/reaper"
	"github.com/sandkasten/pool/internal/session"
	"github.com/sandkasten/pool/internal/status"
	"github.com/sandkasten/pool/internal/store"
)

func newDaemonCommand() *cobra.Command {
	var cfgPath, logLevelFlag string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the sandkasten pool daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cfgPath, logLevelFlag)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to sandkasten.yaml")
	cmd.Flags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error (default from SANDKASTEN_LOG or info)")
	return cmd
}

func parseLogLevel(flagVal string) slog.Level {
	v := flagVal
	if v == "" {
		v = os.Getenv("SANDKASTEN_LOG")
	}
	switch v {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runDaemon(cfgPath, logLevelFlag string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(logLevelFlag)}))

	cfg, err := config.Load(resolveConfigPath(cfgPath))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.APIKey == "" {
		if !config.IsLoopback(cfg.Listen) {
			return fmt.Errorf("refusing to start: API key is empty and listen address %q is not loopback", cfg.Listen)
		}
		logger.Warn("no API key configured — running in open access mode (dev only; do not use in production)")
	}

	eng, err := engine.New()
	if err != nil {
		return fmt.Errorf("docker client: %w", err)
	}
	defer eng.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	logger.Info("docker engine reachable")

	containerRepo, sessionRepo, closeStore, err := openRepos(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	statusBroadcaster := status.NewBroadcaster(prometheus.DefaultRegisterer)

	poolOpts := pool.Options{
		Image:         cfg.Image,
		LabelPrefix:   cfg.LabelPrefix,
		PrewarmCount:  cfg.PrewarmCount,
		MaxContainers: cfg.MaxContainers,
		CreateOpts: engine.CreateOpts{
			Image:          cfg.Image,
			LabelPrefix:    cfg.LabelPrefix,
			CPULimit:       cfg.Defaults.CPULimit,
			MemLimitMB:     cfg.Defaults.MemLimitMB,
			PidsLimit:      cfg.Defaults.PidsLimit,
			NetworkMode:    cfg.Defaults.NetworkMode,
			ReadonlyRootfs: cfg.Defaults.ReadonlyRootfs,
			WorkDir:        cfg.WorkDir,
		},
	}
	containerPool := pool.New(eng, containerRepo, statusBroadcaster, logger, poolOpts)

	if err := containerPool.EnsurePrewarmed(ctx); err != nil {
		logger.Error("ensure prewarmed", "error", err)
	}

	sessionMgr := session.New(sessionRepo, containerPool, statusBroadcaster, logger, cfg.SessionTimeoutSeconds, cfg.MaxSessionTimeoutSeconds)
	runner := command.New(sessionMgr, eng, statusBroadcaster)
	files := fileio.New(sessionMgr, eng)

	rpr := reaper.New(sessionMgr, eng, containerPool, cfg.LabelPrefix, time.Duration(cfg.ReaperIntervalSeconds)*time.Second, logger)
	go rpr.Run(ctx)

	srv := api.NewServer(sessionMgr, runner, files, containerPool, statusBroadcaster, cfg.APIKey, cfg.WorkDir, logger)

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)

		deleteCtx, deleteCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer deleteCancel()
		containerPool.DeleteAll(deleteCtx)
	}()

	logger.Info("listening", "addr", cfg.Listen)
	fmt.Fprintf(os.Stderr, "\n  sandkasten daemon ready\n  API: http://%s/api\n\n", cfg.Listen)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// openRepos constructs the container/session repositories per
// cfg.Persistence, defaulting to the in-memory backend.
func openRepos(cfg *config.Config, logger *slog.Logger) (store.ContainerRepo, store.SessionRepo, func(), error) {
	if cfg.Persistence != "sqlite" {
		return store.NewMemoryContainerRepo(), store.NewMemorySessionRepo(), func() {}, nil
	}

	db, err := store.DB(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}
	logger.Info("using sqlite persistence", "db_path", cfg.DBPath)

	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Error("close sqlite store", "error", err)
		}
	}
	return store.NewSQLContainerRepo(db), store.NewSQLSessionRepo(db), closeFn, nil
}
