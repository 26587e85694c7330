package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/server"
	"github.com/hyperjump/kabbel/internal/watcher"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. When watch.enabled is set, files added to or changed in
ingest.program_dir are re-ingested and removed files are deleted from the index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts)
		},
	}
}

func runServer(opts *rootOptions) error {
	ctx, stop := signalContext()
	defer stop()

	comps, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()
	cfg, logger := comps.Config, comps.Logger

	if cfg.Watch.Enabled && cfg.Ingest.ProgramDir != "" {
		w := newProgramWatcher(comps)
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		go w.SyncExistingFiles()
	}

	srv := server.NewServer(comps.Engine, comps.Collection, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// newProgramWatcher re-ingests changed program files and removes the records
// of deleted ones.
func newProgramWatcher(comps *Components) *watcher.Watcher {
	logger := comps.Logger
	onChange := func(path string) {
		if _, err := comps.Ingestor.IngestProgramFile(context.Background(), path); err != nil {
			logger.Warn("program re-ingestion failed", zap.String("path", path), zap.Error(err))
		}
	}
	onRemove := func(path string) {
		filter := models.And{
			models.Eq{Key: models.KeyType, Value: models.TypeProgram},
			models.Eq{Key: models.KeySource, Value: filepath.Base(path)},
		}
		n, err := comps.Collection.Delete(context.Background(), filter)
		if err != nil {
			logger.Warn("program removal failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("program removed", zap.String("path", path), zap.Int("records", n))
	}
	return watcher.NewWatcher(
		comps.Config.Ingest.ProgramDir,
		comps.Ingestor.AcceptsProgramFile,
		onChange,
		watcher.WithLogger(logger),
		watcher.WithDebounce(comps.Config.Watch.Debounce),
		watcher.WithRemoveHandler(onRemove),
	)
}
