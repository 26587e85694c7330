package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/kabbel/internal/answer"
	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/era"
	"github.com/hyperjump/kabbel/internal/extract"
	"github.com/hyperjump/kabbel/internal/indexer"
	"github.com/hyperjump/kabbel/internal/llm"
	"github.com/hyperjump/kabbel/internal/retrieval"
	"github.com/hyperjump/kabbel/internal/search"
	"github.com/hyperjump/kabbel/internal/stats"
)

// Components holds the initialized components for commands and the server.
type Components struct {
	Config     *config.Config
	Logger     *zap.Logger
	Collection *search.Collection
	Ingestor   *indexer.Ingestor
	Engine     *answer.Engine
}

// Close releases the index and flushes the logger.
func (c *Components) Close() {
	if c.Collection != nil {
		if err := c.Collection.Close(); err != nil {
			c.Logger.Warn("close collection failed", zap.Error(err))
		}
	}
	_ = c.Logger.Sync()
}

// initializeComponents opens the collection and wires ingestion and the answer pipeline.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	col, err := search.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	ingestor := indexer.NewIngestor(col, extract.NewExtractor(), era.NewTagger(cfg.Eras), cfg.Ingest,
		indexer.WithLogger(logger))

	client := llm.NewChatClient(cfg.LLM, llm.WithLogger(logger))
	engine := answer.NewEngine(
		llm.NewClassifier(client, cfg.DefaultStartYear),
		llm.NewGenerator(client),
		retrieval.NewOrchestrator(col, cfg.Retrieval, retrieval.WithLogger(logger)),
		retrieval.NewWindow(cfg.Window),
		stats.NewAggregator(col, cfg.PartyCodes(), stats.WithLogger(logger)),
		answer.WithLogger(logger),
		answer.WithBackground(cfg.Background),
		answer.WithDefaultStartYear(cfg.DefaultStartYear),
	)
	logger.Info("components initialized",
		zap.Int("records", col.Size()),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("llm_model", cfg.LLM.Model))
	return &Components{
		Config:     cfg,
		Logger:     logger,
		Collection: col,
		Ingestor:   ingestor,
		Engine:     engine,
	}, nil
}

// open runs setup and initializeComponents for a command.
func (o *rootOptions) open(ctx context.Context) (*Components, error) {
	cfg, logger, err := o.setup()
	if err != nil {
		return nil, err
	}
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return comps, nil
}
