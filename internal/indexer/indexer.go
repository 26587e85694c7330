package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/era"
	"github.com/hyperjump/kabbel/internal/extract"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
)

// Upserter is the write side of the index.
type Upserter interface {
	Upsert(ctx context.Context, records []*models.Record) error
}

// Pruner is implemented by indexes that can also read and delete records.
// When the index is a Pruner, re-ingesting a program file removes the chunks
// the new revision no longer produces.
type Pruner interface {
	Get(ctx context.Context, filter models.Filter) ([]*models.Record, error)
	Delete(ctx context.Context, filter models.Filter) (int, error)
}

// IngestReport summarises one ingestion run.
type IngestReport struct {
	Files   int `json:"files"`
	Lines   int `json:"lines"`
	Records int `json:"records"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Pruned  int `json:"pruned,omitempty"`
}

// Add accumulates other into r.
func (r *IngestReport) Add(other IngestReport) {
	r.Files += other.Files
	r.Lines += other.Lines
	r.Records += other.Records
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Pruned += other.Pruned
}

// Ingestor converts sources into records and upserts them in batches.
type Ingestor struct {
	index     Upserter
	extractor *extract.Extractor
	tagger    *era.Tagger
	chunker   *Chunker
	cfg       config.IngestConfig
	logger    *zap.Logger
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for skipped lines, unreadable files and failed batches.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(in *Ingestor) { in.logger = l }
}

// NewIngestor creates an ingestor writing to index.
// extractor may be nil, in which case a default Extractor is used.
func NewIngestor(index Upserter, extractor *extract.Extractor, tagger *era.Tagger, cfg config.IngestConfig, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		index:     index,
		extractor: extractor,
		tagger:    tagger,
		chunker:   NewChunker(cfg.MinFragmentChars, cfg.MaxChunkChars),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = utils.OrNop(in.logger)
	return in
}

// batcher buffers records and upserts them size at a time. A failed batch is
// logged and counted in the report; later batches still run.
type batcher struct {
	ctx    context.Context
	index  Upserter
	size   int
	buf    []*models.Record
	report *IngestReport
	logger *zap.Logger
}

func newBatcher(ctx context.Context, index Upserter, size int, report *IngestReport, logger *zap.Logger) *batcher {
	if size <= 0 {
		size = 100
	}
	return &batcher{ctx: ctx, index: index, size: size, report: report, logger: logger}
}

func (b *batcher) add(rec *models.Record) {
	b.buf = append(b.buf, rec)
	if len(b.buf) >= b.size {
		b.flush()
	}
}

func (b *batcher) flush() {
	if len(b.buf) == 0 {
		return
	}
	if err := b.index.Upsert(b.ctx, b.buf); err != nil {
		b.logger.Warn("upsert batch failed",
			zap.Int("records", len(b.buf)),
			zap.String("first_id", b.buf[0].ID),
			zap.Error(err))
		b.report.Failed += len(b.buf)
	} else {
		b.report.Records += len(b.buf)
	}
	b.buf = nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

func (in *Ingestor) extractText(path string) (string, error) {
	ex := in.extractor
	if ex == nil {
		ex = extract.NewExtractor()
	}
	text, err := ex.Extract(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path, err)
	}
	return text, nil
}
