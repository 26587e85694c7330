package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/recordid"
	"go.uber.org/zap"
)

// ProgramRecords chunks the text of one manifesto file into program records.
// Party and year come from the filename.
func (in *Ingestor) ProgramRecords(filename, text string) []*models.Record {
	name := filepath.Base(filename)
	party := recordid.ProgramParty(name)
	year := recordid.ProgramYear(name, in.cfg.DefaultProgramYear)
	docID := recordid.ProgramDocID(party, year)

	chunks := in.chunker.Chunk(text)
	records := make([]*models.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = &models.Record{
			ID:   recordid.ProgramRecordID(party, year, i),
			Text: fmt.Sprintf("PARTIPROGRAM (%s, %s): %s", party, year, chunk),
			Metadata: models.Metadata{
				Type:   models.TypeProgram,
				Party:  party,
				Year:   year,
				Source: name,
				DocID:  docID,
				Number: i,
			},
		}
	}
	return records
}

// IngestProgramFile extracts, chunks and upserts a single manifesto file.
// An unreadable file is logged and counted as skipped, not returned as an error.
// Once every chunk is written, older chunks of the same file beyond the new
// chunk count are pruned.
func (in *Ingestor) IngestProgramFile(ctx context.Context, path string) (IngestReport, error) {
	var report IngestReport
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Files++
	text, err := in.extractText(path)
	if err != nil {
		in.logger.Warn("skipping program file", zap.String("path", path), zap.Error(err))
		report.Skipped++
		return report, nil
	}
	records := in.ProgramRecords(path, text)
	if len(records) == 0 {
		in.logger.Warn("program file has no usable text", zap.String("path", path))
		report.Skipped++
		return report, nil
	}
	b := newBatcher(ctx, in.index, in.cfg.ProgramBatchSize, &report, in.logger)
	for _, rec := range records {
		b.add(rec)
	}
	b.flush()
	if report.Failed == 0 {
		n, err := in.pruneProgram(ctx, records)
		if err != nil {
			return report, fmt.Errorf("prune %s: %w", filepath.Base(path), err)
		}
		report.Pruned = n
	}
	in.logger.Info("program ingested",
		zap.String("path", path),
		zap.String("party", records[0].Metadata.Party),
		zap.String("year", records[0].Metadata.Year),
		zap.Int("records", report.Records),
		zap.Int("pruned", report.Pruned))
	return report, nil
}

// pruneProgram deletes stored chunks of the file behind records whose
// number is not among the current ones.
func (in *Ingestor) pruneProgram(ctx context.Context, records []*models.Record) (int, error) {
	p, ok := in.index.(Pruner)
	if !ok {
		return 0, nil
	}
	source := models.And{
		models.Eq{Key: models.KeyType, Value: models.TypeProgram},
		models.Eq{Key: models.KeySource, Value: records[0].Metadata.Source},
	}
	stored, err := p.Get(ctx, source)
	if err != nil {
		return 0, err
	}
	current := make(map[int]struct{}, len(records))
	for _, r := range records {
		current[r.Metadata.Number] = struct{}{}
	}
	var stale []string
	for _, r := range stored {
		if _, ok := current[r.Metadata.Number]; !ok {
			stale = append(stale, strconv.Itoa(r.Metadata.Number))
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	return p.Delete(ctx, append(source, models.In{Key: models.KeyNumber, Values: stale}))
}

// IngestPrograms walks dir recursively and ingests every file with an allowed extension.
func (in *Ingestor) IngestPrograms(ctx context.Context, dir string) (IngestReport, error) {
	var report IngestReport
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return report, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return report, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !in.AcceptsProgramFile(path) {
			return nil
		}
		r, err := in.IngestProgramFile(ctx, path)
		report.Add(r)
		return err
	})
	return report, err
}

// AcceptsProgramFile reports whether path has one of the configured program extensions.
func (in *Ingestor) AcceptsProgramFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return extensionAllowed(filepath.Ext(path), in.cfg.ProgramExtensions)
}
