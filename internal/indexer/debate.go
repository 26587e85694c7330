package indexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hyperjump/kabbel/internal/era"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/recordid"
	"go.uber.org/zap"
)

const (
	defaultDate     = "0000-00-00"
	defaultRebuttal = "N"
	maxLineBytes    = 16 << 20
)

// errNotDebate marks a well-formed line that carries no speech (no talare or dok_id).
var errNotDebate = errors.New("not a debate line")

// looseString accepts a JSON string or number.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*s = looseString(n.String())
	return nil
}

// debateLine is one JSON Lines entry of a speech export.
type debateLine struct {
	ID       looseString `json:"id"`
	DocID    *string     `json:"dok_id"`
	Number   looseString `json:"nummer"`
	Speaker  *string     `json:"talare"`
	Party    string      `json:"parti"`
	Date     string      `json:"datum"`
	Heading  string      `json:"rubrik"`
	Text     *string     `json:"text"`
	Rebuttal string      `json:"ar_replik"`
}

// DebateRecord converts one decoded line into a debate record.
// It returns errNotDebate for lines without speaker or document ID.
func DebateRecord(line []byte, tagger *era.Tagger) (*models.Record, error) {
	var d debateLine
	if err := json.Unmarshal(line, &d); err != nil {
		return nil, fmt.Errorf("decode line: %w", err)
	}
	if d.Speaker == nil || d.DocID == nil {
		return nil, errNotDebate
	}
	if d.Text == nil {
		return nil, errors.New("missing text")
	}
	date := d.Date
	if date == "" {
		date = defaultDate
	}
	year, ok := yearOf(date)
	if !ok {
		return nil, fmt.Errorf("malformed datum %q", date)
	}
	party := strings.TrimSpace(d.Party)
	metaParty := strings.ToUpper(party)
	if metaParty == "" {
		metaParty = models.UnknownParty
	}
	number, _ := strconv.Atoi(string(d.Number))
	rebuttal := d.Rebuttal
	if rebuttal == "" {
		rebuttal = defaultRebuttal
	}

	text := fmt.Sprintf("RUBRIK: %s\nTALARE: %s (%s)\nTEXT: %s%s",
		d.Heading, *d.Speaker, party, *d.Text, tagger.Suffix(date, party))

	return &models.Record{
		ID:   recordid.DebateRecordID(string(d.ID), *d.DocID, string(d.Number)),
		Text: text,
		Metadata: models.Metadata{
			Type:     models.TypeDebate,
			Party:    metaParty,
			Year:     year,
			Date:     date,
			DocID:    *d.DocID,
			Speaker:  *d.Speaker,
			Number:   number,
			Heading:  d.Heading,
			Rebuttal: rebuttal,
		},
	}, nil
}

// yearOf returns the leading four-digit year of an ISO date.
func yearOf(date string) (string, bool) {
	if len(date) < 4 {
		return "", false
	}
	for _, c := range date[:4] {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	if len(date) > 4 && date[4] != '-' {
		return "", false
	}
	return date[:4], true
}

// IngestDebates ingests each JSON Lines file in turn. A file that cannot be
// opened aborts the run; bad lines inside a file are skipped.
func (in *Ingestor) IngestDebates(ctx context.Context, paths ...string) (IngestReport, error) {
	var report IngestReport
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return report, fmt.Errorf("open debate file: %w", err)
		}
		r, err := in.IngestDebateReader(ctx, f, path)
		_ = f.Close()
		report.Add(r)
		report.Files++
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// IngestDebateReader ingests JSON Lines from r. source names the input in log fields.
func (in *Ingestor) IngestDebateReader(ctx context.Context, r io.Reader, source string) (IngestReport, error) {
	var report IngestReport
	b := newBatcher(ctx, in.index, in.cfg.DebateBatchSize, &report, in.logger)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			b.flush()
			return report, err
		}
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		report.Lines++
		rec, err := DebateRecord(line, in.tagger)
		if err != nil {
			report.Skipped++
			if !errors.Is(err, errNotDebate) {
				in.logger.Warn("skipping debate line",
					zap.String("path", source),
					zap.Int("line", lineNo),
					zap.Error(err))
			}
			continue
		}
		b.add(rec)
	}
	b.flush()
	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("read %s: %w", source, err)
	}
	in.logger.Info("debates ingested",
		zap.String("path", source),
		zap.Int("lines", report.Lines),
		zap.Int("records", report.Records),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}
