// Package cli renders answers, statistics and admin results for the kabbel command.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const rule = "─────────────────────────────────────────────────────────"

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer. Text output shows the reply, the data years and
// the sources or statistics it was built from.
func WriteAnswer(w io.Writer, a *models.Answer, format OutputFormat, colors map[string]string) error {
	if format == OutputJSON {
		return WriteJSON(w, a)
	}
	switch a.Status {
	case models.StatusIrrelevant:
		fmt.Fprintln(w, "Frågan rör inte svensk politik eller riksdagsdebatten.")
		return nil
	case models.StatusNoData:
		fmt.Fprintln(w, "Ingen data hittades för frågan.")
		return nil
	}
	fmt.Fprintf(w, "\n%s\n\n", a.Text)
	fmt.Fprintln(w, rule)
	if a.Years != "" {
		fmt.Fprintf(w, "Tidsperioder: %s\n", a.Years)
	}
	if a.Fallback {
		fmt.Fprintln(w, "(frågan tolkades utan språkmodell)")
	}
	if a.Statistics != nil {
		fmt.Fprintln(w)
		writeBars(w, a.Statistics, colors)
	}
	if len(a.Sources) > 0 {
		fmt.Fprintf(w, "\nKällor (%d):\n", len(a.Sources))
		for _, p := range a.Sources {
			fmt.Fprintf(w, "  %s\n", utils.TruncateRunes(p.String(), 120))
		}
	}
	fmt.Fprintf(w, "\nid: %s\n", a.ID)
	return nil
}

// WriteStatistics writes per-party counts, as bars in text mode.
func WriteStatistics(w io.Writer, s *models.Statistics, format OutputFormat, colors map[string]string) error {
	if format == OutputJSON {
		return WriteJSON(w, s)
	}
	fmt.Fprintf(w, "Sökord: %s (%d-%d)\n", strings.Join(s.Terms, ", "), s.StartYear, s.EndYear)
	fmt.Fprintf(w, "Genomsökta anföranden: %d, träffar: %d\n\n", s.Scanned, s.Matched)
	writeBars(w, s, colors)
	return nil
}

// WriteStatus writes index counts and configuration.
func WriteStatus(w io.Writer, s *models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, s)
	}
	fmt.Fprintf(w, "records:            %d\n", s.Records)
	fmt.Fprintf(w, "programs:           %d\n", s.Programs)
	fmt.Fprintf(w, "debates:            %d\n", s.Debates)
	fmt.Fprintf(w, "vector_index_size:  %d\n", s.VectorIndexSize)
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # storage + indices on disk\n", *s.DiskUsageBytes)
	}
	if c := s.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "embedding:          %s (%d dims)\n", c.EmbeddingProvider, c.EmbeddingDimensions)
		fmt.Fprintf(w, "llm_model:          %s\n", c.LLMModel)
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		if c.BleveIndexPath != "" {
			fmt.Fprintf(w, "bleve_index_path:   %s\n", c.BleveIndexPath)
		}
		fmt.Fprintf(w, "parties:            %s\n", strings.Join(c.Parties, " "))
	}
	return nil
}

// WriteRecord writes one record with all metadata fields.
func WriteRecord(w io.Writer, r *models.Record, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, r)
	}
	fmt.Fprintf(w, "ID: %s\n", r.ID)
	for _, key := range models.MetadataKeys {
		v, _ := r.Metadata.Value(key)
		if v == "" {
			continue
		}
		fmt.Fprintf(w, "%-8s %s\n", key+":", v)
	}
	fmt.Fprintf(w, "\n%s\n", r.Text)
	return nil
}

// WriteHits writes admin search hits, one snippet per record.
func WriteHits(w io.Writer, hits []Hit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []Hit{}
		}
		return WriteJSON(w, hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w, "Inga träffar.")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintln(w, rule)
		m := h.Record.Metadata
		fmt.Fprintf(w, "[%s] %s %s (%s) %s\n", m.Year, m.Type, m.Speaker, m.Party, h.Record.ID)
		fmt.Fprintf(w, "%s\n", h.Snippet)
	}
	return nil
}
