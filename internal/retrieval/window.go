package retrieval

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
)

// Window bounds the passages placed in front of the model.
type Window struct {
	cfg config.WindowConfig
}

// NewWindow returns a window selector with the limits in cfg.
func NewWindow(cfg config.WindowConfig) *Window {
	return &Window{cfg: cfg}
}

// Select returns program passages first, in retrieval order, followed by the
// debate passages sorted newest first. When there are more than MaxDebates
// debates only the KeepNewest newest and KeepOldest oldest are kept. Negative
// limits count as zero.
func (w *Window) Select(passages []models.Passage) []models.Passage {
	var programs, debates []models.Passage
	for _, p := range passages {
		if p.IsProgram() {
			programs = append(programs, p)
		} else {
			debates = append(debates, p)
		}
	}
	debates = SortNewestFirst(debates)
	keepNewest, keepOldest := max(w.cfg.KeepNewest, 0), max(w.cfg.KeepOldest, 0)
	if len(debates) > w.cfg.MaxDebates && keepNewest+keepOldest < len(debates) {
		newest := debates[:keepNewest]
		oldest := debates[len(debates)-keepOldest:]
		windowed := make([]models.Passage, 0, len(newest)+len(oldest))
		windowed = append(windowed, newest...)
		debates = append(windowed, oldest...)
	}
	return append(programs, debates...)
}

// Payload renders passages one per paragraph and cuts the result to
// MaxPayloadChars characters.
func (w *Window) Payload(passages []models.Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.String()
	}
	return utils.TruncateRunes(strings.Join(parts, "\n\n"), w.cfg.MaxPayloadChars)
}

// SortNewestFirst returns a copy of passages stably sorted by date descending.
// Passages without a valid ISO date sort last.
func SortNewestFirst(passages []models.Passage) []models.Passage {
	type dated struct {
		p  models.Passage
		t  time.Time
		ok bool
	}
	items := make([]dated, len(passages))
	for i, p := range passages {
		t, err := time.Parse("2006-01-02", p.Date)
		items[i] = dated{p: p, t: t, ok: err == nil}
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.t.After(b.t)
	})
	out := make([]models.Passage, len(items))
	for i, it := range items {
		out[i] = it.p
	}
	return out
}

var yearPattern = regexp.MustCompile(`20\d{2}`)

// Years lists the distinct years mentioned in the rendered passages in
// ascending order joined by ", ", or "start-end" when none is found.
func Years(passages []models.Passage, start, end int) string {
	seen := make(map[string]struct{})
	var years []string
	for _, p := range passages {
		y := yearPattern.FindString(p.String())
		if y == "" {
			continue
		}
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		years = append(years, y)
	}
	if len(years) == 0 {
		return fmt.Sprintf("%d-%d", start, end)
	}
	sort.Strings(years)
	return strings.Join(years, ", ")
}
