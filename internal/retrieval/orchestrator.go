// Package retrieval assembles labelled passages for an intent from several
// index queries and bounds them into a context payload.
package retrieval

import (
	"context"
	"strings"

	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/pkg/utils"
	"go.uber.org/zap"
)

// Querier runs ranked queries against the record index. The result holds one
// match list per query text.
type Querier interface {
	Query(ctx context.Context, texts []string, k int, filter models.Filter) ([][]models.Match, error)
}

// Orchestrator runs the program, per-year debate and overfill passes.
type Orchestrator struct {
	index  Querier
	cfg    config.RetrievalConfig
	logger *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for failed queries.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator returns an orchestrator querying index with the budget in cfg.
func NewOrchestrator(index Querier, cfg config.RetrievalConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{index: index, cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = utils.OrNop(o.logger)
	return o
}

// query is one index request tagged with the pass that issued it.
type query struct {
	texts  []string
	k      int
	filter models.Filter
	kind   models.PassageKind
	label  string
}

// run executes q and converts the matches to passages in result order.
func (o *Orchestrator) run(ctx context.Context, q query) ([]models.Passage, error) {
	results, err := o.index.Query(ctx, q.texts, q.k, q.filter)
	if err != nil {
		return nil, err
	}
	var out []models.Passage
	for _, matches := range results {
		for _, m := range matches {
			if m.Record == nil {
				continue
			}
			out = append(out, models.NewPassage(m.Record, q.kind, q.label))
		}
	}
	return out, nil
}

type dedupKey struct {
	id    string
	label string
}

// merger accumulates passages, keeping the first occurrence of each
// (source document, label) pair. Speeches sharing a dok_id collapse into one.
type merger struct {
	seen     map[dedupKey]struct{}
	passages []models.Passage
}

func newMerger() *merger {
	return &merger{seen: make(map[dedupKey]struct{})}
}

func (m *merger) add(passages []models.Passage) {
	for _, p := range passages {
		key := dedupKey{id: p.SourceID(), label: p.Label}
		if _, dup := m.seen[key]; dup {
			continue
		}
		m.seen[key] = struct{}{}
		m.passages = append(m.passages, p)
	}
}

// merge runs q and adds its passages. A failed query contributes nothing.
func (o *Orchestrator) merge(ctx context.Context, m *merger, q query) {
	passages, err := o.run(ctx, q)
	if err != nil {
		o.logger.Warn("retrieval query failed",
			zap.String("label", q.label),
			zap.Int("k", q.k),
			zap.Error(err))
		return
	}
	m.add(passages)
}

// PerYearQuota is the number of debate passages requested per year:
// max(1, (budget-reserve)/years).
func PerYearQuota(budget, reserve, years int) int {
	if years <= 0 {
		return 1
	}
	q := (budget - reserve) / years
	if q < 1 {
		return 1
	}
	return q
}

// Retrieve runs the passes for intent and returns the merged, deduplicated
// passages in pass order. The budget is a target: per-party program hits and
// the one-per-year minimum may push the total above it.
func (o *Orchestrator) Retrieve(ctx context.Context, intent models.Intent) []models.Passage {
	years := intent.Years()
	debateTexts := intent.SearchWords
	if len(debateTexts) == 0 && intent.TopicProgram != "" {
		debateTexts = []string{intent.TopicProgram}
	}
	programText := intent.TopicProgram
	if programText == "" {
		programText = strings.Join(intent.SearchWords, " ")
	}

	m := newMerger()

	if intent.NeedProgram && len(intent.Parties) > 0 {
		for _, party := range intent.Parties {
			o.merge(ctx, m, query{
				texts: []string{programText},
				k:     o.cfg.ProgramPerParty,
				filter: models.And{
					models.Eq{Key: models.KeyParty, Value: party},
					models.Eq{Key: models.KeyType, Value: models.TypeProgram},
					models.In{Key: models.KeyYear, Values: years},
				},
				kind:  models.KindProgram,
				label: models.LabelProgram,
			})
		}
	}

	quota := PerYearQuota(o.cfg.TotalBudget, o.cfg.OverfillReserve, len(years))
	for _, year := range years {
		filter := models.And{
			models.Eq{Key: models.KeyYear, Value: year},
			models.Eq{Key: models.KeyType, Value: models.TypeDebate},
		}
		if len(intent.Parties) > 0 {
			filter = append(filter, models.In{Key: models.KeyParty, Values: intent.Parties})
		}
		o.merge(ctx, m, query{
			texts:  debateTexts,
			k:      quota,
			filter: filter,
			kind:   models.KindDebate,
			label:  models.DebateLabel(year),
		})
	}

	if rest := o.cfg.TotalBudget - len(m.passages); rest > 0 {
		o.merge(ctx, m, query{
			texts:  debateTexts,
			k:      rest,
			filter: models.In{Key: models.KeyYear, Values: years},
			kind:   models.KindExtra,
			label:  models.LabelExtra,
		})
	}

	o.logger.Debug("retrieval finished",
		zap.Int("passages", len(m.passages)),
		zap.Int("years", len(years)),
		zap.Int("per_year", quota))
	return m.passages
}
