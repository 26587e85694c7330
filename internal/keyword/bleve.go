package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/sv"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kabbel/internal/models"
)

const (
	docType   = "record"
	textField = "text"
)

// fieldNames maps metadata keys to ASCII Bleve field names.
var fieldNames = map[string]string{
	models.KeyType:     "typ",
	models.KeyParty:    "parti",
	models.KeyYear:     "ar",
	models.KeyDate:     "datum",
	models.KeySource:   "kalla",
	models.KeyDocID:    "dok_id",
	models.KeySpeaker:  "talare",
	models.KeyNumber:   "nummer",
	models.KeyHeading:  "rubrik",
	models.KeyRebuttal: "replik",
}

// BleveIndex implements KeywordIndex using Bleve with the Swedish analyzer.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = sv.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Swedish stemming so "skolorna" and "skola" share a term.
	textFieldMapping.Analyzer = sv.AnalyzerName
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(textField, textFieldMapping)

	for _, name := range fieldNames {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = false
		fm.IncludeInAll = false
		docMapping.AddFieldMappingsAt(name, fm)
	}
	im.AddDocumentMapping(docType, docMapping)
	im.DefaultType = docType
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reused; the collection re-populates it from storage
// when its document count disagrees with the record table.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryBleveIndex creates a Bleve index that lives only in memory.
func NewMemoryBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func document(r *models.Record) map[string]interface{} {
	doc := map[string]interface{}{textField: r.Text}
	for _, key := range models.MetadataKeys {
		v, _ := r.Metadata.Value(key)
		doc[fieldNames[key]] = v
	}
	return doc
}

// Index adds or replaces records in one batch.
func (b *BleveIndex) Index(ctx context.Context, records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, r := range records {
		if err := batch.Index(r.ID, document(r)); err != nil {
			return fmt.Errorf("index %s: %w", r.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a match query over the record text, restricted by filter.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, filter models.Filter) ([]*KeywordResult, error) {
	if limit <= 0 {
		return nil, nil
	}
	fq, err := filterQuery(filter)
	if err != nil {
		return nil, err
	}
	mq := bleve.NewMatchQuery(query)
	mq.SetField(textField)
	mq.Analyzer = sv.AnalyzerName

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(mq, fq))
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// filterQuery translates a metadata filter into a Bleve query.
func filterQuery(f models.Filter) (blevequery.Query, error) {
	if err := models.ValidateFilter(f); err != nil {
		return nil, err
	}
	return buildFilter(f), nil
}

func buildFilter(f models.Filter) blevequery.Query {
	switch v := f.(type) {
	case models.Eq:
		return termQuery(v.Key, v.Value)
	case models.In:
		if len(v.Values) == 0 {
			return bleve.NewMatchNoneQuery()
		}
		terms := make([]blevequery.Query, len(v.Values))
		for i, val := range v.Values {
			terms[i] = termQuery(v.Key, val)
		}
		return bleve.NewDisjunctionQuery(terms...)
	case models.And:
		if len(v) == 0 {
			return bleve.NewMatchAllQuery()
		}
		clauses := make([]blevequery.Query, len(v))
		for i, clause := range v {
			clauses[i] = buildFilter(clause)
		}
		return bleve.NewConjunctionQuery(clauses...)
	}
	return bleve.NewMatchAllQuery()
}

func termQuery(key, value string) blevequery.Query {
	tq := bleve.NewTermQuery(value)
	tq.SetField(fieldNames[key])
	return tq
}

// Delete removes documents from the index in one batch.
func (b *BleveIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
