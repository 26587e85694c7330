package models

import (
	"errors"
	"fmt"
)

// ErrUnknownFilterKey is returned when a filter references a key outside the metadata schema.
var ErrUnknownFilterKey = errors.New("unknown filter key")

// Filter is a predicate over record metadata. A nil Filter matches every record.
// Implementations are Eq, In and And.
type Filter interface {
	isFilter()
}

// Eq matches records whose Key equals Value.
type Eq struct {
	Key   string
	Value string
}

// In matches records whose Key is one of Values. An empty Values matches nothing.
type In struct {
	Key    string
	Values []string
}

// And matches records that satisfy every clause. An empty And matches everything.
type And []Filter

func (Eq) isFilter()  {}
func (In) isFilter()  {}
func (And) isFilter() {}

// ValidateFilter checks that every key in f names a metadata field.
func ValidateFilter(f Filter) error {
	switch v := f.(type) {
	case nil:
		return nil
	case Eq:
		if !IsMetadataKey(v.Key) {
			return fmt.Errorf("%w: %q", ErrUnknownFilterKey, v.Key)
		}
	case In:
		if !IsMetadataKey(v.Key) {
			return fmt.Errorf("%w: %q", ErrUnknownFilterKey, v.Key)
		}
	case And:
		for _, clause := range v {
			if err := ValidateFilter(clause); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported filter type %T", f)
	}
	return nil
}

// MatchFilter reports whether m satisfies f.
func MatchFilter(f Filter, m Metadata) bool {
	switch v := f.(type) {
	case nil:
		return true
	case Eq:
		got, ok := m.Value(v.Key)
		return ok && got == v.Value
	case In:
		got, ok := m.Value(v.Key)
		if !ok {
			return false
		}
		for _, want := range v.Values {
			if got == want {
				return true
			}
		}
		return false
	case And:
		for _, clause := range v {
			if !MatchFilter(clause, m) {
				return false
			}
		}
		return true
	}
	return false
}
