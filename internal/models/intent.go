package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Year ranges are limited to four-digit years and at most MaxYearSpan years,
// since every year in a range becomes a filter value and a retrieval query.
const (
	MinYear     = 1000
	MaxYear     = 9999
	MaxYearSpan = 100
)

// ErrInvalidYearRange is returned for year ranges outside the bounds above.
var ErrInvalidYearRange = errors.New("invalid year range")

// ValidateYearRange checks start and end in either order.
func ValidateYearRange(start, end int) error {
	if start > end {
		start, end = end, start
	}
	if start < MinYear || end > MaxYear {
		return fmt.Errorf("%w: %d-%d: years must be between %d and %d", ErrInvalidYearRange, start, end, MinYear, MaxYear)
	}
	if end-start >= MaxYearSpan {
		return fmt.Errorf("%w: %d-%d spans more than %d years", ErrInvalidYearRange, start, end, MaxYearSpan)
	}
	return nil
}

// Intent is the structured interpretation of a free-text question.
type Intent struct {
	IsRelevant     bool     `json:"is_relevant"`
	NeedStatistics bool     `json:"need_statistics"`
	NeedProgram    bool     `json:"need_program"`
	Parties        []string `json:"partier"`
	StartYear      int      `json:"start_year"`
	EndYear        int      `json:"end_year"`
	SearchWords    []string `json:"search_word_debate"`
	TopicProgram   string   `json:"topic_program"`
}

// Normalize swaps an inverted year range, upper-cases and de-duplicates party
// codes, and drops blank search words. It is safe to call more than once.
func (i *Intent) Normalize() {
	if i.StartYear > i.EndYear {
		i.StartYear, i.EndYear = i.EndYear, i.StartYear
	}

	parties := make([]string, 0, len(i.Parties))
	seen := make(map[string]struct{}, len(i.Parties))
	for _, p := range i.Parties {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		parties = append(parties, p)
	}
	i.Parties = parties

	words := make([]string, 0, len(i.SearchWords))
	for _, w := range i.SearchWords {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	i.SearchWords = words
	i.TopicProgram = strings.TrimSpace(i.TopicProgram)
}

// Validate checks the year range.
func (i Intent) Validate() error {
	return ValidateYearRange(i.StartYear, i.EndYear)
}

// Years returns every year in the inclusive range as 4-digit strings.
func (i Intent) Years() []string {
	return YearRange(i.StartYear, i.EndYear)
}

// YearRange returns the inclusive range [start, end] as strings. An inverted
// range is swapped and a range longer than MaxYearSpan is cut to its first
// MaxYearSpan years.
func YearRange(start, end int) []string {
	if start > end {
		start, end = end, start
	}
	span := end - start
	if span < 0 || span >= MaxYearSpan {
		span = MaxYearSpan - 1
	}
	years := make([]string, 0, span+1)
	for n := 0; n <= span; n++ {
		years = append(years, strconv.Itoa(start+n))
	}
	return years
}
