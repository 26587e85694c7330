package storage

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
)

// columns maps metadata keys to record table columns.
var columns = map[string]string{
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

// compileFilter turns f into a parameterised WHERE expression.
func compileFilter(f models.Filter) (string, []any, error) {
	if err := models.ValidateFilter(f); err != nil {
		return "", nil, err
	}
	var args []any
	expr := compile(f, &args)
	return expr, args, nil
}

func compile(f models.Filter, args *[]any) string {
	switch v := f.(type) {
	case nil:
		return "1"
	case models.Eq:
		val, ok := columnValue(v.Key, v.Value)
		if !ok {
			return "0"
		}
		*args = append(*args, val)
		return columns[v.Key] + " = ?"
	case models.In:
		placeholders := make([]string, 0, len(v.Values))
		for _, s := range v.Values {
			val, ok := columnValue(v.Key, s)
			if !ok {
				continue
			}
			*args = append(*args, val)
			placeholders = append(placeholders, "?")
		}
		if len(placeholders) == 0 {
			return "0"
		}
		return fmt.Sprintf("%s IN (%s)", columns[v.Key], strings.Join(placeholders, ", "))
	case models.And:
		if len(v) == 0 {
			return "1"
		}
		parts := make([]string, len(v))
		for i, clause := range v {
			parts[i] = "(" + compile(clause, args) + ")"
		}
		return strings.Join(parts, " AND ")
	}
	return "0"
}

// columnValue converts a filter value to the column's type. The nummer column
// is an integer; a non-numeric value can never match it.
func columnValue(key, value string) (any, bool) {
	if key != models.KeyNumber {
		return value, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, false
	}
	return n, true
}
