// Package recordid derives deterministic record IDs and source attributes so
// that re-ingesting the same source upserts the same records.
package recordid

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hyperjump/kabbel/internal/models"
)

var (
	partyPrefix = regexp.MustCompile(`^([A-ZÅÄÖ]+)`)
	yearPattern = regexp.MustCompile(`(\d{4})`)
)

// ProgramParty returns the party code encoded as the leading letters of a
// manifesto filename, or models.UnknownParty when the name has none.
func ProgramParty(filename string) string {
	base := strings.ToUpper(filepath.Base(filename))
	if m := partyPrefix.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return models.UnknownParty
}

// ProgramYear returns the first four-digit group of a manifesto filename, or fallback.
func ProgramYear(filename, fallback string) string {
	if m := yearPattern.FindStringSubmatch(filepath.Base(filename)); m != nil {
		return m[1]
	}
	return fallback
}

// ProgramRecordID is the ID of passage i of a party's manifesto for a year.
func ProgramRecordID(party, year string, i int) string {
	return fmt.Sprintf("prog_%s_%s_%d", party, year, i)
}

// ProgramDocID identifies a whole manifesto.
func ProgramDocID(party, year string) string {
	return fmt.Sprintf("PROG-%s-%s", party, year)
}

// DebateRecordID returns explicitID when set, otherwise "{docID}-{number}".
func DebateRecordID(explicitID, docID, number string) string {
	if explicitID != "" {
		return explicitID
	}
	if number == "" {
		number = "0"
	}
	return docID + "-" + number
}
