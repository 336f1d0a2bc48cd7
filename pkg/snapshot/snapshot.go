package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

const (
	DailyTable      = "lessons_today"
	MonthlyTable    = "MonthlySchedule"
	NextMonthTable  = "NextMonthSchedule"
	WebhookLogTable = "WebhookLog"
)

var (
	// ErrMissingColumns is returned when a persisted table lacks a column the sync depends on.
	ErrMissingColumns = errors.New("missing required columns")
	ErrTableNotFound  = errors.New("table not found")
)

// Fingerprint serializes the data rows of a table (header row excluded) so
// that two tables with the same rows in any order produce the same value.
// Cells are trimmed, joined with "|" per row, rows sorted and joined with ",".
func Fingerprint(rows [][]string) string {
	if len(rows) < 2 {
		return ""
	}
	parts := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = strings.TrimSpace(cell)
		}
		parts = append(parts, strings.Join(cells, "|"))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Digest is a fixed-size hash of Fingerprint(rows), small enough to store next to the cache version.
func Digest(rows [][]string) string {
	sum := sha256.Sum256([]byte(Fingerprint(rows)))
	return hex.EncodeToString(sum[:])
}

// WithHeader prepends the header to data rows, the shape returned by Repository.ReadRows.
func WithHeader(header []string, rows [][]string) [][]string {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, header)
	return append(table, rows...)
}
