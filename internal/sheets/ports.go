// Package sheets mirrors ledger activity into a spreadsheet.
package sheets

import (
	"context"
	"sort"
	"strings"
	"time"
)

// ExpenseRow is one mirrored expense, flattened to spreadsheet cells.
type ExpenseRow struct {
	RecordedAt       time.Time
	GroupID          string
	GroupName        string
	Description      string
	Amount           string
	SuggestedPayment string
	PaidBy           string
	// Splits maps member name to share.
	Splits map[string]string
}

// Values returns the row cells in column order A..H.
func (r ExpenseRow) Values() []any {
	return []any{
		r.RecordedAt.UTC().Format(time.RFC3339),
		r.GroupID,
		r.GroupName,
		r.Description,
		r.Amount,
		r.SuggestedPayment,
		r.PaidBy,
		FormatSplits(r.Splits),
	}
}

// Header is the column header row matching Values.
func Header() []any {
	return []any{"Recorded", "Group ID", "Group", "Description", "Amount", "Suggested payment", "Paid by", "Splits"}
}

// FormatSplits renders splits as "A=10; B=20" sorted by name.
func FormatSplits(splits map[string]string) string {
	names := make([]string, 0, len(splits))
	for name := range splits {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+splits[name])
	}
	return strings.Join(parts, "; ")
}

// Ports for outbound adapters.
type (
	ExpenseRowWriter interface {
		AppendExpenseRow(ctx context.Context, row ExpenseRow) (rowRef string, err error)
	}
)
