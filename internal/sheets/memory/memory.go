// Package memory keeps mirrored rows in process. The worker uses it when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"litepay/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.ExpenseRow
}

var _ sheets.ExpenseRowWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendExpenseRow stores the row and returns a synthetic row reference.
func (s *Store) AppendExpenseRow(_ context.Context, row sheets.ExpenseRow) (string, error) {
	if row.GroupID == "" {
		return "", fmt.Errorf("row without group id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the stored rows.
func (s *Store) Rows() []sheets.ExpenseRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.ExpenseRow(nil), s.rows...)
}
