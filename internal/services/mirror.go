package services

import (
	"context"
	"fmt"
	"log/slog"

	"litepay/internal/amqp"
	applog "litepay/internal/log"
	"litepay/internal/sheets"
)

// ExpenseMirror copies expense.added events into a spreadsheet. Other event
// types are acknowledged and ignored.
type ExpenseMirror struct {
	writer sheets.ExpenseRowWriter
	logger *slog.Logger
}

func NewExpenseMirror(writer sheets.ExpenseRowWriter, logger *slog.Logger) *ExpenseMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseMirror{writer: writer, logger: logger}
}

// Handle matches the amqp consumer handler signature.
func (m *ExpenseMirror) Handle(ctx context.Context, ev *amqp.LedgerEvent) error {
	if ev.Type != amqp.EventExpenseAdded {
		m.logger.DebugContext(ctx, "Ignoring event", "type", ev.Type)
		return nil
	}

	row := sheets.ExpenseRow{
		RecordedAt:       ev.Timestamp,
		GroupID:          ev.GroupID,
		GroupName:        ev.GroupName,
		Description:      ev.Description,
		Amount:           ev.Amount,
		SuggestedPayment: ev.SuggestedPayment,
		PaidBy:           ev.PaidBy,
		Splits:           ev.Splits,
	}
	ref, err := m.writer.AppendExpenseRow(ctx, row)
	if err != nil {
		return fmt.Errorf("mirror expense %q of group %s: %w", ev.Description, ev.GroupID, err)
	}

	m.logger.InfoContext(ctx, "Expense mirrored", append(applog.NewFields().
		WithGroup(ev.GroupID, ev.GroupName).
		WithExpense(ev.Description, ev.Amount, ev.PaidBy).
		WithOperation(applog.OpMirror).
		ToSlice(), "sheets_ref", ref)...)
	return nil
}
