package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litepay/internal/amqp"
	"litepay/internal/core"
	"litepay/internal/services"
	"litepay/internal/sheets/memory"
)

// fakeConsumer hands its events to the handler, then blocks until ctx is
// done like the broker client does.
type fakeConsumer struct {
	events  []*amqp.LedgerEvent
	results []error
	err     error
}

func (f *fakeConsumer) ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for _, ev := range f.events {
		f.results = append(f.results, handler(ctx, ev))
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeHeader struct {
	calls int
	err   error
}

func (h *fakeHeader) EnsureHeader(context.Context) error {
	h.calls++
	return h.err
}

func expenseEvent(desc string) *amqp.LedgerEvent {
	g := core.Group{Name: "Trip"}
	e := core.Expense{
		Description: desc,
		Amount:      decimal.RequireFromString("30"),
		PaidBy:      "A",
		Splits:      map[string]decimal.Decimal{"A": decimal.RequireFromString("15"), "B": decimal.RequireFromString("15")},
	}
	return amqp.NewExpenseAddedEvent(g, e)
}

func runBriefly(t *testing.T, w *MirrorWorker) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	return w.Run(ctx)
}

func TestMirrorWorkerWritesExpenseRows(t *testing.T) {
	rows := memory.New()
	header := &fakeHeader{}
	consumer := &fakeConsumer{events: []*amqp.LedgerEvent{
		expenseEvent("dinner"),
		amqp.NewPaymentVerifiedEvent("s1", "tx", "1", core.PaymentPaid),
		expenseEvent("taxi"),
	}}
	w := NewMirrorWorker(consumer, services.NewExpenseMirror(rows, nil).Handle, WithHeader(header))

	require.NoError(t, runBriefly(t, w))
	assert.Equal(t, 1, header.calls)
	require.Len(t, rows.Rows(), 2)
	assert.Equal(t, "dinner", rows.Rows()[0].Description)
	assert.Equal(t, "Trip", rows.Rows()[1].GroupName)
	assert.Equal(t, Stats{Processed: 3}, w.Stats())
}

func TestMirrorWorkerCountsFailures(t *testing.T) {
	consumer := &fakeConsumer{events: []*amqp.LedgerEvent{expenseEvent("a"), expenseEvent("b")}}
	boom := errors.New("sheet unavailable")
	calls := 0
	w := NewMirrorWorker(consumer, func(context.Context, *amqp.LedgerEvent) error {
		calls++
		if calls == 1 {
			return boom
		}
		return nil
	})

	require.NoError(t, runBriefly(t, w))
	assert.ErrorIs(t, consumer.results[0], boom, "handler errors reach the consumer so it can requeue")
	assert.Equal(t, Stats{Processed: 1, Failed: 1}, w.Stats())
}

func TestMirrorWorkerHeaderFailureDoesNotStop(t *testing.T) {
	rows := memory.New()
	consumer := &fakeConsumer{events: []*amqp.LedgerEvent{expenseEvent("a")}}
	w := NewMirrorWorker(consumer, services.NewExpenseMirror(rows, nil).Handle,
		WithHeader(&fakeHeader{err: errors.New("forbidden")}))

	require.NoError(t, runBriefly(t, w))
	assert.Len(t, rows.Rows(), 1)
}

func TestMirrorWorkerReturnsConsumerError(t *testing.T) {
	fatal := errors.New("access refused")
	w := NewMirrorWorker(&fakeConsumer{err: fatal}, func(context.Context, *amqp.LedgerEvent) error { return nil })
	assert.ErrorIs(t, runBriefly(t, w), fatal)
}
