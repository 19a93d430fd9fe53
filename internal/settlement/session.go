// Package settlement confirms a payment by matching an expected amount
// against the inputs of an externally looked-up transaction.
//
// A Session is a small state machine:
//
//	Idle -> Loading -> Succeeded | Failed
//
// and any new request re-enters Loading. Overlapping requests are resolved
// last-request-wins: every request takes a sequence number and a resolution
// is applied only if it still carries the latest one.
package settlement

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"litepay/internal/core"
)

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// DefaultErrorMessage is shown to users when a lookup fails.
const DefaultErrorMessage = "Error fetching transaction info. Please check the transaction ID and try again."

type Status string

// Lookup resolves a transaction id to its record.
type Lookup interface {
	Lookup(ctx context.Context, txID string) (core.TransactionRecord, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, txID string) (core.TransactionRecord, error)

func (f LookupFunc) Lookup(ctx context.Context, txID string) (core.TransactionRecord, error) {
	return f(ctx, txID)
}

// State is a consistent snapshot of a session.
type State struct {
	TxID           string                  `json:"txId"`
	ExpectedAmount string                  `json:"expectedAmount,omitempty"`
	Status         Status                  `json:"status"`
	Record         *core.TransactionRecord `json:"record,omitempty"`
	Error          string                  `json:"error,omitempty"`
	PaymentStatus  core.PaymentStatus      `json:"paymentStatus"`
	Seq            uint64                  `json:"seq"`
}

// Session holds the verification state for one user context.
type Session struct {
	lookup Lookup
	logger *slog.Logger

	mu        sync.Mutex
	seq       uint64
	state     State
	onResolve func(State)
}

type Option func(*Session)

// WithLogger sets the logger used for lookup outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// OnResolve registers a callback invoked with the final state of every
// request that was not superseded.
func OnResolve(fn func(State)) Option {
	return func(s *Session) { s.onResolve = fn }
}

func NewSession(lookup Lookup, opts ...Option) *Session {
	s := &Session{
		lookup: lookup,
		logger: slog.Default(),
		state:  State{Status: StatusIdle, PaymentStatus: core.PaymentUnknown},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Verify looks up txID and blocks until the lookup resolves. The returned
// state is the session state after resolution; if a newer request was issued
// meanwhile, it reflects that request instead.
func (s *Session) Verify(ctx context.Context, txID, expected string) State {
	seq := s.begin(txID, expected)
	s.run(ctx, seq, txID, expected)
	return s.State()
}

// Start issues a request and resolves it on a new goroutine. It returns the
// Loading state immediately and a channel closed once the request resolves.
func (s *Session) Start(ctx context.Context, txID, expected string) (State, <-chan struct{}) {
	seq := s.begin(txID, expected)
	loading := s.State()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.run(ctx, seq, txID, expected)
	}()
	return loading, done
}

func (s *Session) begin(txID, expected string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = State{
		TxID:           strings.TrimSpace(txID),
		ExpectedAmount: strings.TrimSpace(expected),
		Status:         StatusLoading,
		PaymentStatus:  core.PaymentUnknown,
		Seq:            s.seq,
	}
	return s.seq
}

func (s *Session) run(ctx context.Context, seq uint64, txID, expected string) {
	record, err := s.lookup.Lookup(ctx, strings.TrimSpace(txID))

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Discarding superseded lookup result",
			"tx_id", txID, "seq", seq)
		return
	}
	if err != nil {
		s.state.Status = StatusFailed
		s.state.Error = DefaultErrorMessage
		s.state.PaymentStatus = core.PaymentUnknown
		s.logger.WarnContext(ctx, "Transaction lookup failed",
			"tx_id", txID, "seq", seq, "error", err)
	} else {
		s.state.Status = StatusSucceeded
		s.state.Record = &record
		s.state.PaymentStatus = classify(record, expected)
		s.logger.InfoContext(ctx, "Transaction lookup resolved",
			"tx_id", txID, "seq", seq, "payment_status", s.state.PaymentStatus)
	}
	final := s.state.clone()
	cb := s.onResolve
	s.mu.Unlock()

	if cb != nil {
		cb(final)
	}
}

// classify derives the payment status from a resolved record. An absent
// expected amount yields Unknown; one that does not parse never matches.
func classify(record core.TransactionRecord, expected string) core.PaymentStatus {
	if strings.TrimSpace(expected) == "" {
		return core.PaymentUnknown
	}
	want, err := core.ParseDecimal(expected)
	if err != nil {
		return core.PaymentNotPaid
	}
	if record.Matches(want) {
		return core.PaymentPaid
	}
	return core.PaymentNotPaid
}

func (st State) clone() State {
	if st.Record != nil {
		r := *st.Record
		r.Inputs = append([]core.TxInput(nil), st.Record.Inputs...)
		r.Outputs = append([]core.TxOutput(nil), st.Record.Outputs...)
		st.Record = &r
	}
	return st
}
