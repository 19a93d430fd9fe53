package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"litepay/internal/amqp"
	"litepay/internal/cache"
	"litepay/internal/core"
	"litepay/internal/ledger"
	applog "litepay/internal/log"
	"litepay/internal/settlement"
	"litepay/internal/storage"
)

var (
	ErrEmptySessionID = errors.New("empty session id")
	ErrNoLookup       = errors.New("transaction lookup not configured")
)

// Publisher sends ledger events to the message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, msg *amqp.LedgerEvent) error
}

// LedgerService owns the ledger and the per-client verification sessions and
// serializes every mutation behind one mutex. State is saved after each
// mutation once Restore has completed.
type LedgerService struct {
	mu       sync.Mutex
	ledger   *ledger.Ledger
	store    storage.Store
	keys     storage.Keys
	restored bool

	publisher      Publisher
	lookup         settlement.Lookup
	sessions       *cache.LRUCache[*settlement.Session]
	paymentAddress string
	logger         *slog.Logger
}

type Option func(*LedgerService)

func WithPublisher(p Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLookup(l settlement.Lookup) Option {
	return func(s *LedgerService) { s.lookup = l }
}

// WithSessions bounds the verification session registry.
func WithSessions(max int, ttl time.Duration) Option {
	return func(s *LedgerService) { s.sessions = cache.NewLRUCache[*settlement.Session](max, ttl) }
}

func WithPaymentAddress(addr string) Option {
	return func(s *LedgerService) { s.paymentAddress = addr }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *LedgerService) { s.logger = l }
}

func NewLedgerService(store storage.Store, keys storage.Keys, opts ...Option) *LedgerService {
	s := &LedgerService{
		ledger:   ledger.New(),
		store:    store,
		keys:     keys,
		sessions: cache.NewLRUCache[*settlement.Session](1000, 30*time.Minute),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions.OnEvict(s.logEvicted)
	return s
}

func (s *LedgerService) logEvicted(sessionID string, sess *settlement.Session) {
	st := sess.State()
	s.logger.Debug("Verification session evicted", applog.NewFields().
		WithPayment(sessionID, st.TxID, string(st.PaymentStatus)).
		WithOperation(applog.OpEvict).
		ToSlice()...)
}

// Sessions exposes the session registry so it can be swept periodically.
func (s *LedgerService) Sessions() cache.Cleaner {
	return s.sessions
}

// Restore loads the stored groups, replacing the in-memory ledger. A missing
// key restores an empty ledger. Until Restore succeeds nothing is saved.
func (s *LedgerService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.store.Load(ctx, s.keys.Groups)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.keys.Groups, err)
	}
	var groups []core.Group
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &groups); err != nil {
			return fmt.Errorf("decode %s: %w", s.keys.Groups, err)
		}
	}
	s.ledger.Restore(groups)
	s.restored = true
	s.logger.InfoContext(ctx, "Ledger restored", append(applog.NewFields().
		WithOperation(applog.OpRestore).
		ToSlice(), "groups", len(groups), applog.FieldStorageKey, s.keys.Groups)...)
	return nil
}

// Restored reports whether the initial load has completed.
func (s *LedgerService) Restored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restored
}

func (s *LedgerService) CreateGroup(ctx context.Context, name string) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.ledger.CreateGroup(name)
	if err != nil {
		return core.Group{}, err
	}
	s.logger.InfoContext(ctx, "Group created", applog.NewFields().
		WithGroup(g.ID.String(), g.Name).
		WithOperation(applog.OpCreate).
		ToSlice()...)
	return g, s.persist(ctx)
}

// SelectGroup changes the active group. Selection is not persisted.
func (s *LedgerService) SelectGroup(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.SelectGroup(id)
}

func (s *LedgerService) Selected() (core.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Selected()
}

func (s *LedgerService) RemoveGroup(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.RemoveGroup(id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Group removed", applog.NewFields().
		WithGroup(id.String(), "").
		WithOperation(applog.OpDelete).
		ToSlice()...)
	return s.persist(ctx)
}

func (s *LedgerService) AddMember(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.AddMember(id, name); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Member added", applog.NewFields().
		WithGroup(id.String(), "").
		WithMember(name).
		WithOperation(applog.OpAdd).
		ToSlice()...)
	return s.persist(ctx)
}

func (s *LedgerService) RemoveMember(ctx context.Context, id uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.RemoveMember(id, name); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "Member removed", applog.NewFields().
		WithGroup(id.String(), "").
		WithMember(name).
		WithOperation(applog.OpRemove).
		ToSlice()...)
	return s.persist(ctx)
}

// AddExpense records an expense and publishes an expense.added event. The
// returned expense's Amount is the suggested payment.
func (s *LedgerService) AddExpense(ctx context.Context, id uuid.UUID, in ledger.ExpenseInput) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.ledger.AddExpense(id, in)
	if err != nil {
		return core.Expense{}, err
	}
	g, _ := s.ledger.Group(id)
	s.logger.InfoContext(ctx, "Expense added", applog.NewFields().
		WithGroup(id.String(), g.Name).
		WithExpense(e.Description, e.Amount.String(), e.PaidBy).
		WithOperation(applog.OpAdd).
		ToSlice()...)

	if err := s.persist(ctx); err != nil {
		return e, err
	}

	if err := s.publish(ctx, amqp.NewExpenseAddedEvent(g, e)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense event", applog.NewFields().
			WithGroup(id.String(), g.Name).
			WithOperation(applog.OpPublish).
			WithError(err).
			ToSlice()...)
	}
	return e, nil
}

func (s *LedgerService) Balances(id uuid.UUID) (core.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Balances(id)
}

func (s *LedgerService) Summary(id uuid.UUID) (core.GroupSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.ledger.Group(id)
	if !ok {
		return core.GroupSummary{}, fmt.Errorf("%w: %w", core.ErrRejected, core.ErrGroupNotFound)
	}
	return ledger.Summarize(g), nil
}

func (s *LedgerService) Group(id uuid.UUID) (core.Group, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Group(id)
}

func (s *LedgerService) Groups() []core.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Groups()
}

// GeneratePaymentAddress returns the configured receive address.
func (s *LedgerService) GeneratePaymentAddress() string {
	return s.paymentAddress
}

// VerifyPayment looks up txID for the given client session and waits for the
// result. A newer request on the same session supersedes this one, in which
// case the returned state reflects the newer request.
func (s *LedgerService) VerifyPayment(ctx context.Context, sessionID, txID, expected string) (settlement.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return settlement.State{}, err
	}
	return sess.Verify(ctx, txID, expected), nil
}

// StartVerification issues a lookup without waiting and returns the Loading
// state. The lookup outlives ctx's cancellation.
func (s *LedgerService) StartVerification(ctx context.Context, sessionID, txID, expected string) (settlement.State, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return settlement.State{}, err
	}
	st, _ := sess.Start(context.WithoutCancel(ctx), txID, expected)
	return st, nil
}

// VerificationState returns the current state of a session, if it exists.
func (s *LedgerService) VerificationState(sessionID string) (settlement.State, bool) {
	sess, ok := s.sessions.Get(strings.TrimSpace(sessionID))
	if !ok {
		return settlement.State{}, false
	}
	return sess.State(), true
}

// ResetVerification discards a session. It reports whether one existed.
func (s *LedgerService) ResetVerification(sessionID string) bool {
	return s.sessions.Delete(strings.TrimSpace(sessionID))
}

func (s *LedgerService) session(sessionID string) (*settlement.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: %w", core.ErrRejected, ErrEmptySessionID)
	}
	if s.lookup == nil {
		return nil, ErrNoLookup
	}
	return s.sessions.GetOrCreate(sessionID, func() *settlement.Session {
		return settlement.NewSession(s.lookup,
			settlement.WithLogger(s.logger),
			settlement.OnResolve(func(st settlement.State) {
				s.onVerified(sessionID, st)
			}))
	}), nil
}

func (s *LedgerService) onVerified(sessionID string, st settlement.State) {
	if st.Status != settlement.StatusSucceeded {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev := amqp.NewPaymentVerifiedEvent(sessionID, st.TxID, st.ExpectedAmount, st.PaymentStatus)
	if err := s.publish(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish payment event", applog.NewFields().
			WithPayment(sessionID, st.TxID, string(st.PaymentStatus)).
			WithOperation(applog.OpPublish).
			WithError(err).
			ToSlice()...)
	}
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishEvent(ctx, ev)
}

// persist writes the groups collection plus the flattened member and
// expense views. Caller holds s.mu.
func (s *LedgerService) persist(ctx context.Context) error {
	if !s.restored {
		s.logger.DebugContext(ctx, "Skipping save before initial restore", applog.FieldOperation, applog.OpPersist)
		return nil
	}

	groups := s.ledger.Groups()
	members := make(map[string][]core.MemberName, len(groups))
	expenses := make(map[string][]core.Expense, len(groups))
	for _, g := range groups {
		members[g.ID.String()] = g.Members
		expenses[g.ID.String()] = g.Expenses
	}

	for _, item := range []struct {
		key   string
		value any
	}{
		{s.keys.Groups, groups},
		{s.keys.Members, members},
		{s.keys.Expenses, expenses},
	} {
		raw, err := json.Marshal(item.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", item.key, err)
		}
		if err := s.store.Save(ctx, item.key, raw); err != nil {
			return fmt.Errorf("save %s: %w", item.key, err)
		}
	}
	return nil
}
