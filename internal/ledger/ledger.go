// Package ledger maintains groups, their members and expenses, and derives
// per-member balances. It performs no I/O; persistence is the caller's job
// via Groups and Restore.
package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"litepay/internal/core"
)

// Ledger owns the group collection and the current selection. It is not safe
// for concurrent use; callers that share one across goroutines must serialize
// access.
type Ledger struct {
	groups   []core.Group
	selected uuid.UUID
}

// ExpenseInput is the raw form of an expense as typed by a user.
type ExpenseInput struct {
	Description string
	Amount      string
	PaidBy      string
	Splits      map[string]string
}

func New() *Ledger {
	return &Ledger{}
}

// CreateGroup appends a new empty group. Duplicate names are allowed.
func (l *Ledger) CreateGroup(name string) (core.Group, error) {
	name = core.NormalizeName(name)
	if name == "" {
		return core.Group{}, reject(core.ErrEmptyName)
	}
	g := core.Group{
		ID:       uuid.New(),
		Name:     name,
		Members:  []core.MemberName{},
		Expenses: []core.Expense{},
	}
	l.groups = append(l.groups, g)
	return g.Clone(), nil
}

// SelectGroup marks a group as the active one.
func (l *Ledger) SelectGroup(id uuid.UUID) error {
	if l.index(id) < 0 {
		return reject(core.ErrGroupNotFound)
	}
	l.selected = id
	return nil
}

// Selected returns the active group, if any.
func (l *Ledger) Selected() (core.Group, bool) {
	if l.selected == uuid.Nil {
		return core.Group{}, false
	}
	return l.Group(l.selected)
}

// RemoveGroup deletes a group by identity and clears the selection if it
// pointed at that group.
func (l *Ledger) RemoveGroup(id uuid.UUID) error {
	i := l.index(id)
	if i < 0 {
		return reject(core.ErrGroupNotFound)
	}
	l.groups = append(l.groups[:i], l.groups[i+1:]...)
	if l.selected == id {
		l.selected = uuid.Nil
	}
	return nil
}

// AddMember inserts name into the group's member set. Re-adding an existing
// member is not an error and changes nothing.
func (l *Ledger) AddMember(id uuid.UUID, name string) error {
	name = core.NormalizeName(name)
	if name == "" {
		return reject(core.ErrEmptyName)
	}
	i := l.index(id)
	if i < 0 {
		return reject(core.ErrGroupNotFound)
	}
	if l.groups[i].HasMember(name) {
		return nil
	}
	l.groups[i].Members = append(l.groups[i].Members, name)
	return nil
}

// RemoveMember drops name from the member set. Expenses that reference the
// name are left untouched.
func (l *Ledger) RemoveMember(id uuid.UUID, name string) error {
	i := l.index(id)
	if i < 0 {
		return reject(core.ErrGroupNotFound)
	}
	name = core.NormalizeName(name)
	members := l.groups[i].Members[:0]
	for _, m := range l.groups[i].Members {
		if m != name {
			members = append(members, m)
		}
	}
	l.groups[i].Members = members
	return nil
}

// AddExpense validates and appends an expense. Payer and split keys are
// trimmed like member names but not checked against the current member set.
// Split keys that trim to the same name are summed. Blank split values are
// skipped; any other value that does not parse rejects the whole expense.
func (l *Ledger) AddExpense(id uuid.UUID, in ExpenseInput) (core.Expense, error) {
	i := l.index(id)
	if i < 0 {
		return core.Expense{}, reject(core.ErrGroupNotFound)
	}
	if strings.TrimSpace(in.Description) == "" {
		return core.Expense{}, reject(core.ErrEmptyDescription)
	}
	paidBy := core.NormalizeName(in.PaidBy)
	if paidBy == "" {
		return core.Expense{}, reject(core.ErrEmptyPayer)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, reject(fmt.Errorf("amount %q: %w", in.Amount, err))
	}

	splits := make(map[core.MemberName]decimal.Decimal, len(in.Splits))
	for member, raw := range in.Splits {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		share, err := core.ParseShare(raw)
		if err != nil {
			return core.Expense{}, reject(fmt.Errorf("share for %q: %w", member, err))
		}
		name := core.NormalizeName(member)
		if name == "" {
			return core.Expense{}, reject(fmt.Errorf("share %q: %w", raw, core.ErrEmptyName))
		}
		splits[name] = splits[name].Add(share)
	}

	e := core.Expense{
		Description: in.Description,
		Amount:      amount,
		PaidBy:      paidBy,
		Splits:      splits,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, reject(err)
	}
	l.groups[i].Expenses = append(l.groups[i].Expenses, e)
	return e, nil
}

// Group returns a copy of the group with the given id.
func (l *Ledger) Group(id uuid.UUID) (core.Group, bool) {
	i := l.index(id)
	if i < 0 {
		return core.Group{}, false
	}
	return l.groups[i].Clone(), true
}

// Groups returns a copy of the whole collection in creation order.
func (l *Ledger) Groups() []core.Group {
	out := make([]core.Group, len(l.groups))
	for i, g := range l.groups {
		out[i] = g.Clone()
	}
	return out
}

// Restore replaces the collection with groups, e.g. after loading from
// storage. The selection is cleared.
func (l *Ledger) Restore(groups []core.Group) {
	l.groups = make([]core.Group, 0, len(groups))
	for _, g := range groups {
		if g.Members == nil {
			g.Members = []core.MemberName{}
		}
		if g.Expenses == nil {
			g.Expenses = []core.Expense{}
		}
		l.groups = append(l.groups, g.Clone())
	}
	l.selected = uuid.Nil
}

func (l *Ledger) index(id uuid.UUID) int {
	for i := range l.groups {
		if l.groups[i].ID == id {
			return i
		}
	}
	return -1
}

func reject(err error) error {
	return fmt.Errorf("%w: %w", core.ErrRejected, err)
}
