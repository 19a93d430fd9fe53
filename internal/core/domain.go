package core

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentUnknown PaymentStatus = "unknown"
	PaymentPaid    PaymentStatus = "paid"
	PaymentNotPaid PaymentStatus = "not_paid"
)

type (
	PaymentStatus string

	// MemberName is a plain string key. Expenses may reference names that are
	// no longer in the group's member set.
	MemberName = string

	Group struct {
		ID       uuid.UUID    `json:"id"`
		Name     string       `json:"name"`
		Members  []MemberName `json:"members"`
		Expenses []Expense    `json:"expenses"`
	}

	Expense struct {
		Description string                         `json:"description"`
		Amount      decimal.Decimal                `json:"amount"`
		PaidBy      MemberName                     `json:"paidBy"`
		Splits      map[MemberName]decimal.Decimal `json:"splits"`
	}

	// Balances maps each member to the net amount they are owed (positive)
	// or owe (negative).
	Balances map[MemberName]decimal.Decimal

	TxInput struct {
		Address string `json:"addr,omitempty"`
		// Amount is kept as the text the lookup service returned so that a
		// malformed value can be told apart from zero.
		Amount string `json:"amount"`
	}

	TxOutput struct {
		Address string `json:"addr,omitempty"`
		Amount  string `json:"amount"`
	}

	// TransactionRecord is read-only data returned by the lookup collaborator.
	TransactionRecord struct {
		TxID          string     `json:"hash"`
		Block         int64      `json:"block,omitempty"`
		Confirmations int64      `json:"confirmations,omitempty"`
		Fees          string     `json:"fees,omitempty"`
		Inputs        []TxInput  `json:"inputs"`
		Outputs       []TxOutput `json:"outputs,omitempty"`
	}
)

var (
	ErrRejected         = errors.New("rejected")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyPayer       = errors.New("empty payer")
	ErrGroupNotFound    = errors.New("group not found")
	ErrLookup           = errors.New("transaction lookup failed")
)

// NormalizeName trims surrounding whitespace from group and member names.
func NormalizeName(s string) string {
	return strings.TrimSpace(s)
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(e.PaidBy) == "" {
		return ErrEmptyPayer
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	for _, share := range e.Splits {
		if share.IsNegative() {
			return ErrInvalidAmount
		}
	}
	return nil
}

// SplitTotal returns the sum of all shares of the expense.
func (e Expense) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for _, share := range e.Splits {
		total = total.Add(share)
	}
	return total
}

// Clone returns a deep copy so callers cannot mutate ledger state.
func (g Group) Clone() Group {
	out := Group{ID: g.ID, Name: g.Name}
	out.Members = append(make([]MemberName, 0, len(g.Members)), g.Members...)
	out.Expenses = make([]Expense, len(g.Expenses))
	for i, e := range g.Expenses {
		out.Expenses[i] = e.clone()
	}
	return out
}

// HasMember reports whether name is in the group's current member set.
func (g Group) HasMember(name MemberName) bool {
	for _, m := range g.Members {
		if m == name {
			return true
		}
	}
	return false
}

func (e Expense) clone() Expense {
	splits := make(map[MemberName]decimal.Decimal, len(e.Splits))
	for k, v := range e.Splits {
		splits[k] = v
	}
	e.Splits = splits
	return e
}

// Total returns the sum of all balances. It equals the sum of expense
// amounts minus the sum of every share.
func (b Balances) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range b {
		total = total.Add(v)
	}
	return total
}

// Matches reports whether any input amount equals expected exactly. Inputs
// that do not parse never match.
func (r TransactionRecord) Matches(expected decimal.Decimal) bool {
	for _, in := range r.Inputs {
		amount, err := ParseDecimal(in.Amount)
		if err != nil {
			continue
		}
		if amount.Equal(expected) {
			return true
		}
	}
	return false
}
