package core

import "github.com/shopspring/decimal"

// MemberBalance is one row of a group's balance sheet.
type MemberBalance struct {
	Name    MemberName      `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// GroupSummary is a compact view of a group's expenses and balances.
type GroupSummary struct {
	GroupID     string          `json:"groupId"`
	Name        string          `json:"name"`
	Expenses    int             `json:"expenses"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	Balances    []MemberBalance `json:"balances"`
	// Unallocated is the part of TotalSpent not covered by any share.
	Unallocated decimal.Decimal `json:"unallocated"`
}
