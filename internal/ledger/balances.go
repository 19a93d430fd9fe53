package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"litepay/internal/core"
)

// ComputeBalances derives net balances from a group's expenses. Every name
// that appears as payer or split key starts at zero; the payer is credited
// the amount and each split member is debited their share.
func ComputeBalances(g core.Group) core.Balances {
	balances := core.Balances{}
	for _, e := range g.Expenses {
		if _, ok := balances[e.PaidBy]; !ok {
			balances[e.PaidBy] = decimal.Zero
		}
		for member := range e.Splits {
			if _, ok := balances[member]; !ok {
				balances[member] = decimal.Zero
			}
		}
	}
	for _, e := range g.Expenses {
		balances[e.PaidBy] = balances[e.PaidBy].Add(e.Amount)
		for member, share := range e.Splits {
			balances[member] = balances[member].Sub(share)
		}
	}
	return balances
}

// Balances computes balances for the group with the given id.
func (l *Ledger) Balances(id uuid.UUID) (core.Balances, error) {
	i := l.index(id)
	if i < 0 {
		return nil, reject(core.ErrGroupNotFound)
	}
	return ComputeBalances(l.groups[i]), nil
}

// Summarize builds a display summary with balances sorted by member name.
func Summarize(g core.Group) core.GroupSummary {
	balances := ComputeBalances(g)
	total, unallocated := decimal.Zero, decimal.Zero
	for _, e := range g.Expenses {
		total = total.Add(e.Amount)
		unallocated = unallocated.Add(e.Amount.Sub(e.SplitTotal()))
	}

	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]core.MemberBalance, 0, len(names))
	for _, name := range names {
		rows = append(rows, core.MemberBalance{Name: name, Balance: balances[name]})
	}
	return core.GroupSummary{
		GroupID:     g.ID.String(),
		Name:        g.Name,
		Expenses:    len(g.Expenses),
		TotalSpent:  total,
		Unallocated: unallocated,
		Balances:    rows,
	}
}
