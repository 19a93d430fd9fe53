package ledger

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litepay/internal/core"
)

func TestComputeBalancesExample(t *testing.T) {
	l := New()
	id := newGroup(t, l, "Trip")
	_, err := l.AddExpense(id, ExpenseInput{
		Description: "dinner",
		Amount:      "30",
		PaidBy:      "A",
		Splits:      map[string]string{"A": "10", "B": "10", "C": "10"},
	})
	require.NoError(t, err)

	b, err := l.Balances(id)
	require.NoError(t, err)
	require.Len(t, b, 3)
	assert.True(t, b["A"].Equal(dec("20")), "A=%s", b["A"])
	assert.True(t, b["B"].Equal(dec("-10")), "B=%s", b["B"])
	assert.True(t, b["C"].Equal(dec("-10")), "C=%s", b["C"])
	assert.True(t, b.Total().IsZero())
}

func TestComputeBalancesIncludesPayerWithoutShare(t *testing.T) {
	g := core.Group{Expenses: []core.Expense{{
		Description: "gift",
		Amount:      dec("12"),
		PaidBy:      "Z",
		Splits:      map[core.MemberName]decimal.Decimal{"A": dec("12")},
	}}}
	b := ComputeBalances(g)
	assert.True(t, b["Z"].Equal(dec("12")))
	assert.True(t, b["A"].Equal(dec("-12")))
}

func TestComputeBalancesEmptyGroup(t *testing.T) {
	assert.Empty(t, ComputeBalances(core.Group{}))
}

func TestBalancesUnknownGroup(t *testing.T) {
	_, err := New().Balances(uuid.New())
	assert.ErrorIs(t, err, core.ErrGroupNotFound)
}

// Sum of balances always equals amounts paid minus shares owed, and is zero
// whenever each expense is fully split.
func TestBalancesSumProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	members := []string{"A", "B", "C", "D"}

	for iter := 0; iter < 50; iter++ {
		l := New()
		id := newGroup(t, l, fmt.Sprintf("g%d", iter))
		paid, shared := decimal.Zero, decimal.Zero
		balanced := iter%2 == 0

		for n := 0; n < 1+rng.Intn(6); n++ {
			splits := map[string]string{}
			total := decimal.Zero
			for _, m := range members[:1+rng.Intn(len(members))] {
				share := decimal.New(int64(rng.Intn(10000)), -2)
				splits[m] = share.String()
				total = total.Add(share)
			}
			amount := total
			if !balanced || amount.IsZero() {
				amount = decimal.New(int64(1+rng.Intn(10000)), -2)
			}
			_, err := l.AddExpense(id, ExpenseInput{
				Description: "e",
				Amount:      amount.String(),
				PaidBy:      members[rng.Intn(len(members))],
				Splits:      splits,
			})
			require.NoError(t, err)
			paid = paid.Add(amount)
			shared = shared.Add(total)
		}

		b, err := l.Balances(id)
		require.NoError(t, err)
		assert.True(t, b.Total().Equal(paid.Sub(shared)), "iter %d: total %s want %s", iter, b.Total(), paid.Sub(shared))
		if balanced && paid.Equal(shared) {
			assert.True(t, b.Total().IsZero())
		}
	}
}

func TestSummarizeSortsMembers(t *testing.T) {
	l := New()
	id := newGroup(t, l, "Trip")
	_, err := l.AddExpense(id, ExpenseInput{Description: "x", Amount: "30", PaidBy: "C",
		Splits: map[string]string{"B": "15", "A": "15"}})
	require.NoError(t, err)

	g, _ := l.Group(id)
	s := Summarize(g)
	assert.Equal(t, "Trip", s.Name)
	assert.Equal(t, 1, s.Expenses)
	assert.True(t, s.TotalSpent.Equal(dec("30")))
	assert.True(t, s.Unallocated.IsZero())
	require.Len(t, s.Balances, 3)
	assert.Equal(t, "A", s.Balances[0].Name)
	assert.Equal(t, "B", s.Balances[1].Name)
	assert.Equal(t, "C", s.Balances[2].Name)
}

func TestSummarizeReportsUnallocated(t *testing.T) {
	l := New()
	id := newGroup(t, l, "Trip")
	_, err := l.AddExpense(id, ExpenseInput{Description: "taxi", Amount: "40", PaidBy: "A",
		Splits: map[string]string{"A": "10", "B": "15"}})
	require.NoError(t, err)
	_, err = l.AddExpense(id, ExpenseInput{Description: "bread", Amount: "5", PaidBy: "B",
		Splits: map[string]string{"A": "5"}})
	require.NoError(t, err)

	g, _ := l.Group(id)
	s := Summarize(g)
	assert.True(t, s.Unallocated.Equal(dec("15")), "unallocated=%s", s.Unallocated)

	var sum decimal.Decimal
	for _, row := range s.Balances {
		sum = sum.Add(row.Balance)
	}
	assert.True(t, sum.Equal(s.Unallocated))
}
