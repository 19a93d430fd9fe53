package core

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Description: "dinner",
		Amount:      dec("30"),
		PaidBy:      "A",
		Splits:      map[MemberName]decimal.Decimal{"A": dec("10"), "B": dec("20")},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Description: "", Amount: dec("1"), PaidBy: "A"},
		{Description: "  ", Amount: dec("1"), PaidBy: "A"},
		{Description: "x", Amount: dec("0"), PaidBy: "A"},
		{Description: "x", Amount: dec("-1"), PaidBy: "A"},
		{Description: "x", Amount: dec("1"), PaidBy: ""},
		{Description: "x", Amount: dec("1"), PaidBy: "A", Splits: map[MemberName]decimal.Decimal{"B": dec("-1")}},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestGroupCloneIsDeep(t *testing.T) {
	g := Group{
		ID:      uuid.New(),
		Name:    "Trip",
		Members: []MemberName{"A"},
		Expenses: []Expense{{
			Description: "fuel",
			Amount:      dec("10"),
			PaidBy:      "A",
			Splits:      map[MemberName]decimal.Decimal{"A": dec("10")},
		}},
	}
	c := g.Clone()
	c.Members[0] = "Z"
	c.Expenses[0].Splits["A"] = dec("99")
	if g.Members[0] != "A" {
		t.Fatalf("members aliased")
	}
	if !g.Expenses[0].Splits["A"].Equal(dec("10")) {
		t.Fatalf("splits aliased")
	}
}

func TestTransactionRecordMatches(t *testing.T) {
	rec := TransactionRecord{Inputs: []TxInput{{Amount: "30"}, {Amount: "5"}, {Amount: "garbage"}}}
	if !rec.Matches(dec("30")) {
		t.Fatalf("expected 30 to match")
	}
	if !rec.Matches(dec("30.000")) {
		t.Fatalf("equality is numeric, not textual")
	}
	if rec.Matches(dec("31")) {
		t.Fatalf("31 must not match")
	}
	if rec.Matches(dec("29.99999999")) {
		t.Fatalf("no tolerance is applied")
	}
}

func TestBalancesTotal(t *testing.T) {
	b := Balances{"A": dec("20"), "B": dec("-10"), "C": dec("-10")}
	if !b.Total().IsZero() {
		t.Fatalf("expected zero total, got %s", b.Total())
	}
}
