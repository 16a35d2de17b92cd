package budget

import (
	"testing"
	"time"

	"github.com/govalues/money"
)

func amt(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("PLN", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func TestBudgetForFallback(t *testing.T) {
	c := Category{
		Name:          "Groceries",
		DefaultBudget: amt(t, 30000),
		MonthlyBudgets: map[int]money.Amount{
			0: amt(t, 50000),
		},
	}
	if got, _ := c.BudgetFor(0).MinorUnits(); got != 50000 {
		t.Fatalf("january override = %d, want 50000", got)
	}
	if got, _ := c.BudgetFor(1).MinorUnits(); got != 30000 {
		t.Fatalf("february fallback = %d, want 30000", got)
	}
}

func TestKindFlows(t *testing.T) {
	cases := []struct {
		kind         Kind
		expense      bool
		budgetIncome bool
	}{
		{KindCategoryExpense, true, false},
		{KindGoalDeposit, true, false},
		{KindIncome, false, true},
		{KindGoalWithdrawal, false, false},
	}
	for _, tc := range cases {
		tx := Transaction{Kind: tc.kind}
		if tx.IsExpense() != tc.expense {
			t.Fatalf("%s IsExpense = %v", tc.kind, tx.IsExpense())
		}
		if tx.IsBudgetIncome() != tc.budgetIncome {
			t.Fatalf("%s IsBudgetIncome = %v", tc.kind, tx.IsBudgetIncome())
		}
	}
	if Kind("transfer").Valid() {
		t.Fatal("unknown kind reported valid")
	}
}

func TestPeriodContains(t *testing.T) {
	p := BillingPeriod{
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	if !p.Contains(p.StartDate) || !p.Contains(p.EndDate) {
		t.Fatal("endpoints must be inside the period")
	}
	if p.Contains(p.EndDate.AddDate(0, 0, 1)) {
		t.Fatal("day after end must be outside the period")
	}
}
