package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/errs"
)

func pln(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("PLN", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func TestBillingPeriod_NotFoundUntilSaved(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	s.SeedUser(budget.User{ID: userID})

	if _, err := s.BillingPeriod(ctx, userID); err != errs.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	p := budget.BillingPeriod{
		UserID:    userID,
		StartDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
		Status:    budget.PeriodActive,
	}
	if err := s.SaveBillingPeriod(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.BillingPeriod(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.StartDate.Equal(p.StartDate) || got.Status != budget.PeriodActive {
		t.Fatalf("unexpected period: %+v", got)
	}
}

func TestCategories_SortedByOrderAndIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	s.SeedUser(budget.User{ID: userID})

	second := budget.Category{ID: 2, UserID: userID, Name: "B", Type: budget.CategoryVariable, DefaultBudget: pln(t, 100), Order: 2, MonthlyBudgets: map[int]money.Amount{0: pln(t, 500)}}
	first := budget.Category{ID: 1, UserID: userID, Name: "A", Type: budget.CategoryFixed, DefaultBudget: pln(t, 100), Order: 1}
	if _, err := s.CreateCategory(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateCategory(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}

	cats, err := s.Categories(ctx, userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 2 || cats[0].ID != 1 || cats[1].ID != 2 {
		t.Fatalf("expected order-sorted list, got %+v", cats)
	}

	// mutating the returned copy must not leak into the store
	cats[1].MonthlyBudgets[5] = pln(t, 999)
	again, _ := s.Categories(ctx, userID)
	if _, ok := again[1].MonthlyBudgets[5]; ok {
		t.Fatalf("store leaked its backing map")
	}
}

func TestUndoBuffer_SingleSlotOverwrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	s.SeedUser(budget.User{ID: userID})

	tx1 := budget.Transaction{ID: 1, UserID: userID, Kind: budget.KindIncome, Amount: pln(t, 100)}
	tx2 := budget.Transaction{ID: 2, UserID: userID, Kind: budget.KindIncome, Amount: pln(t, 200)}

	if err := s.StashDeleted(ctx, userID, budget.DeletedItem{Transaction: &tx1}); err != nil {
		t.Fatalf("stash: %v", err)
	}
	if err := s.StashDeleted(ctx, userID, budget.DeletedItem{Transaction: &tx2}); err != nil {
		t.Fatalf("stash: %v", err)
	}

	item, ok, err := s.TakeDeleted(ctx, userID)
	if err != nil || !ok {
		t.Fatalf("take: %v ok=%v", err, ok)
	}
	if item.Transaction == nil || item.Transaction.ID != 2 {
		t.Fatalf("expected the second delete in the buffer, got %+v", item)
	}
	if _, ok, _ := s.TakeDeleted(ctx, userID); ok {
		t.Fatalf("buffer should be empty after take")
	}
}

func TestDeleteTransactionsForGoal_RemovesOnlyGoalFlows(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	s.SeedUser(budget.User{ID: userID})

	txs := []budget.Transaction{
		{ID: 1, UserID: userID, Kind: budget.KindGoalDeposit, GoalID: 7, Amount: pln(t, 100)},
		{ID: 2, UserID: userID, Kind: budget.KindCategoryExpense, CategoryID: 1, Amount: pln(t, 50)},
		{ID: 3, UserID: userID, Kind: budget.KindGoalWithdrawal, GoalID: 7, Amount: pln(t, 30)},
	}
	for _, tx := range txs {
		if _, err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	removed, err := s.DeleteTransactionsForGoal(ctx, userID, 7)
	if err != nil {
		t.Fatalf("cascade: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	rest, _ := s.Transactions(ctx, userID)
	if len(rest) != 1 || rest[0].ID != 2 {
		t.Fatalf("unexpected remainder: %+v", rest)
	}
}
