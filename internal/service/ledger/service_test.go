package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/errs"
	"github.com/mkowalski/budgetd/internal/storage/memory"
)

func amt(t *testing.T, minor int64) money.Amount {
	t.Helper()
	a, err := money.NewAmountFromMinorUnits("PLN", minor)
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	return a
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// fixed mid-January clock; the default billing period is 2026-01-01..31
var testToday = d(2026, 1, 15)

func setup(t *testing.T) (context.Context, *memory.Store, Service, uuid.UUID) {
	t.Helper()
	store := memory.New()
	user := budget.User{ID: uuid.New()}
	store.SeedUser(user)
	svc := New(store, store, WithClock(func() time.Time { return testToday }))
	return context.Background(), store, svc, user.ID
}

func addGoal(t *testing.T, ctx context.Context, svc Service, userID uuid.UUID, name string, targetMinor int64) budget.Goal {
	t.Helper()
	g, err := svc.AddGoal(ctx, budget.Goal{UserID: userID, Name: name, Target: amt(t, targetMinor), Priority: budget.PriorityA})
	if err != nil {
		t.Fatalf("AddGoal: %v", err)
	}
	return g
}

func addCategory(t *testing.T, ctx context.Context, svc Service, userID uuid.UUID, name string, budgetMinor int64) budget.Category {
	t.Helper()
	c, err := svc.AddCategory(ctx, budget.Category{
		UserID:        userID,
		Name:          name,
		Type:          budget.CategoryVariable,
		DefaultBudget: amt(t, budgetMinor),
	})
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	return c
}

func TestDefaultPeriodIsCurrentMonth(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	p, err := svc.Period(ctx, userID)
	if err != nil {
		t.Fatalf("Period: %v", err)
	}
	if !p.StartDate.Equal(d(2026, 1, 1)) || !p.EndDate.Equal(d(2026, 1, 31)) {
		t.Fatalf("default period = %v..%v", p.StartDate, p.EndDate)
	}
	if p.Status != budget.PeriodActive {
		t.Fatalf("default status = %q", p.Status)
	}
}

func TestSetBillingPeriodValidation(t *testing.T) {
	ctx, _, svc, userID := setup(t)

	if _, err := svc.SetBillingPeriod(ctx, userID, d(2026, 2, 1), time.Time{}); err == nil {
		t.Fatal("empty end date accepted")
	}
	_, err := svc.SetBillingPeriod(ctx, userID, d(2026, 2, 10), d(2026, 2, 1))
	var verrs errs.ValidationErrors
	if !errors.As(err, &verrs) || verrs[0].Field != "end_date" {
		t.Fatalf("expected end_date validation error, got %v", err)
	}

	p, err := svc.SetBillingPeriod(ctx, userID, d(2026, 2, 1), d(2026, 2, 28))
	if err != nil {
		t.Fatalf("SetBillingPeriod: %v", err)
	}
	if !p.StartDate.Equal(d(2026, 2, 1)) || !p.EndDate.Equal(d(2026, 2, 28)) {
		t.Fatalf("bounds = %v..%v", p.StartDate, p.EndDate)
	}
}

func TestSetBillingPeriodRejectedWhenClosed(t *testing.T) {
	ctx, store, svc, userID := setup(t)
	if err := store.SaveBillingPeriod(ctx, budget.BillingPeriod{
		UserID: userID, StartDate: d(2026, 1, 1), EndDate: d(2026, 1, 31), Status: budget.PeriodClosed,
	}); err != nil {
		t.Fatalf("seed period: %v", err)
	}
	_, err := svc.SetBillingPeriod(ctx, userID, d(2026, 2, 1), d(2026, 2, 28))
	if !errors.Is(err, errs.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}
}

func TestGoalAccounting(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	g := addGoal(t, ctx, svc, userID, "Vacation", 1_000_00)

	for _, minor := range []int64{100_00, 50_00, 30_00} {
		if _, err := svc.AddTransaction(ctx, budget.Transaction{
			UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, minor),
		}); err != nil {
			t.Fatalf("deposit: %v", err)
		}
	}
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalWithdrawal, GoalID: g.ID, Amount: amt(t, 60_00),
	}); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}

	current, err := svc.GoalCurrentMinor(ctx, userID, g.ID)
	if err != nil {
		t.Fatalf("GoalCurrentMinor: %v", err)
	}
	if current != 120_00 {
		t.Fatalf("goal current = %d, want 12000", current)
	}
}

func TestWithdrawalCannotExceedBalance(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	g := addGoal(t, ctx, svc, userID, "Emergency", 500_00)
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 40_00),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	_, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalWithdrawal, GoalID: g.ID, Amount: amt(t, 50_00),
	})
	if !errors.Is(err, errs.ErrGoalBalance) {
		t.Fatalf("expected ErrGoalBalance, got %v", err)
	}
}

func TestArchivedGoalAcceptsOnlyWithdrawals(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	g := addGoal(t, ctx, svc, userID, "Old goal", 200_00)
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 100_00),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.ArchiveGoal(ctx, userID, g.ID); err != nil {
		t.Fatalf("ArchiveGoal: %v", err)
	}

	_, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 10_00),
	})
	var verrs errs.ValidationErrors
	if !errors.As(err, &verrs) || !errors.Is(err, errs.ErrGoalArchived) {
		t.Fatalf("expected archived-goal validation error, got %v", err)
	}

	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalWithdrawal, GoalID: g.ID, Amount: amt(t, 10_00),
	}); err != nil {
		t.Fatalf("withdrawal from archived goal rejected: %v", err)
	}
}

func TestAddTransactionCollectsAllErrors(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	g := addGoal(t, ctx, svc, userID, "Archived", 100_00)
	if _, err := svc.ArchiveGoal(ctx, userID, g.ID); err != nil {
		t.Fatalf("ArchiveGoal: %v", err)
	}
	if _, _, err := svc.ClosePeriodAndStartNew(ctx, userID); err != nil {
		t.Fatalf("close: %v", err)
	}

	// dated into the closed window AND a deposit into an archived goal:
	// both rules must be reported together
	_, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 10), Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 10_00),
	})
	var verrs errs.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("expected 2 collected errors, got %d: %v", len(verrs), verrs)
	}
	if !errors.Is(err, errs.ErrPeriodClosed) || !errors.Is(err, errs.ErrGoalArchived) {
		t.Fatalf("missing sentinel in %v", verrs)
	}
}

func TestDeleteUndoRoundTrip(t *testing.T) {
	ctx, store, svc, userID := setup(t)
	c := addCategory(t, ctx, svc, userID, "Groceries", 500_00)
	tx, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindCategoryExpense,
		CategoryID: c.ID, Description: "weekly shop", Amount: amt(t, 123_45),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	if err := svc.DeleteTransaction(ctx, userID, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	restored, err := svc.UndoLastDelete(ctx, userID)
	if err != nil || !restored {
		t.Fatalf("UndoLastDelete = (%v, %v)", restored, err)
	}

	txs, err := store.Transactions(ctx, userID)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction after undo, got %d", len(txs))
	}
	got := txs[0]
	if got.ID != tx.ID || got.Description != tx.Description || got.AmountMinor() != tx.AmountMinor() || !got.Date.Equal(tx.Date) {
		t.Fatalf("restored transaction differs: %+v vs %+v", got, tx)
	}

	// second consecutive undo is a no-op
	restored, err = svc.UndoLastDelete(ctx, userID)
	if err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if restored {
		t.Fatal("second undo restored something from an empty buffer")
	}
}

func TestDeleteGoalCascadesAndUndoes(t *testing.T) {
	ctx, store, svc, userID := setup(t)
	c := addCategory(t, ctx, svc, userID, "Bills", 300_00)
	g := addGoal(t, ctx, svc, userID, "Car", 5_000_00)
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 200_00),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindCategoryExpense, CategoryID: c.ID, Amount: amt(t, 80_00),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	if err := svc.DeleteGoal(ctx, userID, g.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	txs, _ := store.Transactions(ctx, userID)
	if len(txs) != 1 || txs[0].Kind != budget.KindCategoryExpense {
		t.Fatalf("cascade left %d transactions", len(txs))
	}
	goals, _ := store.Goals(ctx, userID)
	if len(goals) != 0 {
		t.Fatalf("goal not removed")
	}

	restored, err := svc.UndoLastDelete(ctx, userID)
	if err != nil || !restored {
		t.Fatalf("undo = (%v, %v)", restored, err)
	}
	goals, _ = store.Goals(ctx, userID)
	txs, _ = store.Transactions(ctx, userID)
	if len(goals) != 1 || goals[0].ID != g.ID {
		t.Fatalf("goal not restored: %+v", goals)
	}
	if len(txs) != 2 {
		t.Fatalf("cascaded transactions not restored, have %d", len(txs))
	}
}

func TestClosePeriodSnapshotAndRollover(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	c := addCategory(t, ctx, svc, userID, "Groceries", 500_00)
	g := addGoal(t, ctx, svc, userID, "Savings", 10_000_00)

	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 5), Kind: budget.KindCategoryExpense, CategoryID: c.ID, Amount: amt(t, 150_00),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 6), Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 100_00),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 7), Kind: budget.KindIncome, Source: "Salary", Amount: amt(t, 4_000_00),
	}); err != nil {
		t.Fatalf("income: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 8), Kind: budget.KindGoalWithdrawal, GoalID: g.ID, Amount: amt(t, 30_00),
	}); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}

	snap, next, err := svc.ClosePeriodAndStartNew(ctx, userID)
	if err != nil {
		t.Fatalf("ClosePeriodAndStartNew: %v", err)
	}
	if snap.ID != 1 {
		t.Fatalf("snapshot id = %d", snap.ID)
	}
	// expenses include the goal deposit; income excludes the withdrawal
	if snap.TotalExpensesMinor != 250_00 {
		t.Fatalf("snapshot expenses = %d", snap.TotalExpensesMinor)
	}
	if snap.TotalIncomeMinor != 4_000_00 {
		t.Fatalf("snapshot income = %d", snap.TotalIncomeMinor)
	}
	if snap.BalanceMinor != 3_750_00 {
		t.Fatalf("snapshot balance = %d", snap.BalanceMinor)
	}
	if snap.TransactionCount != 4 {
		t.Fatalf("snapshot count = %d", snap.TransactionCount)
	}
	if len(snap.CategoryTotals) != 1 || snap.CategoryTotals[0].SpentMinor != 150_00 || snap.CategoryTotals[0].BudgetMinor != 500_00 {
		t.Fatalf("category totals = %+v", snap.CategoryTotals)
	}

	// new period starts the day after the old end
	if !next.StartDate.Equal(d(2026, 2, 1)) || !next.EndDate.Equal(d(2026, 2, 28)) {
		t.Fatalf("next period = %v..%v", next.StartDate, next.EndDate)
	}
	if next.Status != budget.PeriodActive {
		t.Fatalf("next status = %q", next.Status)
	}
}

func TestClosedPeriodIsImmutable(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	c := addCategory(t, ctx, svc, userID, "Misc", 100_00)
	tx, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 10), Kind: budget.KindCategoryExpense, CategoryID: c.ID, Amount: amt(t, 20_00),
	})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if _, _, err := svc.ClosePeriodAndStartNew(ctx, userID); err != nil {
		t.Fatalf("close: %v", err)
	}

	newAmt := amt(t, 25_00)
	if _, err := svc.UpdateTransaction(ctx, userID, tx.ID, TransactionPatch{Amount: &newAmt}); !errors.Is(err, errs.ErrPeriodClosed) {
		t.Fatalf("update in closed period: %v", err)
	}
	if err := svc.DeleteTransaction(ctx, userID, tx.ID); !errors.Is(err, errs.ErrPeriodClosed) {
		t.Fatalf("delete in closed period: %v", err)
	}
	_, err = svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: d(2026, 1, 20), Kind: budget.KindCategoryExpense, CategoryID: c.ID, Amount: amt(t, 5_00),
	})
	if !errors.Is(err, errs.ErrPeriodClosed) {
		t.Fatalf("add into closed period: %v", err)
	}
}

func TestUpdateTransactionRevalidates(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	g := addGoal(t, ctx, svc, userID, "Fund", 1_000_00)
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 100_00),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	wd, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalWithdrawal, GoalID: g.ID, Amount: amt(t, 60_00),
	})
	if err != nil {
		t.Fatalf("withdrawal: %v", err)
	}

	// raising the withdrawal above the deposit total must fail; the
	// old withdrawal amount is excluded from the balance check
	over := amt(t, 150_00)
	if _, err := svc.UpdateTransaction(ctx, userID, wd.ID, TransactionPatch{Amount: &over}); !errors.Is(err, errs.ErrGoalBalance) {
		t.Fatalf("expected ErrGoalBalance, got %v", err)
	}
	// raising it to exactly the available balance is fine
	exact := amt(t, 100_00)
	if _, err := svc.UpdateTransaction(ctx, userID, wd.ID, TransactionPatch{Amount: &exact}); err != nil {
		t.Fatalf("exact-balance edit rejected: %v", err)
	}
}

func TestReorderCategory(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	a := addCategory(t, ctx, svc, userID, "A", 0)
	b := addCategory(t, ctx, svc, userID, "B", 0)
	c := addCategory(t, ctx, svc, userID, "C", 0)

	cats, err := svc.ReorderCategory(ctx, userID, b.ID, DirectionUp)
	if err != nil {
		t.Fatalf("ReorderCategory: %v", err)
	}
	if cats[0].ID != b.ID || cats[1].ID != a.ID || cats[2].ID != c.ID {
		t.Fatalf("unexpected order: %v %v %v", cats[0].Name, cats[1].Name, cats[2].Name)
	}
	for i, cat := range cats {
		if cat.Order != i+1 {
			t.Fatalf("order not dense: %+v", cats)
		}
	}

	// moving the first category up is a no-op
	cats, err = svc.ReorderCategory(ctx, userID, b.ID, DirectionUp)
	if err != nil {
		t.Fatalf("ReorderCategory no-op: %v", err)
	}
	if cats[0].ID != b.ID {
		t.Fatalf("no-op changed order: %+v", cats)
	}
}

func TestArchiveCategoryReportsHistory(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	used := addCategory(t, ctx, svc, userID, "Used", 100_00)
	fresh := addCategory(t, ctx, svc, userID, "Fresh", 100_00)
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindCategoryExpense, CategoryID: used.ID, Amount: amt(t, 10_00),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	had, err := svc.ArchiveCategory(ctx, userID, used.ID)
	if err != nil || !had {
		t.Fatalf("archive used = (%v, %v)", had, err)
	}
	had, err = svc.ArchiveCategory(ctx, userID, fresh.ID)
	if err != nil || had {
		t.Fatalf("archive fresh = (%v, %v)", had, err)
	}
}

func TestCategoryIDsAndOrdersAreSequential(t *testing.T) {
	ctx, _, svc, userID := setup(t)
	a := addCategory(t, ctx, svc, userID, "First", 0)
	b := addCategory(t, ctx, svc, userID, "Second", 0)
	if a.ID != 1 || b.ID != 2 || a.Order != 1 || b.Order != 2 {
		t.Fatalf("ids/orders: %+v %+v", a, b)
	}
}

func TestApplyGoalTransitionsRechecks(t *testing.T) {
	ctx, store, svc, userID := setup(t)
	g := addGoal(t, ctx, svc, userID, "Target", 100_00)
	if _, err := svc.AddTransaction(ctx, budget.Transaction{
		UserID: userID, Date: testToday, Kind: budget.KindGoalDeposit, GoalID: g.ID, Amount: amt(t, 100_00),
	}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	err := svc.ApplyGoalTransitions(ctx, userID, []budget.GoalTransition{
		{GoalID: g.ID, From: budget.GoalActive, To: budget.GoalArchived},
	})
	if err != nil {
		t.Fatalf("ApplyGoalTransitions: %v", err)
	}
	goals, _ := store.Goals(ctx, userID)
	if goals[0].Status != budget.GoalArchived {
		t.Fatalf("status = %q, want archived", goals[0].Status)
	}

	// a stale transition for a goal below target is skipped
	g2 := addGoal(t, ctx, svc, userID, "Under", 100_00)
	err = svc.ApplyGoalTransitions(ctx, userID, []budget.GoalTransition{
		{GoalID: g2.ID, From: budget.GoalActive, To: budget.GoalArchived},
	})
	if err != nil {
		t.Fatalf("ApplyGoalTransitions: %v", err)
	}
	goals, _ = store.Goals(ctx, userID)
	for _, gg := range goals {
		if gg.ID == g2.ID && gg.Status != budget.GoalActive {
			t.Fatalf("stale transition applied: %+v", gg)
		}
	}
}
