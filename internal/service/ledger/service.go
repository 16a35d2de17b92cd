// Package ledger implements the mutation side of the budget engine:
// billing-period lifecycle, category/goal/transaction CRUD with their
// validation gates, and the single-slot undo buffer. Every mutator
// validates fully before writing, so state is all-or-nothing.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/dates"
	"github.com/mkowalski/budgetd/internal/errs"
	"github.com/mkowalski/budgetd/internal/meta"
	"github.com/mkowalski/budgetd/internal/slug"
)

// Repo defines the read operations the service needs.
type Repo interface {
	BillingPeriod(ctx context.Context, userID uuid.UUID) (budget.BillingPeriod, error)
	Categories(ctx context.Context, userID uuid.UUID) ([]budget.Category, error)
	Goals(ctx context.Context, userID uuid.UUID) ([]budget.Goal, error)
	Transactions(ctx context.Context, userID uuid.UUID) ([]budget.Transaction, error)
	ClosedPeriods(ctx context.Context, userID uuid.UUID) ([]budget.ClosedPeriodSnapshot, error)
}

// Writer defines the write operations the service needs.
type Writer interface {
	SaveBillingPeriod(ctx context.Context, p budget.BillingPeriod) error
	CreateCategory(ctx context.Context, c budget.Category) (budget.Category, error)
	UpdateCategory(ctx context.Context, c budget.Category) (budget.Category, error)
	ReplaceCategories(ctx context.Context, userID uuid.UUID, cats []budget.Category) error
	CreateGoal(ctx context.Context, g budget.Goal) (budget.Goal, error)
	UpdateGoal(ctx context.Context, g budget.Goal) (budget.Goal, error)
	DeleteGoal(ctx context.Context, userID uuid.UUID, goalID int64) error
	CreateTransaction(ctx context.Context, t budget.Transaction) (budget.Transaction, error)
	UpdateTransaction(ctx context.Context, t budget.Transaction) (budget.Transaction, error)
	DeleteTransaction(ctx context.Context, userID uuid.UUID, txID int64) error
	DeleteTransactionsForGoal(ctx context.Context, userID uuid.UUID, goalID int64) ([]budget.Transaction, error)
	AppendClosedPeriod(ctx context.Context, snap budget.ClosedPeriodSnapshot) error
	StashDeleted(ctx context.Context, userID uuid.UUID, item budget.DeletedItem) error
	TakeDeleted(ctx context.Context, userID uuid.UUID) (budget.DeletedItem, bool, error)
}

// Notifier receives period-closed events. Implementations must not
// block the close path; failures are logged by the caller, never
// surfaced to the user.
type Notifier interface {
	PeriodClosed(ctx context.Context, snap budget.ClosedPeriodSnapshot) error
}

// CategoryPatch carries the mutable category fields; nil means keep.
type CategoryPatch struct {
	Name           *string
	Icon           *string
	Type           *budget.CategoryType
	DefaultBudget  *money.Amount
	MonthlyBudgets map[int]money.Amount
}

// GoalPatch carries the mutable goal fields; nil means keep.
type GoalPatch struct {
	Name     *string
	Target   *money.Amount
	Priority *budget.GoalPriority
	Metadata meta.Metadata
}

// TransactionPatch carries the mutable transaction fields; nil means keep.
type TransactionPatch struct {
	Date        *time.Time
	Kind        *budget.Kind
	CategoryID  *int64
	GoalID      *int64
	Source      *string
	Description *string
	Amount      *money.Amount
	Metadata    meta.Metadata
}

// Direction moves a category one slot in display order.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Service exposes every mutation entry point of the engine.
type Service interface {
	Period(ctx context.Context, userID uuid.UUID) (budget.BillingPeriod, error)
	SetBillingPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (budget.BillingPeriod, error)
	ClosePeriodAndStartNew(ctx context.Context, userID uuid.UUID) (budget.ClosedPeriodSnapshot, budget.BillingPeriod, error)
	ClosedPeriods(ctx context.Context, userID uuid.UUID) ([]budget.ClosedPeriodSnapshot, error)

	AddCategory(ctx context.Context, c budget.Category) (budget.Category, error)
	UpdateCategory(ctx context.Context, userID uuid.UUID, id int64, patch CategoryPatch) (budget.Category, error)
	ArchiveCategory(ctx context.Context, userID uuid.UUID, id int64) (hadTransactions bool, err error)
	ReorderCategory(ctx context.Context, userID uuid.UUID, id int64, dir Direction) ([]budget.Category, error)

	AddGoal(ctx context.Context, g budget.Goal) (budget.Goal, error)
	UpdateGoal(ctx context.Context, userID uuid.UUID, id int64, patch GoalPatch) (budget.Goal, error)
	ArchiveGoal(ctx context.Context, userID uuid.UUID, id int64) (budget.Goal, error)
	DeleteGoal(ctx context.Context, userID uuid.UUID, id int64) error
	GoalCurrentMinor(ctx context.Context, userID uuid.UUID, goalID int64) (int64, error)
	ApplyGoalTransitions(ctx context.Context, userID uuid.UUID, transitions []budget.GoalTransition) error

	AddTransaction(ctx context.Context, t budget.Transaction) (budget.Transaction, error)
	UpdateTransaction(ctx context.Context, userID uuid.UUID, id int64, patch TransactionPatch) (budget.Transaction, error)
	DeleteTransaction(ctx context.Context, userID uuid.UUID, id int64) error
	UndoLastDelete(ctx context.Context, userID uuid.UUID) (bool, error)
}

type service struct {
	repo     Repo
	writer   Writer
	notifier Notifier
	now      func() time.Time
}

// Option configures the service.
type Option func(*service)

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithNotifier attaches a period-closed event publisher.
func WithNotifier(n Notifier) Option { return func(s *service) { s.notifier = n } }

func New(repo Repo, writer Writer, opts ...Option) Service {
	s := &service{repo: repo, writer: writer, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// --- Billing period ---

// Period returns the user's billing period, creating and persisting the
// default (current calendar month, active) when none is stored yet.
func (s *service) Period(ctx context.Context, userID uuid.UUID) (budget.BillingPeriod, error) {
	if userID == uuid.Nil {
		return budget.BillingPeriod{}, errs.ErrInvalid
	}
	p, err := s.repo.BillingPeriod(ctx, userID)
	if err == nil {
		return p, nil
	}
	if err != errs.ErrNotFound {
		return budget.BillingPeriod{}, err
	}
	start, end := dates.CurrentMonthBounds(s.now())
	p = budget.BillingPeriod{UserID: userID, StartDate: start, EndDate: end, Status: budget.PeriodActive}
	if err := s.writer.SaveBillingPeriod(ctx, p); err != nil {
		return budget.BillingPeriod{}, err
	}
	return p, nil
}

func (s *service) SetBillingPeriod(ctx context.Context, userID uuid.UUID, start, end time.Time) (budget.BillingPeriod, error) {
	p, err := s.Period(ctx, userID)
	if err != nil {
		return budget.BillingPeriod{}, err
	}
	if p.Status == budget.PeriodClosed {
		return budget.BillingPeriod{}, errs.ErrPeriodClosed
	}
	var verrs errs.ValidationErrors
	if end.IsZero() {
		verrs = append(verrs, errs.ValidationError{Field: "end_date", Message: "end date is required", Severity: errs.SeverityError})
	} else if dates.Normalize(end).Before(dates.Normalize(start)) {
		verrs = append(verrs, errs.ValidationError{Field: "end_date", Message: "end date cannot be earlier than start date", Severity: errs.SeverityError})
	}
	if len(verrs) > 0 {
		return budget.BillingPeriod{}, verrs
	}
	p.StartDate = dates.Normalize(start)
	p.EndDate = dates.Normalize(end)
	p.Status = budget.PeriodActive
	if err := s.writer.SaveBillingPeriod(ctx, p); err != nil {
		return budget.BillingPeriod{}, err
	}
	return p, nil
}

// ClosePeriodAndStartNew freezes the active period into an immutable
// snapshot and opens the next window: starting the day after the old
// end, running to the last day of that month. Snapshot totals are
// computed once, here, and never again.
func (s *service) ClosePeriodAndStartNew(ctx context.Context, userID uuid.UUID) (budget.ClosedPeriodSnapshot, budget.BillingPeriod, error) {
	p, err := s.Period(ctx, userID)
	if err != nil {
		return budget.ClosedPeriodSnapshot{}, budget.BillingPeriod{}, err
	}
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return budget.ClosedPeriodSnapshot{}, budget.BillingPeriod{}, err
	}
	cats, err := s.repo.Categories(ctx, userID)
	if err != nil {
		return budget.ClosedPeriodSnapshot{}, budget.BillingPeriod{}, err
	}
	closed, err := s.repo.ClosedPeriods(ctx, userID)
	if err != nil {
		return budget.ClosedPeriodSnapshot{}, budget.BillingPeriod{}, err
	}

	var totalExpenses, totalIncome int64
	var count int
	spentByCategory := make(map[int64]int64)
	for _, t := range txs {
		if !p.Contains(t.Date) {
			continue
		}
		count++
		if t.IsExpense() {
			totalExpenses += t.AmountMinor()
			if t.Kind == budget.KindCategoryExpense {
				spentByCategory[t.CategoryID] += t.AmountMinor()
			}
		}
		if t.IsBudgetIncome() {
			totalIncome += t.AmountMinor()
		}
	}

	periodMonth := int(p.StartDate.Month()) - 1
	totals := make([]budget.CategoryTotal, 0, len(cats))
	for _, c := range cats {
		budgetMinor, _ := c.BudgetFor(periodMonth).MinorUnits()
		totals = append(totals, budget.CategoryTotal{
			CategoryID:  c.ID,
			Name:        c.Name,
			SpentMinor:  spentByCategory[c.ID],
			BudgetMinor: budgetMinor,
		})
	}

	snap := budget.ClosedPeriodSnapshot{
		ID:                 int64(len(closed)) + 1,
		UserID:             userID,
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		ClosedAt:           s.now().UTC(),
		BalanceMinor:       totalIncome - totalExpenses,
		TotalExpensesMinor: totalExpenses,
		TotalIncomeMinor:   totalIncome,
		CategoryTotals:     totals,
		TransactionCount:   count,
	}
	if err := s.writer.AppendClosedPeriod(ctx, snap); err != nil {
		return budget.ClosedPeriodSnapshot{}, budget.BillingPeriod{}, err
	}

	start, end := dates.NextPeriodBounds(p.EndDate)
	next := budget.BillingPeriod{UserID: userID, StartDate: start, EndDate: end, Status: budget.PeriodActive}
	if err := s.writer.SaveBillingPeriod(ctx, next); err != nil {
		return budget.ClosedPeriodSnapshot{}, budget.BillingPeriod{}, err
	}
	if s.notifier != nil {
		// best effort; close already committed
		_ = s.notifier.PeriodClosed(ctx, snap)
	}
	return snap, next, nil
}

func (s *service) ClosedPeriods(ctx context.Context, userID uuid.UUID) ([]budget.ClosedPeriodSnapshot, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ClosedPeriods(ctx, userID)
}

// --- Categories ---

func (s *service) AddCategory(ctx context.Context, c budget.Category) (budget.Category, error) {
	if c.UserID == uuid.Nil {
		return budget.Category{}, errs.ErrInvalid
	}
	var verrs errs.ValidationErrors
	if c.Name == "" {
		verrs = append(verrs, errs.ValidationError{Field: "name", Message: "name is required", Severity: errs.SeverityError})
	}
	if c.Icon != "" && !slug.IsSlug(c.Icon) {
		verrs = append(verrs, errs.ValidationError{Field: "icon", Message: "icon must be a short lowercase code", Severity: errs.SeverityError})
	}
	switch c.Type {
	case budget.CategoryFixed, budget.CategoryVariable, budget.CategoryOccasional:
	default:
		verrs = append(verrs, errs.ValidationError{Field: "type", Message: "type must be fixed, variable or occasional", Severity: errs.SeverityError})
	}
	if len(verrs) > 0 {
		return budget.Category{}, verrs
	}
	existing, err := s.repo.Categories(ctx, c.UserID)
	if err != nil {
		return budget.Category{}, err
	}
	var maxID int64
	var maxOrder int
	for _, ec := range existing {
		if ec.ID > maxID {
			maxID = ec.ID
		}
		if ec.Order > maxOrder {
			maxOrder = ec.Order
		}
	}
	c.ID = maxID + 1
	c.Order = maxOrder + 1
	c.Archived = false
	return s.writer.CreateCategory(ctx, c)
}

func (s *service) UpdateCategory(ctx context.Context, userID uuid.UUID, id int64, patch CategoryPatch) (budget.Category, error) {
	c, err := s.categoryByID(ctx, userID, id)
	if err != nil {
		return budget.Category{}, err
	}
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Icon != nil {
		if *patch.Icon != "" && !slug.IsSlug(*patch.Icon) {
			return budget.Category{}, errs.ValidationErrors{{Field: "icon", Message: "icon must be a short lowercase code", Severity: errs.SeverityError}}
		}
		c.Icon = *patch.Icon
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.DefaultBudget != nil {
		c.DefaultBudget = *patch.DefaultBudget
	}
	if patch.MonthlyBudgets != nil {
		c.MonthlyBudgets = patch.MonthlyBudgets
	}
	return s.writer.UpdateCategory(ctx, c)
}

// ArchiveCategory soft-hides the category from active views. It also
// reports whether historical transactions reference it, so the caller
// can warn before confirming; archiving is always allowed.
func (s *service) ArchiveCategory(ctx context.Context, userID uuid.UUID, id int64) (bool, error) {
	c, err := s.categoryByID(ctx, userID, id)
	if err != nil {
		return false, err
	}
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return false, err
	}
	had := false
	for _, t := range txs {
		if t.Kind == budget.KindCategoryExpense && t.CategoryID == id {
			had = true
			break
		}
	}
	c.Archived = true
	if _, err := s.writer.UpdateCategory(ctx, c); err != nil {
		return false, err
	}
	return had, nil
}

// ReorderCategory swaps the category with its neighbour in the given
// direction and renormalizes all orders to a dense 1..N sequence. A
// move past either end is a no-op.
func (s *service) ReorderCategory(ctx context.Context, userID uuid.UUID, id int64, dir Direction) ([]budget.Category, error) {
	if dir != DirectionUp && dir != DirectionDown {
		return nil, errs.ErrInvalid
	}
	cats, err := s.repo.Categories(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range cats {
		if cats[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, errs.ErrNotFound
	}
	target := idx - 1
	if dir == DirectionDown {
		target = idx + 1
	}
	if target < 0 || target >= len(cats) {
		return cats, nil
	}
	cats[idx], cats[target] = cats[target], cats[idx]
	for i := range cats {
		cats[i].Order = i + 1
	}
	if err := s.writer.ReplaceCategories(ctx, userID, cats); err != nil {
		return nil, err
	}
	return cats, nil
}

func (s *service) categoryByID(ctx context.Context, userID uuid.UUID, id int64) (budget.Category, error) {
	cats, err := s.repo.Categories(ctx, userID)
	if err != nil {
		return budget.Category{}, err
	}
	for _, c := range cats {
		if c.ID == id {
			return c, nil
		}
	}
	return budget.Category{}, errs.ErrNotFound
}

// --- Goals ---

func (s *service) AddGoal(ctx context.Context, g budget.Goal) (budget.Goal, error) {
	if g.UserID == uuid.Nil {
		return budget.Goal{}, errs.ErrInvalid
	}
	var verrs errs.ValidationErrors
	if g.Name == "" {
		verrs = append(verrs, errs.ValidationError{Field: "name", Message: "name is required", Severity: errs.SeverityError})
	}
	switch g.Priority {
	case budget.PriorityA, budget.PriorityB, budget.PriorityC:
	default:
		verrs = append(verrs, errs.ValidationError{Field: "priority", Message: "priority must be A, B or C", Severity: errs.SeverityError})
	}
	if err := g.Metadata.Validate(); err != nil {
		verrs = append(verrs, errs.ValidationError{Field: "metadata", Message: err.Error(), Severity: errs.SeverityError})
	}
	if len(verrs) > 0 {
		return budget.Goal{}, verrs
	}
	goals, err := s.repo.Goals(ctx, g.UserID)
	if err != nil {
		return budget.Goal{}, err
	}
	var maxID int64
	for _, eg := range goals {
		if eg.ID > maxID {
			maxID = eg.ID
		}
	}
	g.ID = maxID + 1
	g.Status = budget.GoalActive
	return s.writer.CreateGoal(ctx, g)
}

func (s *service) UpdateGoal(ctx context.Context, userID uuid.UUID, id int64, patch GoalPatch) (budget.Goal, error) {
	g, err := s.goalByID(ctx, userID, id)
	if err != nil {
		return budget.Goal{}, err
	}
	if patch.Name != nil {
		g.Name = *patch.Name
	}
	if patch.Target != nil {
		g.Target = *patch.Target
	}
	if patch.Priority != nil {
		g.Priority = *patch.Priority
	}
	if patch.Metadata != nil {
		if err := patch.Metadata.Validate(); err != nil {
			return budget.Goal{}, errs.ValidationErrors{{Field: "metadata", Message: err.Error(), Severity: errs.SeverityError}}
		}
		g.Metadata = patch.Metadata
	}
	return s.writer.UpdateGoal(ctx, g)
}

func (s *service) ArchiveGoal(ctx context.Context, userID uuid.UUID, id int64) (budget.Goal, error) {
	g, err := s.goalByID(ctx, userID, id)
	if err != nil {
		return budget.Goal{}, err
	}
	g.Status = budget.GoalArchived
	return s.writer.UpdateGoal(ctx, g)
}

// DeleteGoal removes the goal and cascades over its transactions. Both
// land in the undo buffer as one item, so a single undo restores the
// goal together with its history.
func (s *service) DeleteGoal(ctx context.Context, userID uuid.UUID, id int64) error {
	g, err := s.goalByID(ctx, userID, id)
	if err != nil {
		return err
	}
	removed, err := s.writer.DeleteTransactionsForGoal(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.writer.StashDeleted(ctx, userID, budget.DeletedItem{Goal: &g, GoalTransactions: removed}); err != nil {
		return err
	}
	return s.writer.DeleteGoal(ctx, userID, id)
}

// GoalCurrentMinor derives the goal balance from the transaction log:
// deposits minus withdrawals, in minor units. Never cached.
func (s *service) GoalCurrentMinor(ctx context.Context, userID uuid.UUID, goalID int64) (int64, error) {
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return 0, err
	}
	return goalCurrent(txs, goalID, 0), nil
}

// goalCurrent sums deposits minus withdrawals for a goal, skipping the
// transaction with id exclude (used when re-validating an edit).
func goalCurrent(txs []budget.Transaction, goalID, exclude int64) int64 {
	var current int64
	for _, t := range txs {
		if t.GoalID != goalID || (exclude != 0 && t.ID == exclude) {
			continue
		}
		switch t.Kind {
		case budget.KindGoalDeposit:
			current += t.AmountMinor()
		case budget.KindGoalWithdrawal:
			current -= t.AmountMinor()
		}
	}
	return current
}

// ApplyGoalTransitions persists status flips detected by a prior
// enriched read. Each transition is re-checked against current state,
// so a stale transition (goal already archived, or balance dropped
// below target in between) is skipped rather than applied.
func (s *service) ApplyGoalTransitions(ctx context.Context, userID uuid.UUID, transitions []budget.GoalTransition) error {
	if len(transitions) == 0 {
		return nil
	}
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return err
	}
	for _, tr := range transitions {
		g, err := s.goalByID(ctx, userID, tr.GoalID)
		if err != nil {
			if err == errs.ErrNotFound {
				continue
			}
			return err
		}
		if g.Status != budget.GoalActive || tr.To != budget.GoalArchived {
			continue
		}
		target, _ := g.Target.MinorUnits()
		if goalCurrent(txs, g.ID, 0) < target {
			continue
		}
		g.Status = budget.GoalArchived
		if _, err := s.writer.UpdateGoal(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) goalByID(ctx context.Context, userID uuid.UUID, id int64) (budget.Goal, error) {
	goals, err := s.repo.Goals(ctx, userID)
	if err != nil {
		return budget.Goal{}, err
	}
	for _, g := range goals {
		if g.ID == id {
			return g, nil
		}
	}
	return budget.Goal{}, errs.ErrNotFound
}

// --- Transactions ---

// AddTransaction validates the transaction against every business rule
// and appends it with the next sequential id. All violated rules are
// returned together; nothing is written when any rule fails.
func (s *service) AddTransaction(ctx context.Context, t budget.Transaction) (budget.Transaction, error) {
	if t.UserID == uuid.Nil {
		return budget.Transaction{}, errs.ErrInvalid
	}
	t.Date = dates.Normalize(t.Date)
	txs, err := s.repo.Transactions(ctx, t.UserID)
	if err != nil {
		return budget.Transaction{}, err
	}
	verrs, err := s.validateTransaction(ctx, t, txs, 0)
	if err != nil {
		return budget.Transaction{}, err
	}
	if len(verrs) > 0 {
		return budget.Transaction{}, verrs
	}
	var maxID int64
	for _, et := range txs {
		if et.ID > maxID {
			maxID = et.ID
		}
	}
	t.ID = maxID + 1
	return s.writer.CreateTransaction(ctx, t)
}

// UpdateTransaction merges the patch and re-runs the full rule set on
// the result, the closed-period gate included on both the old and the
// new date. An edit can therefore never smuggle a transaction into a
// closed period or a withdrawal past the goal balance.
func (s *service) UpdateTransaction(ctx context.Context, userID uuid.UUID, id int64, patch TransactionPatch) (budget.Transaction, error) {
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return budget.Transaction{}, err
	}
	var existing *budget.Transaction
	for i := range txs {
		if txs[i].ID == id {
			existing = &txs[i]
			break
		}
	}
	if existing == nil {
		return budget.Transaction{}, errs.ErrNotFound
	}
	inClosed, err := s.inClosedPeriod(ctx, userID, existing.Date)
	if err != nil {
		return budget.Transaction{}, err
	}
	if inClosed {
		return budget.Transaction{}, errs.ErrPeriodClosed
	}

	merged := *existing
	if patch.Date != nil {
		merged.Date = dates.Normalize(*patch.Date)
	}
	if patch.Kind != nil {
		merged.Kind = *patch.Kind
	}
	if patch.CategoryID != nil {
		merged.CategoryID = *patch.CategoryID
	}
	if patch.GoalID != nil {
		merged.GoalID = *patch.GoalID
	}
	if patch.Source != nil {
		merged.Source = *patch.Source
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Amount != nil {
		merged.Amount = *patch.Amount
	}
	if patch.Metadata != nil {
		merged.Metadata = patch.Metadata
	}

	verrs, err := s.validateTransaction(ctx, merged, txs, id)
	if err != nil {
		return budget.Transaction{}, err
	}
	if len(verrs) > 0 {
		return budget.Transaction{}, verrs
	}
	return s.writer.UpdateTransaction(ctx, merged)
}

// DeleteTransaction removes the transaction and captures it in the undo
// buffer, overwriting whatever the buffer held before.
func (s *service) DeleteTransaction(ctx context.Context, userID uuid.UUID, id int64) error {
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return err
	}
	var existing *budget.Transaction
	for i := range txs {
		if txs[i].ID == id {
			existing = &txs[i]
			break
		}
	}
	if existing == nil {
		return errs.ErrNotFound
	}
	inClosed, err := s.inClosedPeriod(ctx, userID, existing.Date)
	if err != nil {
		return err
	}
	if inClosed {
		return errs.ErrPeriodClosed
	}
	if err := s.writer.StashDeleted(ctx, userID, budget.DeletedItem{Transaction: existing}); err != nil {
		return err
	}
	return s.writer.DeleteTransaction(ctx, userID, id)
}

// UndoLastDelete restores the buffered item with its original ids and
// clears the slot. Returns false when the buffer is empty, which makes
// a second consecutive undo a no-op.
func (s *service) UndoLastDelete(ctx context.Context, userID uuid.UUID) (bool, error) {
	item, ok, err := s.writer.TakeDeleted(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	if item.Transaction != nil {
		if _, err := s.writer.CreateTransaction(ctx, *item.Transaction); err != nil {
			return false, err
		}
	}
	if item.Goal != nil {
		if _, err := s.writer.CreateGoal(ctx, *item.Goal); err != nil {
			return false, err
		}
		for _, t := range item.GoalTransactions {
			if _, err := s.writer.CreateTransaction(ctx, t); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// validateTransaction collects every violated rule for t. txs is the
// current transaction list; exclude skips one transaction id from the
// goal-balance sum when an edit re-validates itself.
func (s *service) validateTransaction(ctx context.Context, t budget.Transaction, txs []budget.Transaction, exclude int64) (errs.ValidationErrors, error) {
	var verrs errs.ValidationErrors

	if !t.Kind.Valid() {
		verrs = append(verrs, errs.ValidationError{Field: "kind", Message: "kind must be category_expense, goal_deposit, income or goal_withdrawal", Severity: errs.SeverityError})
	}
	if t.AmountMinor() < 0 {
		verrs = append(verrs, errs.ValidationError{Field: "amount", Message: "amount cannot be negative", Severity: errs.SeverityError})
	}
	if err := t.Metadata.Validate(); err != nil {
		verrs = append(verrs, errs.ValidationError{Field: "metadata", Message: err.Error(), Severity: errs.SeverityError})
	}

	inClosed, err := s.inClosedPeriod(ctx, t.UserID, t.Date)
	if err != nil {
		return nil, err
	}
	if inClosed {
		verrs = append(verrs, errs.ValidationError{
			Field:    "period",
			Message:  "cannot add transactions to a closed billing period; start a new period first",
			Severity: errs.SeverityError,
			Err:      errs.ErrPeriodClosed,
		})
	}

	switch t.Kind {
	case budget.KindCategoryExpense:
		if _, err := s.categoryByID(ctx, t.UserID, t.CategoryID); err == errs.ErrNotFound {
			verrs = append(verrs, errs.ValidationError{Field: "category_id", Message: "category not found", Severity: errs.SeverityError})
		} else if err != nil {
			return nil, err
		}
	case budget.KindGoalDeposit:
		g, err := s.goalByID(ctx, t.UserID, t.GoalID)
		switch {
		case err == errs.ErrNotFound:
			verrs = append(verrs, errs.ValidationError{Field: "goal_id", Message: "goal not found", Severity: errs.SeverityError})
		case err != nil:
			return nil, err
		case g.Status == budget.GoalArchived:
			verrs = append(verrs, errs.ValidationError{
				Field:    "goal_id",
				Message:  fmt.Sprintf("goal %q is archived; only withdrawals are allowed", g.Name),
				Severity: errs.SeverityError,
				Err:      errs.ErrGoalArchived,
			})
		}
	case budget.KindGoalWithdrawal:
		if _, err := s.goalByID(ctx, t.UserID, t.GoalID); err == errs.ErrNotFound {
			verrs = append(verrs, errs.ValidationError{Field: "goal_id", Message: "goal not found", Severity: errs.SeverityError})
		} else if err != nil {
			return nil, err
		} else if t.AmountMinor() > goalCurrent(txs, t.GoalID, exclude) {
			verrs = append(verrs, errs.ValidationError{
				Field:    "amount",
				Message:  "cannot withdraw more than the goal has accumulated",
				Severity: errs.SeverityError,
				Err:      errs.ErrGoalBalance,
			})
		}
	}
	return verrs, nil
}

// inClosedPeriod reports whether a transaction dated at date is frozen:
// either the current period is explicitly closed and contains the date,
// or the date falls inside the original bounds of any closed-period
// snapshot. Snapshot windows stay read-only forever.
func (s *service) inClosedPeriod(ctx context.Context, userID uuid.UUID, date time.Time) (bool, error) {
	p, err := s.Period(ctx, userID)
	if err != nil {
		return false, err
	}
	if p.Status == budget.PeriodClosed && p.Contains(date) {
		return true, nil
	}
	closed, err := s.repo.ClosedPeriods(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, snap := range closed {
		if !date.Before(snap.StartDate) && !date.After(snap.EndDate) {
			return true, nil
		}
	}
	return false, nil
}
