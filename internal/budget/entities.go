package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mkowalski/budgetd/internal/meta"
)

// User captures the owner of budget data. Identity is opaque; the
// engine never authenticates, it only scopes collections per user.
type User struct {
	ID    uuid.UUID
	Email *string
}

// PeriodStatus is the persisted lifecycle state of a billing period.
// It only changes through an explicit close action; a period whose end
// date has passed still persists as active (no auto-close).
type PeriodStatus string

const (
	PeriodActive PeriodStatus = "active"
	PeriodClosed PeriodStatus = "closed"
)

// BillingPeriod is the date window budgets and insights are evaluated
// against. Exactly one is active per user. While Status is closed the
// bounds are immutable and no transaction dated inside them may be
// created, edited or deleted.
type BillingPeriod struct {
	UserID    uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
}

// Contains reports whether the civil date of t falls within the period
// bounds, endpoints included.
func (p BillingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// CategoryType classifies how a category's spending behaves month to month.
type CategoryType string

const (
	CategoryFixed      CategoryType = "fixed"
	CategoryVariable   CategoryType = "variable"
	CategoryOccasional CategoryType = "occasional"
)

// Category is a budget line. IDs are sequential positive integers per
// user; Order defines display priority and is kept dense (1..N).
type Category struct {
	ID            int64
	UserID        uuid.UUID
	Name          string
	Icon          string
	Type          CategoryType
	DefaultBudget money.Amount
	// MonthlyBudgets overrides DefaultBudget for specific month indices
	// (0 = January .. 11 = December). The map is sparse; missing months
	// fall back to DefaultBudget.
	MonthlyBudgets map[int]money.Amount
	Order          int
	Archived       bool
}

// BudgetFor resolves the category's budget for a month index: the
// monthly override if present, else the default. Never fails.
func (c Category) BudgetFor(month int) money.Amount {
	if v, ok := c.MonthlyBudgets[month]; ok {
		return v
	}
	return c.DefaultBudget
}

// GoalPriority ranks savings goals for display.
type GoalPriority string

const (
	PriorityA GoalPriority = "A"
	PriorityB GoalPriority = "B"
	PriorityC GoalPriority = "C"
)

// GoalStatus is the persisted lifecycle state of a goal. A goal that
// reaches its target is archived, not marked "completed": completed and
// archived are presented as the same terminal state, so only the two
// values below are ever stored.
type GoalStatus string

const (
	GoalActive   GoalStatus = "active"
	GoalArchived GoalStatus = "archived"
)

// Goal is a savings target. Its current balance is never stored; it is
// derived from the transaction log on every read.
type Goal struct {
	ID       int64
	UserID   uuid.UUID
	Name     string
	Target   money.Amount
	Priority GoalPriority
	Status   GoalStatus
	Metadata meta.Metadata
}

// GoalTransition is a pending status flip detected during an enriched
// goal read. The read reports it instead of mutating mid-enumeration;
// a reconciliation step applies it explicitly afterwards.
type GoalTransition struct {
	GoalID int64      `json:"goal_id"`
	From   GoalStatus `json:"from"`
	To     GoalStatus `json:"to"`
}

// Kind is the explicit transaction variant. The four cases replace
// branching on an (income|expense, goalId set|null) pair: each kind
// names exactly one flow of money.
type Kind string

const (
	// KindCategoryExpense is an ordinary spend against a category budget.
	KindCategoryExpense Kind = "category_expense"
	// KindGoalDeposit moves money into a goal. It is real cash outflow:
	// it counts against the period budget AND raises the goal balance.
	KindGoalDeposit Kind = "goal_deposit"
	// KindIncome is new money entering the period, labeled by Source.
	KindIncome Kind = "income"
	// KindGoalWithdrawal moves money out of a goal. It is a transfer,
	// not new income, so it never counts toward period income.
	KindGoalWithdrawal Kind = "goal_withdrawal"
)

// Valid reports whether k is one of the four transaction kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCategoryExpense, KindGoalDeposit, KindIncome, KindGoalWithdrawal:
		return true
	}
	return false
}

// Transaction is a single dated movement of money. Which reference
// fields are meaningful depends on Kind: CategoryID for category
// expenses, GoalID for deposits and withdrawals, Source for income.
type Transaction struct {
	ID          int64
	UserID      uuid.UUID
	Date        time.Time
	Kind        Kind
	CategoryID  int64
	GoalID      int64
	Source      string
	Description string
	Amount      money.Amount
	Metadata    meta.Metadata
}

// IsExpense reports whether the transaction counts against the period
// budget. Goal deposits do: they are real cash outflow.
func (t Transaction) IsExpense() bool {
	return t.Kind == KindCategoryExpense || t.Kind == KindGoalDeposit
}

// IsBudgetIncome reports whether the transaction counts as period
// income. Goal withdrawals do not; they only move saved money back.
func (t Transaction) IsBudgetIncome() bool {
	return t.Kind == KindIncome
}

// AmountMinor returns the amount in minor currency units.
func (t Transaction) AmountMinor() int64 {
	units, _ := t.Amount.MinorUnits()
	return units
}

// CategoryTotal is one line of a closed-period snapshot: what a
// category had budgeted for the period month and what was spent.
type CategoryTotal struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	SpentMinor  int64  `json:"spent_minor"`
	BudgetMinor int64  `json:"budget_minor"`
}

// ClosedPeriodSnapshot is the immutable audit record written when a
// period closes. Once appended it is never recomputed, even if the
// source transactions are later edited or deleted.
type ClosedPeriodSnapshot struct {
	ID                int64
	UserID            uuid.UUID
	StartDate         time.Time
	EndDate           time.Time
	ClosedAt          time.Time
	BalanceMinor      int64
	TotalExpensesMinor int64
	TotalIncomeMinor  int64
	CategoryTotals    []CategoryTotal
	TransactionCount  int
}

// DeletedItem is the single-slot undo buffer payload: either one
// transaction, or a goal together with the transactions its deletion
// cascaded over. The buffer is overwritten by the next delete.
type DeletedItem struct {
	Transaction      *Transaction
	Goal             *Goal
	GoalTransactions []Transaction
}
