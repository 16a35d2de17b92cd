package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/dates"
	"github.com/mkowalski/budgetd/internal/meta"
)

const dateLayout = "2006-01-02"

// amount turns minor units into a money.Amount in the server currency.
func (s *Server) amount(minor int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(s.currency, minor)
	return a
}

// queryUserID extracts and validates the user_id query parameter.
func queryUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		badRequest(w, "user_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(w, "invalid user_id")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, raw)
}

func fmtDate(t time.Time) string { return t.Format(dateLayout) }

// --- Billing period ---

type periodResponse struct {
	UserID        uuid.UUID           `json:"user_id"`
	StartDate     string              `json:"start_date"`
	EndDate       string              `json:"end_date"`
	Status        budget.PeriodStatus `json:"status"`
	TotalDays     int                 `json:"total_days"`
	ElapsedDays   int                 `json:"elapsed_days"`
	RemainingDays int                 `json:"remaining_days"`
}

// toPeriodResponse attaches advisory day counts relative to today.
func (s *Server) toPeriodResponse(p budget.BillingPeriod) periodResponse {
	today := s.now()
	return periodResponse{
		UserID:        p.UserID,
		StartDate:     fmtDate(p.StartDate),
		EndDate:       fmtDate(p.EndDate),
		Status:        p.Status,
		TotalDays:     dates.TotalDays(p.StartDate, p.EndDate),
		ElapsedDays:   dates.ElapsedDays(p.StartDate, p.EndDate, today),
		RemainingDays: dates.RemainingDays(p.EndDate, today),
	}
}

type putPeriodRequest struct {
	UserID    uuid.UUID `json:"user_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
}

type snapshotResponse struct {
	ID                 int64                  `json:"id"`
	UserID             uuid.UUID              `json:"user_id"`
	StartDate          string                 `json:"start_date"`
	EndDate            string                 `json:"end_date"`
	ClosedAt           time.Time              `json:"closed_at"`
	BalanceMinor       int64                  `json:"balance_minor"`
	TotalExpensesMinor int64                  `json:"total_expenses_minor"`
	TotalIncomeMinor   int64                  `json:"total_income_minor"`
	CategoryTotals     []budget.CategoryTotal `json:"category_totals"`
	TransactionCount   int                    `json:"transaction_count"`
}

func toSnapshotResponse(snap budget.ClosedPeriodSnapshot) snapshotResponse {
	return snapshotResponse{
		ID:                 snap.ID,
		UserID:             snap.UserID,
		StartDate:          fmtDate(snap.StartDate),
		EndDate:            fmtDate(snap.EndDate),
		ClosedAt:           snap.ClosedAt,
		BalanceMinor:       snap.BalanceMinor,
		TotalExpensesMinor: snap.TotalExpensesMinor,
		TotalIncomeMinor:   snap.TotalIncomeMinor,
		CategoryTotals:     snap.CategoryTotals,
		TransactionCount:   snap.TransactionCount,
	}
}

type closePeriodResponse struct {
	ClosedPeriod snapshotResponse `json:"closed_period"`
	NewPeriod    periodResponse   `json:"new_period"`
}

// --- Categories ---

type postCategoryRequest struct {
	UserID              uuid.UUID           `json:"user_id"`
	Name                string              `json:"name"`
	Icon                string              `json:"icon"`
	Type                budget.CategoryType `json:"type"`
	DefaultBudgetMinor  int64               `json:"default_budget_minor"`
	MonthlyBudgetsMinor map[int]int64       `json:"monthly_budgets_minor"`
}

type patchCategoryRequest struct {
	UserID              uuid.UUID            `json:"user_id"`
	Name                *string              `json:"name"`
	Icon                *string              `json:"icon"`
	Type                *budget.CategoryType `json:"type"`
	DefaultBudgetMinor  *int64               `json:"default_budget_minor"`
	MonthlyBudgetsMinor map[int]int64        `json:"monthly_budgets_minor"`
}

type categoryResponse struct {
	ID                  int64               `json:"id"`
	UserID              uuid.UUID           `json:"user_id"`
	Name                string              `json:"name"`
	Icon                string              `json:"icon"`
	Type                budget.CategoryType `json:"type"`
	DefaultBudgetMinor  int64               `json:"default_budget_minor"`
	MonthlyBudgetsMinor map[int]int64       `json:"monthly_budgets_minor,omitempty"`
	Order               int                 `json:"order"`
	Archived            bool                `json:"archived"`
}

func (s *Server) monthlyBudgets(minor map[int]int64) map[int]money.Amount {
	if minor == nil {
		return nil
	}
	out := make(map[int]money.Amount, len(minor))
	for month, v := range minor {
		out[month] = s.amount(v)
	}
	return out
}

func toCategoryResponse(c budget.Category) categoryResponse {
	defaultMinor, _ := c.DefaultBudget.MinorUnits()
	var monthly map[int]int64
	if len(c.MonthlyBudgets) > 0 {
		monthly = make(map[int]int64, len(c.MonthlyBudgets))
		for month, a := range c.MonthlyBudgets {
			v, _ := a.MinorUnits()
			monthly[month] = v
		}
	}
	return categoryResponse{
		ID:                  c.ID,
		UserID:              c.UserID,
		Name:                c.Name,
		Icon:                c.Icon,
		Type:                c.Type,
		DefaultBudgetMinor:  defaultMinor,
		MonthlyBudgetsMinor: monthly,
		Order:               c.Order,
		Archived:            c.Archived,
	}
}

// --- Goals ---

type postGoalRequest struct {
	UserID      uuid.UUID           `json:"user_id"`
	Name        string              `json:"name"`
	TargetMinor int64               `json:"target_minor"`
	Priority    budget.GoalPriority `json:"priority"`
	Metadata    meta.Metadata       `json:"metadata"`
}

type patchGoalRequest struct {
	UserID      uuid.UUID            `json:"user_id"`
	Name        *string              `json:"name"`
	TargetMinor *int64               `json:"target_minor"`
	Priority    *budget.GoalPriority `json:"priority"`
	Metadata    meta.Metadata        `json:"metadata"`
}

type goalResponse struct {
	ID           int64               `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	Name         string              `json:"name"`
	TargetMinor  int64               `json:"target_minor"`
	Priority     budget.GoalPriority `json:"priority"`
	Status       budget.GoalStatus   `json:"status"`
	CurrentMinor int64               `json:"current_minor"`
	Metadata     meta.Metadata       `json:"metadata,omitempty"`
}

func toGoalResponse(g budget.Goal, currentMinor int64) goalResponse {
	targetMinor, _ := g.Target.MinorUnits()
	return goalResponse{
		ID:           g.ID,
		UserID:       g.UserID,
		Name:         g.Name,
		TargetMinor:  targetMinor,
		Priority:     g.Priority,
		Status:       g.Status,
		CurrentMinor: currentMinor,
		Metadata:     g.Metadata,
	}
}

// --- Transactions ---

type postTransactionRequest struct {
	UserID      uuid.UUID     `json:"user_id"`
	Date        string        `json:"date"`
	Kind        budget.Kind   `json:"kind"`
	CategoryID  int64         `json:"category_id"`
	GoalID      int64         `json:"goal_id"`
	Source      string        `json:"source"`
	Description string        `json:"description"`
	AmountMinor int64         `json:"amount_minor"`
	Metadata    meta.Metadata `json:"metadata"`
}

type patchTransactionRequest struct {
	UserID      uuid.UUID     `json:"user_id"`
	Date        *string       `json:"date"`
	Kind        *budget.Kind  `json:"kind"`
	CategoryID  *int64        `json:"category_id"`
	GoalID      *int64        `json:"goal_id"`
	Source      *string       `json:"source"`
	Description *string       `json:"description"`
	AmountMinor *int64        `json:"amount_minor"`
	Metadata    meta.Metadata `json:"metadata"`
}

type transactionResponse struct {
	ID          int64         `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Date        string        `json:"date"`
	Kind        budget.Kind   `json:"kind"`
	CategoryID  int64         `json:"category_id,omitempty"`
	GoalID      int64         `json:"goal_id,omitempty"`
	Source      string        `json:"source,omitempty"`
	Description string        `json:"description,omitempty"`
	AmountMinor int64         `json:"amount_minor"`
	Metadata    meta.Metadata `json:"metadata,omitempty"`
}

func toTransactionResponse(t budget.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Date:        fmtDate(t.Date),
		Kind:        t.Kind,
		CategoryID:  t.CategoryID,
		GoalID:      t.GoalID,
		Source:      t.Source,
		Description: t.Description,
		AmountMinor: t.AmountMinor(),
		Metadata:    t.Metadata,
	}
}
