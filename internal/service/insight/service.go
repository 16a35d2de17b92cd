// Package insight derives projections, trend deltas and warnings from
// ledger state at a point in time. Everything here is read-only: the
// service holds no state and recomputes from the collections on every
// call, degrading to zero-valued defaults on empty input.
package insight

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/dates"
	"github.com/mkowalski/budgetd/internal/errs"
)

// Repo defines the read operations the engine needs.
type Repo interface {
	BillingPeriod(ctx context.Context, userID uuid.UUID) (budget.BillingPeriod, error)
	Categories(ctx context.Context, userID uuid.UUID) ([]budget.Category, error)
	Goals(ctx context.Context, userID uuid.UUID) ([]budget.Goal, error)
	Transactions(ctx context.Context, userID uuid.UUID) ([]budget.Transaction, error)
}

// CategoryUtilization is one category's spend against its resolved
// budget for the period month.
type CategoryUtilization struct {
	CategoryID  int64  `json:"category_id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	SpentMinor  int64  `json:"spent_minor"`
	BudgetMinor int64  `json:"budget_minor"`
}

// Insights is the derived dashboard state for the active period.
type Insights struct {
	TotalBillingDays        int
	ElapsedDays             int
	RemainingDays           int
	TotalExpensesMinor      int64
	TotalIncomeMinor        int64
	TotalBudgetMinor        int64
	BalanceMinor            int64
	AvgDailyExpenseMinor    float64
	ProjectedExpensesMinor  float64
	DaysUntilBudgetExceeded int
	ExpenseChangePct        float64
	HighestExpense          *budget.Transaction
	IsOnTrack               bool
	Categories              []CategoryUtilization
}

// Severity of a warning, in display terms.
const (
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
	SeverityInfo    = "info"
)

// Warning is a human-relevant signal derived from period state.
// Multiple warnings may co-occur; emission order is fixed, nothing is
// deduplicated or prioritized beyond it.
type Warning struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// GoalView is a goal with its derived balance. Status reflects what the
// caller should display: a goal that just reached its target reads as
// archived here even before the persisted flip is applied.
type GoalView struct {
	budget.Goal
	CurrentMinor int64
}

// Goal-deposit share of expenses above this percentage, combined with a
// low balance, triggers the goals-draining warning.
const goalShareWarnPct = 30.0

// Balance floor for the goals-draining warning: 500 in major currency
// units, expressed in minor units.
const drainFloorMinor = 50_000

type Service interface {
	Insights(ctx context.Context, userID uuid.UUID) (Insights, error)
	Warnings(ctx context.Context, userID uuid.UUID) ([]Warning, error)
	EnrichGoals(ctx context.Context, userID uuid.UUID) ([]GoalView, []budget.GoalTransition, error)
	TransactionsInPeriod(ctx context.Context, userID uuid.UUID) ([]budget.Transaction, error)
}

type service struct {
	repo Repo
	now  func() time.Time
}

// Option configures the service.
type Option func(*service)

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

func New(repo Repo, opts ...Option) Service {
	s := &service{repo: repo, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// period returns the stored billing period or, for a user with nothing
// stored yet, the current calendar month. Being a read path it never
// persists the default.
func (s *service) period(ctx context.Context, userID uuid.UUID) (budget.BillingPeriod, error) {
	p, err := s.repo.BillingPeriod(ctx, userID)
	if err == nil {
		return p, nil
	}
	if err != errs.ErrNotFound {
		return budget.BillingPeriod{}, err
	}
	start, end := dates.CurrentMonthBounds(s.now())
	return budget.BillingPeriod{UserID: userID, StartDate: start, EndDate: end, Status: budget.PeriodActive}, nil
}

// TransactionsInPeriod filters the log to the active period's bounds.
func (s *service) TransactionsInPeriod(ctx context.Context, userID uuid.UUID) ([]budget.Transaction, error) {
	p, err := s.period(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]budget.Transaction, 0, len(txs))
	for _, t := range txs {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *service) Insights(ctx context.Context, userID uuid.UUID) (Insights, error) {
	if userID == uuid.Nil {
		return Insights{}, errs.ErrInvalid
	}
	p, err := s.period(ctx, userID)
	if err != nil {
		return Insights{}, err
	}
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return Insights{}, err
	}
	cats, err := s.repo.Categories(ctx, userID)
	if err != nil {
		return Insights{}, err
	}

	// Budget-relevant expenses include goal deposits: they are real cash
	// outflow. Budget-relevant income excludes goal withdrawals: those
	// are transfers, not new money.
	var totalExpenses, totalIncome int64
	var highest *budget.Transaction
	spentByCategory := make(map[int64]int64)
	for i := range txs {
		t := txs[i]
		if !p.Contains(t.Date) {
			continue
		}
		if t.IsExpense() {
			totalExpenses += t.AmountMinor()
			if t.Kind == budget.KindCategoryExpense {
				spentByCategory[t.CategoryID] += t.AmountMinor()
			}
			if highest == nil || t.AmountMinor() > highest.AmountMinor() {
				cp := t
				highest = &cp
			}
		}
		if t.IsBudgetIncome() {
			totalIncome += t.AmountMinor()
		}
	}

	periodMonth := int(p.StartDate.Month()) - 1
	var totalBudget int64
	utilization := make([]CategoryUtilization, 0, len(cats))
	for _, c := range cats {
		if c.Archived {
			continue
		}
		budgetMinor, _ := c.BudgetFor(periodMonth).MinorUnits()
		totalBudget += budgetMinor
		utilization = append(utilization, CategoryUtilization{
			CategoryID:  c.ID,
			Name:        c.Name,
			Icon:        c.Icon,
			SpentMinor:  spentByCategory[c.ID],
			BudgetMinor: budgetMinor,
		})
	}

	today := s.now()
	totalDays := dates.TotalDays(p.StartDate, p.EndDate)
	elapsed := dates.ElapsedDays(p.StartDate, p.EndDate, today)
	remaining := dates.RemainingDays(p.EndDate, today)

	var avgDaily float64
	if elapsed > 0 {
		avgDaily = float64(totalExpenses) / float64(elapsed)
	}
	projected := avgDaily * float64(totalDays)

	var daysUntilExceeded int
	if totalBudget > totalExpenses && avgDaily > 0 {
		daysUntilExceeded = int(math.Floor(float64(totalBudget-totalExpenses) / avgDaily))
	}

	// Prior window of identical length immediately preceding the period.
	// A zero-expense prior window reports 0% change rather than
	// undefined; known limitation, kept for parity with the dashboard.
	prevEnd := p.StartDate.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(totalDays - 1))
	var prevExpenses int64
	for _, t := range txs {
		if t.IsExpense() && !t.Date.Before(prevStart) && !t.Date.After(prevEnd) {
			prevExpenses += t.AmountMinor()
		}
	}
	var changePct float64
	if prevExpenses > 0 {
		changePct = float64(totalExpenses-prevExpenses) / float64(prevExpenses) * 100
	}

	return Insights{
		TotalBillingDays:        totalDays,
		ElapsedDays:             elapsed,
		RemainingDays:           remaining,
		TotalExpensesMinor:      totalExpenses,
		TotalIncomeMinor:        totalIncome,
		TotalBudgetMinor:        totalBudget,
		BalanceMinor:            totalIncome - totalExpenses,
		AvgDailyExpenseMinor:    avgDaily,
		ProjectedExpensesMinor:  projected,
		DaysUntilBudgetExceeded: daysUntilExceeded,
		ExpenseChangePct:        changePct,
		HighestExpense:          highest,
		IsOnTrack:               projected <= float64(totalBudget),
		Categories:              utilization,
	}, nil
}

func (s *service) Warnings(ctx context.Context, userID uuid.UUID) ([]Warning, error) {
	ins, err := s.Insights(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.TransactionsInPeriod(ctx, userID)
	if err != nil {
		return nil, err
	}
	var goalDeposits int64
	for _, t := range txs {
		if t.Kind == budget.KindGoalDeposit {
			goalDeposits += t.AmountMinor()
		}
	}

	warnings := make([]Warning, 0, 3)

	if ins.RemainingDays > 0 {
		safeDaily := float64(ins.TotalBudgetMinor-ins.TotalExpensesMinor) / float64(ins.RemainingDays)
		if safeDaily < ins.AvgDailyExpenseMinor {
			warnings = append(warnings, Warning{
				ID:       "unsafe-pace",
				Severity: SeverityWarning,
				Message:  "current spending pace will exceed the budget before the period ends",
			})
		}
	}

	if ins.BalanceMinor < 0 {
		warnings = append(warnings, Warning{
			ID:       "negative-balance",
			Severity: SeverityDanger,
			Message:  "more spent than earned this period",
		})
	}

	if ins.TotalExpensesMinor > 0 {
		share := float64(goalDeposits) / float64(ins.TotalExpensesMinor) * 100
		if share > goalShareWarnPct && ins.BalanceMinor < drainFloorMinor {
			warnings = append(warnings, Warning{
				ID:       "goals-draining",
				Severity: SeverityInfo,
				Message:  "a significant share of spending is going into goals; check the current balance",
			})
		}
	}
	return warnings, nil
}

// EnrichGoals computes every goal's derived balance and reports, but
// does not apply, the status flips that balance implies. A goal whose
// balance reached its target while active is displayed as archived in
// this same read; the returned transitions let the caller persist that
// flip as an explicit follow-up step.
func (s *service) EnrichGoals(ctx context.Context, userID uuid.UUID) ([]GoalView, []budget.GoalTransition, error) {
	if userID == uuid.Nil {
		return nil, nil, errs.ErrInvalid
	}
	goals, err := s.repo.Goals(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	txs, err := s.repo.Transactions(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	current := make(map[int64]int64, len(goals))
	for _, t := range txs {
		switch t.Kind {
		case budget.KindGoalDeposit:
			current[t.GoalID] += t.AmountMinor()
		case budget.KindGoalWithdrawal:
			current[t.GoalID] -= t.AmountMinor()
		}
	}

	views := make([]GoalView, 0, len(goals))
	var transitions []budget.GoalTransition
	for _, g := range goals {
		v := GoalView{Goal: g, CurrentMinor: current[g.ID]}
		target, _ := g.Target.MinorUnits()
		if g.Status == budget.GoalActive && v.CurrentMinor >= target {
			v.Goal.Status = budget.GoalArchived
			transitions = append(transitions, budget.GoalTransition{
				GoalID: g.ID,
				From:   budget.GoalActive,
				To:     budget.GoalArchived,
			})
		}
		views = append(views, v)
	}
	return views, transitions, nil
}
