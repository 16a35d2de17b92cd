// Insight handlers: derived dashboard state and warnings.
package httpapi

import (
	"net/http"

	"github.com/mkowalski/budgetd/internal/service/insight"
)

type insightsResponse struct {
	TotalBillingDays        int                           `json:"total_billing_days"`
	ElapsedDays             int                           `json:"elapsed_days"`
	RemainingDays           int                           `json:"remaining_days"`
	TotalExpensesMinor      int64                         `json:"total_expenses_minor"`
	TotalIncomeMinor        int64                         `json:"total_income_minor"`
	TotalBudgetMinor        int64                         `json:"total_budget_minor"`
	BalanceMinor            int64                         `json:"balance_minor"`
	AvgDailyExpenseMinor    float64                       `json:"avg_daily_expense_minor"`
	ProjectedExpensesMinor  float64                       `json:"projected_expenses_minor"`
	DaysUntilBudgetExceeded int                           `json:"days_until_budget_exceeded"`
	ExpenseChangePct        float64                       `json:"expense_change_pct"`
	HighestExpense          *transactionResponse          `json:"highest_expense,omitempty"`
	IsOnTrack               bool                          `json:"is_on_track"`
	Categories              []insight.CategoryUtilization `json:"categories"`
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	ins, err := s.insights.Insights(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	resp := insightsResponse{
		TotalBillingDays:        ins.TotalBillingDays,
		ElapsedDays:             ins.ElapsedDays,
		RemainingDays:           ins.RemainingDays,
		TotalExpensesMinor:      ins.TotalExpensesMinor,
		TotalIncomeMinor:        ins.TotalIncomeMinor,
		TotalBudgetMinor:        ins.TotalBudgetMinor,
		BalanceMinor:            ins.BalanceMinor,
		AvgDailyExpenseMinor:    ins.AvgDailyExpenseMinor,
		ProjectedExpensesMinor:  ins.ProjectedExpensesMinor,
		DaysUntilBudgetExceeded: ins.DaysUntilBudgetExceeded,
		ExpenseChangePct:        ins.ExpenseChangePct,
		IsOnTrack:               ins.IsOnTrack,
		Categories:              ins.Categories,
	}
	if ins.HighestExpense != nil {
		tr := toTransactionResponse(*ins.HighestExpense)
		resp.HighestExpense = &tr
	}
	toJSON(w, http.StatusOK, resp)
}

func (s *Server) getWarnings(w http.ResponseWriter, r *http.Request) {
	userID, ok := queryUserID(w, r)
	if !ok {
		return
	}
	warnings, err := s.insights.Warnings(r.Context(), userID)
	if err != nil {
		s.writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, struct {
		Items []insight.Warning `json:"items"`
	}{Items: warnings})
}
