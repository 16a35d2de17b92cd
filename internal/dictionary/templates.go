package dictionary

import "github.com/mkowalski/budgetd/internal/budget"

// CategoryTemplate is a curated starting point for a budget category.
type CategoryTemplate struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

var curated = map[budget.CategoryType][]CategoryTemplate{
	budget.CategoryFixed: {
		{Name: "Rent", Icon: "home"},
		{Name: "Utilities", Icon: "zap"},
		{Name: "Insurance", Icon: "shield"},
		{Name: "Subscriptions", Icon: "repeat"},
	},
	budget.CategoryVariable: {
		{Name: "Groceries", Icon: "shopping_cart"},
		{Name: "Eating Out", Icon: "coffee"},
		{Name: "Transport", Icon: "bus"},
		{Name: "Entertainment", Icon: "film"},
		{Name: "Personal Care", Icon: "heart"},
	},
	budget.CategoryOccasional: {
		{Name: "Gifts", Icon: "gift"},
		{Name: "Travel", Icon: "plane"},
		{Name: "Home Repairs", Icon: "tool"},
		{Name: "Health", Icon: "activity"},
	},
}

// TemplatesFor returns the curated templates for a category type, or
// every template when t is nil.
func TemplatesFor(t *budget.CategoryType) []CategoryTemplate {
	if t == nil {
		out := make([]CategoryTemplate, 0)
		for _, typ := range Types() {
			out = append(out, curated[typ]...)
		}
		return out
	}
	return curated[*t]
}

// Types lists the category types in display order.
func Types() []budget.CategoryType {
	return []budget.CategoryType{budget.CategoryFixed, budget.CategoryVariable, budget.CategoryOccasional}
}

// PriorityDef labels a goal priority rank.
type PriorityDef struct {
	Code  budget.GoalPriority `json:"code"`
	Label string              `json:"label"`
}

// Priorities lists the goal priority ranks, highest first.
func Priorities() []PriorityDef {
	return []PriorityDef{
		{Code: budget.PriorityA, Label: "Must have"},
		{Code: budget.PriorityB, Label: "Should have"},
		{Code: budget.PriorityC, Label: "Nice to have"},
	}
}
