// Package budget holds the pure aggregation logic for the dashboard.
// Nothing here touches storage or the network; handlers feed it the
// owner-scoped rows they already loaded.
package budget

import "budget-planner/internal/models"

// Suggestion messages shown on the dashboard, selected in strict order.
const (
	SuggestionNoIncome     = "Add your paychecks to track savings."
	SuggestionGreat        = "Great job! saving more than 20% of your income!"
	SuggestionOnTrack      = "You are on track, try to save a little more each month."
	SuggestionOverspending = "You are spending more than you earn. Try cutting costs."
)

// Summary aggregates a user's expenses and paychecks.
type Summary struct {
	TotalExpenses float64
	TotalIncome   float64
	Savings       float64
	Suggestion    string
}

// Summarize computes totals, savings, and a savings suggestion.
// The first matching rule wins: no income, saving over 20%, non-negative
// savings, otherwise overspending.
func Summarize(expenses []models.Expense, paychecks []models.Paycheck) Summary {
	var s Summary
	for _, e := range expenses {
		s.TotalExpenses += e.Amount
	}
	for _, p := range paychecks {
		s.TotalIncome += p.Amount
	}
	s.Savings = s.TotalIncome - s.TotalExpenses

	switch {
	case s.TotalIncome == 0:
		s.Suggestion = SuggestionNoIncome
	case s.Savings > s.TotalIncome*0.2:
		s.Suggestion = SuggestionGreat
	case s.Savings >= 0:
		s.Suggestion = SuggestionOnTrack
	default:
		s.Suggestion = SuggestionOverspending
	}
	return s
}
