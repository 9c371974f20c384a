package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"budget-planner/internal/budget"
	"budget-planner/internal/models"
	"budget-planner/internal/report"
	"budget-planner/internal/storage"
)

// DashboardViewModel is the data passed to the dashboard template.
type DashboardViewModel struct {
	Expenses       []models.Expense
	Total          float64
	TotalIncome    float64
	Savings        float64
	Suggestion     string
	Categories     []string
	ActiveCategory string
	Message        string
}

// Home serves the landing page for anonymous visitors and the dashboard for
// authenticated users, with an optional ?category= filter.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	sess := h.currentSession(r)
	if sess == nil {
		h.render(w, r, "home.html", nil)
		return
	}

	category := r.URL.Query().Get("category")

	expenses, err := h.db.ListExpenses(sess.UserID, category)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	paychecks, err := h.db.ListPaychecks(sess.UserID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	categories, err := h.db.DistinctCategories(sess.UserID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	summary := budget.Summarize(expenses, paychecks)

	h.render(w, r, "index.html", DashboardViewModel{
		Expenses:       expenses,
		Total:          summary.TotalExpenses,
		TotalIncome:    summary.TotalIncome,
		Savings:        summary.Savings,
		Suggestion:     summary.Suggestion,
		Categories:     categories,
		ActiveCategory: category,
		Message:        h.popFlash(w, r),
	})
}

// currentSession resolves the session cookie without requiring auth,
// for routes that serve both anonymous and signed-in visitors.
func (h *Handlers) currentSession(r *http.Request) *models.Session {
	if sess := SessionFromContext(r); sess != nil {
		return sess
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := h.db.ValidateSession(cookie.Value)
	if err != nil {
		return nil
	}
	return sess
}

// ExpenseForm holds submitted add-expense values for re-rendering.
type ExpenseForm struct {
	Title    string
	Amount   string
	Category string
	Date     string
}

// AddExpenseViewModel is the data passed to the add-expense template.
type AddExpenseViewModel struct {
	Errors []string
	Form   ExpenseForm
}

// AddExpenseForm renders the form to create a new expense.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "add.html", AddExpenseViewModel{})
}

// AddExpense creates an expense. On validation failure the form is
// re-rendered with the full error list and the submitted values.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r)

	if err := r.ParseForm(); err != nil {
		h.serverError(w, r, err)
		return
	}

	form := ExpenseForm{
		Title:    r.FormValue("title"),
		Amount:   strings.TrimSpace(r.FormValue("amount")),
		Category: strings.TrimSpace(r.FormValue("category")),
		Date:     strings.TrimSpace(r.FormValue("date")),
	}

	// An unparseable amount fails the same positive-amount rule as zero.
	amount, _ := strconv.ParseFloat(form.Amount, 64)

	_, err := h.db.CreateExpense(sess.UserID, form.Title, amount, form.Category, form.Date)
	if err != nil {
		var verrs storage.ValidationErrors
		if errors.As(err, &verrs) {
			h.render(w, r, "add.html", AddExpenseViewModel{Errors: verrs, Form: form})
			return
		}
		h.serverError(w, r, err)
		return
	}

	h.setFlash(w, "Expense added successfully!")
	http.Redirect(w, r, "/", http.StatusFound)
}

// DeleteExpense deletes an expense owned by the current user and reports
// success as JSON. A missing or non-owned id still reports success.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r)

	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

	w.Header().Set("Content-Type", "application/json")
	if err := h.db.DeleteExpense(sess.UserID, id); err != nil {
		slog.ErrorContext(r.Context(), "delete expense failed", "error", err, "expense_id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": false})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// PaychecksViewModel is the data passed to the paychecks template.
type PaychecksViewModel struct {
	Paychecks []models.Paycheck
	TotalPay  float64
}

// Paychecks renders the paycheck list with a running total.
func (h *Handlers) Paychecks(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r)

	paychecks, err := h.db.ListPaychecks(sess.UserID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	var total float64
	for _, p := range paychecks {
		total += p.Amount
	}

	h.render(w, r, "paychecks.html", PaychecksViewModel{Paychecks: paychecks, TotalPay: total})
}

// AddPaycheck creates a paycheck. An invalid amount silently redirects back
// to the paycheck page with no field-level error.
func (h *Handlers) AddPaycheck(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r)

	if err := r.ParseForm(); err != nil {
		h.serverError(w, r, err)
		return
	}

	amount, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("amount")), 64)
	description := strings.TrimSpace(r.FormValue("description"))

	if _, err := h.db.CreatePaycheck(sess.UserID, amount, description); err != nil {
		if errors.Is(err, storage.ErrInvalidAmount) {
			http.Redirect(w, r, "/paychecks", http.StatusFound)
			return
		}
		h.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// DownloadReport streams the plain-text expense report as an attachment.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r)

	expenses, err := h.db.ListExpenses(sess.UserID, "")
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	_, _ = w.Write(report.RenderText(expenses))
}
