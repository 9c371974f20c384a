// Package report renders a user's expenses as a downloadable plain-text document.
package report

import (
	"strconv"
	"strings"

	"budget-planner/internal/models"
)

// Filename is the fixed attachment name for the text report.
const Filename = "expenses.txt"

// ContentType is the MIME type the report is served with.
const ContentType = "text/plain"

const header = "Budget Planner\n-------------------------.\n\nExpense Report\n-------------------------.\n\n"

// RenderText produces the report: a fixed header, then four lines per expense
// (Title, Amount, Category, Date) in the order supplied, each record followed
// by a blank line. Output is deterministic for a given input.
func RenderText(expenses []models.Expense) []byte {
	var b strings.Builder
	b.WriteString(header)
	for _, e := range expenses {
		b.WriteString("Title: ")
		b.WriteString(e.Title)
		b.WriteString("\nAmount: $")
		b.WriteString(strconv.FormatFloat(e.Amount, 'f', -1, 64))
		b.WriteString("\nCategory: ")
		b.WriteString(e.Category)
		b.WriteString("\nDate: ")
		b.WriteString(e.Date)
		b.WriteString("\n\n")
	}
	return []byte(b.String())
}
