package core

import "strings"

// Query narrows a transaction list for display. All present fields must
// match (conjunctive). Date bounds are inclusive and compared as strings,
// which works because Date is lexicographically sortable.
type Query struct {
	Text      string
	StartDate Date
	EndDate   Date
}

// Summarize folds the transaction list into totals in a single pass.
// Income adds to the balance, expense subtracts. No rounding policy is
// applied beyond integer cent addition.
func Summarize(transactions []Transaction) FinancialSummary {
	var s FinancialSummary
	for _, t := range transactions {
		switch t.Type {
		case Income:
			s.TotalIncome.Cents += t.Amount.Cents
			s.Balance.Cents += t.Amount.Cents
		case Expense:
			s.TotalExpense.Cents += t.Amount.Cents
			s.Balance.Cents -= t.Amount.Cents
		}
	}
	return s
}

// Filter returns the transactions matching q, preserving input order.
// The text term is a case-insensitive substring test against description,
// category, and the decimal rendering of the amount.
func Filter(transactions []Transaction, q Query) []Transaction {
	result := transactions
	if term := strings.TrimSpace(q.Text); term != "" {
		lower := strings.ToLower(term)
		result = keep(result, func(t Transaction) bool {
			return strings.Contains(strings.ToLower(t.Description), lower) ||
				strings.Contains(strings.ToLower(t.Category), lower) ||
				strings.Contains(t.Amount.Decimal(), lower)
		})
	}
	if q.StartDate != "" {
		result = keep(result, func(t Transaction) bool { return t.Date >= q.StartDate })
	}
	if q.EndDate != "" {
		result = keep(result, func(t Transaction) bool { return t.Date <= q.EndDate })
	}
	return result
}

func keep(in []Transaction, pred func(Transaction) bool) []Transaction {
	out := make([]Transaction, 0, len(in))
	for _, t := range in {
		if pred(t) {
			out = append(out, t)
		}
	}
	return out
}
