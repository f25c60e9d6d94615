/*
summary.go - Overdue and this-month totals

PURPOSE:
  Reduces projected occurrences into the header totals the bills report
  shows: how many occurrences are overdue and their combined size, and how
  many fall due within the displayed month.

PRECISION:
  Totals are decimal sums of abs(amount). Repeated additions of cents in
  binary floating point drift; decimal.Decimal does not.
*/
package schedule

import "github.com/shopspring/decimal"

// Summary holds the aggregate view over one displayed month.
type Summary struct {
	OverdueCount   int
	OverdueTotal   decimal.Decimal
	ThisMonthCount int
	ThisMonthTotal decimal.Decimal
}

// Summarize reduces projected occurrences against the displayed month.
// Overdue occurrences count regardless of which month they fell due in;
// the this-month bucket covers non-overdue occurrences due inside
// displayedMonth.
func Summarize(projected []Occurrence, displayedMonth Month) Summary {
	s := Summary{
		OverdueTotal:   decimal.Zero,
		ThisMonthTotal: decimal.Zero,
	}
	for _, occ := range projected {
		switch {
		case occ.Status == StatusOverdue:
			s.OverdueCount++
			s.OverdueTotal = s.OverdueTotal.Add(occ.Amount.Abs())
		case displayedMonth.Contains(occ.DueDate):
			s.ThisMonthCount++
			s.ThisMonthTotal = s.ThisMonthTotal.Add(occ.Amount.Abs())
		}
	}
	return s
}
