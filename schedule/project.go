/*
project.go - Occurrence classification and ordering

PURPOSE:
  Takes raw generated occurrences and stamps each with a status relative
  to the window's injected today, plus a signed whole-day offset. Also
  hosts the consumer-side filters (dashboard bills widget) and the stable
  chronological ordering every consumer relies on.

CLASSIFICATION:
  OVERDUE   dueDate <  today
  DUE_TODAY dueDate == today
  UPCOMING  dueDate >  today

ORDERING:
  Ascending due date; ties broken by rule creation order, then sequence
  index. The tie-break is total, so repeated calls over identical input
  produce identical ordering.
*/
package schedule

import "sort"

// Project returns a classified, chronologically ordered copy of occs.
// The input slice is not modified.
func Project(occs []Occurrence, window ProjectionWindow) []Occurrence {
	out := make([]Occurrence, len(occs))
	copy(out, occs)

	for i := range out {
		out[i].DaysUntilDue = DaysBetween(window.Today, out[i].DueDate)
		switch {
		case out[i].DaysUntilDue < 0:
			out[i].Status = StatusOverdue
		case out[i].DaysUntilDue == 0:
			out[i].Status = StatusDueToday
		default:
			out[i].Status = StatusUpcoming
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		if out[i].rulePosition != out[j].rulePosition {
			return out[i].rulePosition < out[j].rulePosition
		}
		if out[i].RuleID != out[j].RuleID {
			return out[i].RuleID < out[j].RuleID
		}
		return out[i].SequenceIndex < out[j].SequenceIndex
	})
	return out
}

// UpcomingBillsWidgetDays is the dashboard widget's forward window.
const UpcomingBillsWidgetDays = 7

// UpcomingBills filters projected occurrences down to the dashboard
// "upcoming bills" widget view: outflows only, no transfers, due between
// today and seven days out. Limit <= 0 means no limit.
func UpcomingBills(projected []Occurrence, limit int) []Occurrence {
	var out []Occurrence
	for _, occ := range projected {
		if occ.IsTransfer || !occ.Amount.IsNegative() {
			continue
		}
		if occ.DaysUntilDue < 0 || occ.DaysUntilDue > UpcomingBillsWidgetDays {
			continue
		}
		out = append(out, occ)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// WithStatus filters projected occurrences to those matching any of the
// given statuses.
func WithStatus(projected []Occurrence, statuses ...Status) []Occurrence {
	var out []Occurrence
	for _, occ := range projected {
		for _, s := range statuses {
			if occ.Status == s {
				out = append(out, occ)
				break
			}
		}
	}
	return out
}
