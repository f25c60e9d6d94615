/*
step.go - The single shared date-stepping function

PURPOSE:
  Maps (date, frequency) to the next due date for one frequency unit.
  This is the ONLY place stepping logic lives: both the forecasting path
  (generate.go) and the posting path that advances a rule's cursor after
  an occurrence posts call this same function. Duplicating it would let
  forecasts drift from what actually posts.

CLAMPING POLICY:
  Step is a pure function of the date it is given; it carries no memory of
  the rule's original anchor day. A MONTHLY rule anchored on Jan 31 steps
  to Feb 28, and from there to Mar 28 - once clamped into a short month it
  stays clamped. The posting collaborator only persists a cursor date, so
  an anchor-remembering policy would make forecast and posted cursors
  disagree the first time a short month occurred.

SEE ALSO:
  - generate.go: bounded iteration over Step
  - posting/service.go: cursor advancement after posting
*/
package schedule

// Step returns the due date one frequency unit after d. The second return
// is false when the frequency has no further occurrence (ONCE, or an
// unrecognized frequency), in which case the returned date is unchanged.
func Step(d Date, freq Frequency) (Date, bool) {
	switch freq {
	case FreqDaily:
		return d.AddDays(1), true
	case FreqWeekly:
		return d.AddDays(7), true
	case FreqBiweekly:
		return d.AddDays(14), true
	case FreqMonthly:
		return d.AddMonths(1), true
	case FreqQuarterly:
		return d.AddMonths(3), true
	case FreqYearly:
		return d.AddYears(1), true
	case FreqOnce:
		return d, false
	default:
		return d, false
	}
}
