/*
generate.go - Bounded occurrence generation

PURPOSE:
  Walks a rule's cursor forward through Step, emitting one Occurrence per
  due date until the window's horizon or its per-rule safety cap is hit.

BOUNDS:
  The cap is a hard safety bound, enforced unconditionally: a misconfigured
  DAILY rule with a ten-year horizon still yields at most
  MaxOccurrencesPerRule occurrences. Worst-case work per rule is
  min(horizon days, cap).

PAST OCCURRENCES:
  Dates before the window's today are NOT excluded here. Overdue detection
  is the projector's job, so a rule whose cursor is far in the past still
  yields its earliest pending occurrence(s) starting exactly at the cursor.

SEE ALSO:
  - step.go: the shared stepping function
  - project.go: classification of generated occurrences
*/
package schedule

// Generate returns the ordered, finite occurrence sequence for one rule
// within the window. Inactive rules yield nil. Identical (rule, window)
// inputs always produce identical output.
func Generate(rule RecurrenceRule, window ProjectionWindow) []Occurrence {
	if !rule.IsActive || !rule.Frequency.Valid() {
		return nil
	}

	window = window.Clamped()
	horizon := window.Horizon()

	var out []Occurrence
	date := rule.CursorDate
	for len(out) < window.MaxOccurrencesPerRule {
		out = append(out, Occurrence{
			RuleID:        rule.ID,
			DueDate:       date,
			Amount:        rule.Amount,
			SequenceIndex: len(out),
			DisplayName:   rule.DisplayName,
			CurrencyCode:  rule.CurrencyCode,
			IsTransfer:    rule.IsTransfer,
			AutoPost:      rule.AutoPost,
			rulePosition:  rule.Position,
		})

		next, ok := Step(date, rule.Frequency)
		if !ok || next.After(horizon) {
			break
		}
		date = next
	}
	return out
}

// GenerateAll runs Generate over many rules and concatenates the results.
// A malformed rule (unknown frequency, zero cursor) yields nothing; it
// can never abort the batch for the remaining rules.
func GenerateAll(rules []RecurrenceRule, window ProjectionWindow) []Occurrence {
	var out []Occurrence
	for _, rule := range rules {
		if rule.CursorDate.IsZero() {
			continue
		}
		out = append(out, Generate(rule, window)...)
	}
	return out
}
