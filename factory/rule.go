/*
Package factory provides JSON to RecurrenceRule conversion.

PURPOSE:
  Converts JSON schedule definitions into schedule.RecurrenceRule values.
  Rule definitions arrive from storage rows and API payloads; this is the
  one place their fields are validated and defaulted.

DEFENSIVE PARSING:
  The occurrence pipeline is a display path - one bad schedule must never
  blank an entire dashboard. ParseRule therefore distinguishes:
  - Hard-invalid (unknown frequency, missing id): error, caller skips + logs
  - Soft-invalid (unparseable cursor date): rule returned inactive, so it
    generates nothing but still lists and can be repaired

JSON SCHEMA:
  {
    "id": "rent",
    "display_name": "Rent",
    "frequency": "MONTHLY",
    "cursor_date": "2026-03-01",
    "amount": "-1500.00",
    "currency_code": "USD",
    "is_transfer": false,
    "auto_post": true,
    "is_active": true
  }

USAGE:
  rule, err := factory.ParseRule(payload)
  if err != nil {
      log.Printf("skipping malformed schedule: %v", err)
  }

SEE ALSO:
  - schedule/types.go: RecurrenceRule definition
  - store/sqlite: persists rules through this schema
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/schedule"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the wire and storage representation of a schedule definition.
type RuleJSON struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name,omitempty"`
	Frequency    string `json:"frequency"`
	CursorDate   string `json:"cursor_date"`
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currency_code,omitempty"`
	IsTransfer   bool   `json:"is_transfer,omitempty"`
	AutoPost     bool   `json:"auto_post,omitempty"`
	IsActive     *bool  `json:"is_active,omitempty"` // nil defaults to true
	Position     int    `json:"position,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseRule converts a RuleJSON into a RecurrenceRule, validating the
// fields the engine interprets and defaulting the rest.
func ParseRule(j RuleJSON) (schedule.RecurrenceRule, error) {
	if strings.TrimSpace(j.ID) == "" {
		return schedule.RecurrenceRule{}, fmt.Errorf("schedule is missing an id")
	}

	freq := schedule.Frequency(strings.ToUpper(strings.TrimSpace(j.Frequency)))
	if !freq.Valid() {
		return schedule.RecurrenceRule{}, fmt.Errorf("schedule %q: unknown frequency %q", j.ID, j.Frequency)
	}

	amount := decimal.Zero
	if j.Amount != "" {
		parsed, err := decimal.NewFromString(j.Amount)
		if err != nil {
			return schedule.RecurrenceRule{}, fmt.Errorf("schedule %q: bad amount %q: %w", j.ID, j.Amount, err)
		}
		amount = parsed
	}

	rule := schedule.RecurrenceRule{
		ID:           schedule.RuleID(j.ID),
		DisplayName:  j.DisplayName,
		Frequency:    freq,
		IsActive:     j.IsActive == nil || *j.IsActive,
		Amount:       amount,
		CurrencyCode: j.CurrencyCode,
		IsTransfer:   j.IsTransfer,
		AutoPost:     j.AutoPost,
		Position:     j.Position,
	}
	if rule.DisplayName == "" {
		rule.DisplayName = j.ID
	}
	if rule.CurrencyCode == "" {
		rule.CurrencyCode = "USD"
	}

	cursor, err := schedule.ParseDate(j.CursorDate)
	if err != nil {
		// Treat an unparseable cursor as inactive rather than failing:
		// the rule generates nothing but stays visible for repair.
		rule.IsActive = false
		return rule, nil
	}
	rule.CursorDate = cursor

	return rule, nil
}

// ParseRuleString parses a JSON document into a RecurrenceRule.
func ParseRuleString(raw string) (schedule.RecurrenceRule, error) {
	var j RuleJSON
	if err := json.Unmarshal([]byte(raw), &j); err != nil {
		return schedule.RecurrenceRule{}, fmt.Errorf("invalid schedule JSON: %w", err)
	}
	return ParseRule(j)
}

// ParseRules converts a batch, skipping malformed definitions. The second
// return lists one error per skipped rule; the batch itself never fails.
func ParseRules(defs []RuleJSON) ([]schedule.RecurrenceRule, []error) {
	var (
		rules []schedule.RecurrenceRule
		errs  []error
	)
	for _, def := range defs {
		rule, err := ParseRule(def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, errs
}

// RuleToJSON converts a RecurrenceRule back into its wire representation.
func RuleToJSON(r schedule.RecurrenceRule) RuleJSON {
	active := r.IsActive
	return RuleJSON{
		ID:           string(r.ID),
		DisplayName:  r.DisplayName,
		Frequency:    string(r.Frequency),
		CursorDate:   r.CursorDate.Key(),
		Amount:       r.Amount.String(),
		CurrencyCode: r.CurrencyCode,
		IsTransfer:   r.IsTransfer,
		AutoPost:     r.AutoPost,
		IsActive:     &active,
		Position:     r.Position,
	}
}
