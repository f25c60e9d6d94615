/*
store.go - Persistence interfaces for schedules and posted entries

PURPOSE:
  Defines the storage contract the posting workflow (and the API layer)
  depend on. The occurrence engine itself never touches these - it only
  sees rule snapshots the caller already fetched.

IMPLEMENTATIONS:
  store/sqlite: production store
  store/memory: in-memory twin for tests

APPEND-ONLY ENTRIES:
  Posted entries are an immutable record of what actually posted. There is
  no update or delete; a duplicate (rule, due date) append is rejected via
  the entry's idempotency key.
*/
package posting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/schedule"
)

// PostedEntry records one occurrence materialized into the ledger.
type PostedEntry struct {
	// ID doubles as the idempotency key: "<ruleID>@<dueDate>".
	ID           string
	RuleID       schedule.RuleID
	DueDate      schedule.Date
	Amount       decimal.Decimal
	CurrencyCode string
	DisplayName  string
	PostedAt     time.Time
}

// EntryKey builds the idempotency key for a rule occurrence.
func EntryKey(ruleID schedule.RuleID, dueDate schedule.Date) string {
	return string(ruleID) + "@" + dueDate.Key()
}

// RuleStore persists schedule definitions.
type RuleStore interface {
	// ListRules returns all rules in creation order.
	ListRules(ctx context.Context) ([]schedule.RecurrenceRule, error)

	// GetRule returns a rule by id, or nil when absent.
	GetRule(ctx context.Context, id schedule.RuleID) (*schedule.RecurrenceRule, error)

	// SaveRule inserts or replaces a rule definition.
	SaveRule(ctx context.Context, rule schedule.RecurrenceRule) error

	// DeleteRule removes a rule definition.
	DeleteRule(ctx context.Context, id schedule.RuleID) error

	// AdvanceCursor moves a rule's next-due pointer. Only the posting
	// workflow calls this.
	AdvanceCursor(ctx context.Context, id schedule.RuleID, next schedule.Date) error

	// SetActive toggles a rule without touching its cursor.
	SetActive(ctx context.Context, id schedule.RuleID, active bool) error
}

// EntryStore persists posted entries. Append-only.
type EntryStore interface {
	// AppendEntry records a posted occurrence. Returns ErrDuplicateEntry
	// when the entry's key was already posted.
	AppendEntry(ctx context.Context, entry PostedEntry) error

	// ListEntries returns entries for one rule, oldest first. An empty
	// ruleID returns everything.
	ListEntries(ctx context.Context, ruleID schedule.RuleID) ([]PostedEntry, error)
}
