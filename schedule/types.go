/*
Package schedule is the recurring-transaction occurrence engine.

PURPOSE:
  Given declarative repeating-schedule definitions (rent, salary,
  subscriptions), this package computes the concrete future calendar dates
  on which each falls due, classifies every occurrence as overdue /
  due-today / upcoming, and aggregates results into calendar grids and
  summary totals.

KEY CONCEPTS IN THIS FILE (types.go):
  - RecurrenceRule: the declarative definition of a repeating schedule
  - Frequency: how the schedule repeats (ONCE through YEARLY)
  - Occurrence: one concrete instance of a rule on a specific date
  - ProjectionWindow: injected "today" plus horizon and safety cap

DESIGN PRINCIPLES:
  1. Purity: every stage is a stateless transform over immutable snapshots;
     no storage access, no clock reads. "Today" always arrives as input.
  2. Precision: amounts are decimal.Decimal, never binary floating point.
  3. Calendar dates only: all dates are timezone-free Date values keyed by
     their ISO form, never compared as timestamps.

PIPELINE:
  rules -> Generate -> Project -> {BuildGrid, Summarize}

SEE ALSO:
  - step.go: single shared date-stepping function
  - generate.go: bounded occurrence generation
  - project.go: classification, filtering, ordering
  - calendar.go: month grid aggregation
  - summary.go: overdue / this-month totals
*/
package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	FreqOnce      Frequency = "ONCE"
	FreqDaily     Frequency = "DAILY"
	FreqWeekly    Frequency = "WEEKLY"
	FreqBiweekly  Frequency = "BIWEEKLY"
	FreqMonthly   Frequency = "MONTHLY"
	FreqQuarterly Frequency = "QUARTERLY"
	FreqYearly    Frequency = "YEARLY"
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FreqOnce, FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqQuarterly, FreqYearly:
		return true
	}
	return false
}

// =============================================================================
// RECURRENCE RULE - Input snapshot
// =============================================================================

type RuleID string

// RecurrenceRule is a snapshot of one repeating schedule. The engine never
// mutates it; CursorDate is advanced only by the posting collaborator.
type RecurrenceRule struct {
	ID          RuleID
	DisplayName string
	Frequency   Frequency

	// CursorDate is the authoritative "next due" pointer.
	CursorDate Date

	IsActive bool

	// Amount sign encodes direction: negative = outflow (a bill).
	Amount       decimal.Decimal
	CurrencyCode string
	IsTransfer   bool
	AutoPost     bool

	// Position is the rule's creation order, used as the stable secondary
	// sort key so repeated projections order ties identically.
	Position int
}

// IsBill reports whether the rule represents money leaving an account.
func (r RecurrenceRule) IsBill() bool {
	return r.Amount.IsNegative() && !r.IsTransfer
}

// =============================================================================
// OCCURRENCE - Derived, never persisted
// =============================================================================

type Status string

const (
	StatusOverdue  Status = "OVERDUE"
	StatusDueToday Status = "DUE_TODAY"
	StatusUpcoming Status = "UPCOMING"
)

// Occurrence is one concrete instance of a rule on a specific calendar date.
// For a fixed rule, dates are strictly increasing except the degenerate
// single-occurrence ONCE case.
type Occurrence struct {
	RuleID  RuleID
	DueDate Date
	Amount  decimal.Decimal

	// Populated by the projector.
	Status       Status
	DaysUntilDue int

	// SequenceIndex is 0-based and monotonic per rule.
	SequenceIndex int

	// Passthrough for consumer-side filtering and display.
	DisplayName  string
	CurrencyCode string
	IsTransfer   bool
	AutoPost     bool

	rulePosition int
}

// =============================================================================
// PROJECTION WINDOW
// =============================================================================

const (
	DefaultHorizonMonths         = 3
	DefaultMaxOccurrencesPerRule = 100
)

// ProjectionWindow bounds a projection. Today is an injected clock value:
// the engine never reads the system clock, so identical windows always
// produce identical output.
type ProjectionWindow struct {
	Today                 Date
	HorizonMonths         int
	MaxOccurrencesPerRule int
}

// Clamped returns a copy with out-of-range bounds replaced by sane
// defaults. A negative or zero horizon or cap is a caller bug, not a
// reason to error on a display path.
func (w ProjectionWindow) Clamped() ProjectionWindow {
	if w.HorizonMonths <= 0 {
		w.HorizonMonths = DefaultHorizonMonths
	}
	if w.MaxOccurrencesPerRule <= 0 {
		w.MaxOccurrencesPerRule = DefaultMaxOccurrencesPerRule
	}
	return w
}

// Horizon returns the last date the window projects to.
func (w ProjectionWindow) Horizon() Date {
	return w.Today.AddMonths(w.HorizonMonths)
}

// =============================================================================
// MONTH - Year + month pair for calendar and summary aggregation
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

func MonthOf(d Date) Month { return Month{Year: d.Year(), Month: d.Month()} }

// ParseMonth parses an ISO "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, err
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) First() Date { return StartOfMonth(m.Year, m.Month) }
func (m Month) Last() Date  { return EndOfMonth(m.Year, m.Month) }

func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

func (m Month) Next() Month {
	d := m.First().AddMonths(1)
	return MonthOf(d)
}

func (m Month) Previous() Month {
	d := m.First().AddMonths(-1)
	return MonthOf(d)
}

func (m Month) String() string { return m.First().normalize().Format("2006-01") }
