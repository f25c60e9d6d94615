/*
engine_test.go - Executable scenarios for the occurrence pipeline

PURPOSE:
  End-to-end scenarios over the whole generate -> project -> aggregate
  pipeline, written as documentation of the engine's externally observable
  behavior. Component-level edge cases live in the per-file tests.

READING THESE TESTS:
  Each test has a descriptive name, GIVEN/WHEN/THEN comments, and asserts
  exact dates and statuses rather than approximations.
*/
package schedule_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/schedule"
)

func TestScenario_WeeklyRuleStraddlingToday(t *testing.T) {
	// GIVEN: A weekly rule cursored one week in the past
	// WHEN: Projecting with today = 2026-02-17 and a 1-month horizon
	// THEN: The first three occurrences are last week (OVERDUE),
	//       today (DUE_TODAY), and next week (UPCOMING)

	rule := bill("gym", schedule.FreqWeekly, schedule.NewDate(2026, time.February, 10))
	w := window(schedule.NewDate(2026, time.February, 17), 1)

	got := schedule.Project(schedule.Generate(rule, w), w)
	if len(got) < 3 {
		t.Fatalf("got %d occurrences, want at least 3", len(got))
	}

	want := []struct {
		date   string
		status schedule.Status
	}{
		{"2026-02-10", schedule.StatusOverdue},
		{"2026-02-17", schedule.StatusDueToday},
		{"2026-02-24", schedule.StatusUpcoming},
	}
	for i, wi := range want {
		if got[i].DueDate.Key() != wi.date || got[i].Status != wi.status {
			t.Errorf("occurrence %d = %s %s, want %s %s",
				i, got[i].DueDate, got[i].Status, wi.date, wi.status)
		}
	}
}

func TestScenario_MonthEndAnchorClampsPermanently(t *testing.T) {
	// GIVEN: A monthly rule anchored on Jan 31 in a non-leap year
	// WHEN: Generating three months out
	// THEN: Jan 31, Feb 28, then Mar 28 - the stateless step keeps the
	//       clamped day rather than snapping back to the 31st

	rule := bill("rent", schedule.FreqMonthly, schedule.NewDate(2026, time.January, 31))
	got := schedule.Generate(rule, window(schedule.NewDate(2026, time.January, 31), 3))

	want := []string{"2026-01-31", "2026-02-28", "2026-03-28", "2026-04-28"}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences %v, want %d", len(got), dueDates(got), len(want))
	}
	for i, w := range want {
		if got[i].DueDate.Key() != w {
			t.Errorf("occurrence %d = %s, want %s", i, got[i].DueDate, w)
		}
	}
}

func TestScenario_BiweeklyFromToday(t *testing.T) {
	// GIVEN: A biweekly rule cursored exactly on today
	// WHEN: Generating with a 1-month horizon
	// THEN: Occurrences spaced exactly 14 days apart

	today := schedule.NewDate(2026, time.February, 17)
	rule := bill("paycheck-deduction", schedule.FreqBiweekly, today)

	got := schedule.Generate(rule, window(today, 1))
	if len(got) < 2 || len(got) > 3 {
		t.Fatalf("got %d occurrences, want 2-3: %v", len(got), dueDates(got))
	}
	for i := 1; i < len(got); i++ {
		if gap := schedule.DaysBetween(got[i-1].DueDate, got[i].DueDate); gap != 14 {
			t.Errorf("gap %d = %d days, want exactly 14", i, gap)
		}
	}
}

func TestScenario_OnceOverdueRegardlessOfHorizon(t *testing.T) {
	// GIVEN: A ONCE rule due 10 days ago
	// WHEN: Projecting with wildly different horizons
	// THEN: Exactly one OVERDUE occurrence every time

	today := schedule.NewDate(2026, time.June, 15)
	rule := bill("annual-fee", schedule.FreqOnce, today.AddDays(-10))

	for _, horizon := range []int{1, 12, 120} {
		w := window(today, horizon)
		got := schedule.Project(schedule.Generate(rule, w), w)
		if len(got) != 1 {
			t.Fatalf("horizon %d: got %d occurrences, want 1", horizon, len(got))
		}
		if got[0].Status != schedule.StatusOverdue {
			t.Errorf("horizon %d: status = %s, want OVERDUE", horizon, got[0].Status)
		}
		if got[0].DaysUntilDue != -10 {
			t.Errorf("horizon %d: daysUntilDue = %d, want -10", horizon, got[0].DaysUntilDue)
		}
	}
}

func TestScenario_FullPipelineForOneMonth(t *testing.T) {
	// GIVEN: A realistic rule set - rent, salary, a missed bill, a transfer
	// WHEN: Running generate -> project -> grid + summary for March 2026
	// THEN: Each aggregate sees a consistent view of the same occurrences

	today := schedule.NewDate(2026, time.March, 10)
	month := schedule.MonthOf(today)
	w := window(today, 1)

	rules := []schedule.RecurrenceRule{
		{
			ID: "rent", DisplayName: "Rent", Frequency: schedule.FreqMonthly,
			CursorDate: schedule.NewDate(2026, time.March, 1), IsActive: true,
			Amount: decimal.RequireFromString("-1500"), Position: 1,
		},
		{
			ID: "salary", DisplayName: "Salary", Frequency: schedule.FreqMonthly,
			CursorDate: schedule.NewDate(2026, time.March, 25), IsActive: true,
			Amount: decimal.RequireFromString("4200"), Position: 2,
		},
		{
			ID: "missed-sub", DisplayName: "Streaming", Frequency: schedule.FreqMonthly,
			CursorDate: schedule.NewDate(2026, time.February, 27), IsActive: true,
			Amount: decimal.RequireFromString("-15.99"), Position: 3,
		},
		{
			ID: "savings", DisplayName: "Savings transfer", Frequency: schedule.FreqMonthly,
			CursorDate: schedule.NewDate(2026, time.March, 12), IsActive: true,
			Amount: decimal.RequireFromString("-300"), IsTransfer: true, Position: 4,
		},
	}

	projected := schedule.Project(schedule.GenerateAll(rules, w), w)

	// The rent occurrence from March 1 is overdue; so are the streaming
	// occurrences from Feb 27 and the already-elapsed March portion.
	summary := schedule.Summarize(projected, month)
	if summary.OverdueCount == 0 {
		t.Error("expected overdue occurrences in summary")
	}

	grid := schedule.BuildGrid(month, today, projected)
	if len(grid.Days)%7 != 0 {
		t.Error("grid must be whole weeks")
	}

	gridTotal := 0
	inMonth := 0
	for _, day := range grid.Days {
		gridTotal += len(day.Occurrences)
		if day.InCurrentMonth {
			inMonth += len(day.Occurrences)
		}
	}
	if gridTotal == 0 {
		t.Fatal("grid carries no occurrences")
	}

	// Every projected occurrence inside the grid's date range appears in
	// exactly one cell.
	start, end := grid.Days[0].Date, grid.Days[len(grid.Days)-1].Date
	wantInGrid := 0
	for _, occ := range projected {
		if occ.DueDate.AfterOrEqual(start) && occ.DueDate.BeforeOrEqual(end) {
			wantInGrid++
		}
	}
	if gridTotal != wantInGrid {
		t.Errorf("grid carries %d occurrences, want %d", gridTotal, wantInGrid)
	}

	// Widget: bills only, so salary and the savings transfer never appear.
	for _, occ := range schedule.UpcomingBills(projected, 0) {
		if occ.RuleID == "salary" || occ.RuleID == "savings" {
			t.Errorf("%s leaked into the bills widget", occ.RuleID)
		}
	}
}
