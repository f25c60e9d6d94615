/*
calendar.go - Month grid aggregation

PURPOSE:
  Builds the fixed-shape month grid the bills calendar renders: complete
  Sunday-through-Saturday weeks covering the whole month, with leading and
  trailing days borrowed from the adjacent months. Projected occurrences
  are bucketed into cells by ISO date key, never by timestamp equality.

TRUNCATION:
  Every cell carries the FULL occurrence list for its day. Collapsing a
  busy day into "+N more" is a presentation decision; the grid never drops
  data.
*/
package schedule

import "time"

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date           Date
	InCurrentMonth bool
	IsToday        bool
	Occurrences    []Occurrence
}

// CalendarGrid is a whole number of 7-day weeks covering Month.
type CalendarGrid struct {
	Month Month
	Days  []CalendarDay
}

// Weeks returns the number of 7-day rows in the grid.
func (g CalendarGrid) Weeks() int { return len(g.Days) / 7 }

// BuildGrid lays out the grid for month and buckets the given projected
// occurrences into its cells. The range starts at the most recent Sunday
// on or before the 1st and ends at the nearest Saturday on or after the
// month's last day.
func BuildGrid(month Month, today Date, occs []Occurrence) CalendarGrid {
	start := month.First().AddDays(-int(month.First().Weekday()))
	end := month.Last().AddDays(int(time.Saturday - month.Last().Weekday()))

	byDay := make(map[string][]Occurrence)
	for _, occ := range occs {
		k := occ.DueDate.Key()
		byDay[k] = append(byDay[k], occ)
	}

	grid := CalendarGrid{Month: month}
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		grid.Days = append(grid.Days, CalendarDay{
			Date:           d,
			InCurrentMonth: month.Contains(d),
			IsToday:        d.Equal(today),
			Occurrences:    byDay[d.Key()],
		})
	}
	return grid
}
