/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

DATES:
  Every date field serializes as an ISO "YYYY-MM-DD" string with no time
  component; amounts serialize as decimal strings, never floats.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON, the schedule definition payload
*/
package api

import (
	"time"

	"github.com/warp/billing-engine/posting"
	"github.com/warp/billing-engine/schedule"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// OccurrenceDTO is one projected occurrence.
type OccurrenceDTO struct {
	RuleID       string `json:"ruleId"`
	DisplayName  string `json:"displayName"`
	DueDate      string `json:"dueDate"`
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
	Status       string `json:"status"`
	DaysUntilDue int    `json:"daysUntilDue"`
}

func occurrenceDTO(occ schedule.Occurrence) OccurrenceDTO {
	return OccurrenceDTO{
		RuleID:       string(occ.RuleID),
		DisplayName:  occ.DisplayName,
		DueDate:      occ.DueDate.Key(),
		Amount:       occ.Amount.String(),
		CurrencyCode: occ.CurrencyCode,
		Status:       string(occ.Status),
		DaysUntilDue: occ.DaysUntilDue,
	}
}

func occurrenceDTOs(occs []schedule.Occurrence) []OccurrenceDTO {
	out := make([]OccurrenceDTO, len(occs))
	for i, occ := range occs {
		out[i] = occurrenceDTO(occ)
	}
	return out
}

// CalendarDayDTO is one grid cell.
type CalendarDayDTO struct {
	Date           string          `json:"date"`
	InCurrentMonth bool            `json:"inCurrentMonth"`
	IsToday        bool            `json:"isToday"`
	Occurrences    []OccurrenceDTO `json:"occurrences"`
}

// CalendarResponse is the full bills-calendar payload: the month grid
// plus summary totals for the displayed month.
type CalendarResponse struct {
	Month   string           `json:"month"`
	Weeks   int              `json:"weeks"`
	Days    []CalendarDayDTO `json:"days"`
	Summary SummaryDTO       `json:"summary"`
}

// SummaryDTO carries the overdue / this-month header totals.
type SummaryDTO struct {
	OverdueCount   int    `json:"overdueCount"`
	OverdueTotal   string `json:"overdueTotal"`
	ThisMonthCount int    `json:"thisMonthCount"`
	ThisMonthTotal string `json:"thisMonthTotal"`
}

func summaryDTO(s schedule.Summary) SummaryDTO {
	return SummaryDTO{
		OverdueCount:   s.OverdueCount,
		OverdueTotal:   s.OverdueTotal.String(),
		ThisMonthCount: s.ThisMonthCount,
		ThisMonthTotal: s.ThisMonthTotal.String(),
	}
}

// PostedEntryDTO is one posted occurrence.
type PostedEntryDTO struct {
	ID           string `json:"id"`
	RuleID       string `json:"ruleId"`
	DisplayName  string `json:"displayName"`
	DueDate      string `json:"dueDate"`
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
	PostedAt     string `json:"postedAt"`
}

func postedEntryDTO(e posting.PostedEntry) PostedEntryDTO {
	return PostedEntryDTO{
		ID:           e.ID,
		RuleID:       string(e.RuleID),
		DisplayName:  e.DisplayName,
		DueDate:      e.DueDate.Key(),
		Amount:       e.Amount.String(),
		CurrencyCode: e.CurrencyCode,
		PostedAt:     e.PostedAt.UTC().Format(time.RFC3339),
	}
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
