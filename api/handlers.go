/*
handlers.go - HTTP API handlers for the occurrence engine

PURPOSE:
  Exposes schedule management and the occurrence pipeline via REST.
  Handles HTTP request/response, JSON serialization, and delegates to the
  schedule engine and posting service.

ENDPOINTS:
  Schedules:
    GET    /api/schedules                  List schedule definitions
    POST   /api/schedules                  Create/replace a schedule
    GET    /api/schedules/{id}             Get one schedule
    DELETE /api/schedules/{id}             Delete a schedule
    POST   /api/schedules/{id}/post        Post the next occurrence
    GET    /api/schedules/{id}/entries     Posted history for a schedule

  Projections:
    GET    /api/schedules/occurrences      Flat chronological occurrence list
    GET    /api/schedules/calendar         Month grid + summary totals
    GET    /api/dashboard/upcoming         7-day upcoming-bills widget

  Admin:
    POST   /api/admin/post-due             Run the auto-post sweep now

CLOCK:
  Every projection endpoint accepts ?today=YYYY-MM-DD. Absent that, the
  handler injects the server's current date. The engine itself never
  reads a clock, which is what keeps these endpoints reproducible under
  test.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Schedule not found
  - 409: Conflict (already posted, inactive schedule)
  - 500: Internal errors
  A malformed stored schedule is skipped and logged, never a 500 for the
  whole batch.

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Background auto-posting
*/
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/billing-engine/factory"
	"github.com/warp/billing-engine/posting"
	"github.com/warp/billing-engine/schedule"
	"github.com/warp/billing-engine/store/sqlite"
)

const defaultWidgetLimit = 5

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Posting *posting.Service
}

// NewHandler creates a new handler backed by the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Posting: posting.NewService(store, store),
	}
}

// =============================================================================
// SCHEDULE MANAGEMENT
// =============================================================================

// ListSchedules returns all schedule definitions.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	dtos := make([]factory.RuleJSON, len(rules))
	for i, rule := range rules {
		dtos[i] = factory.RuleToJSON(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSchedule returns a single schedule definition.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	rule, err := h.Store.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get schedule", err)
		return
	}
	if rule == nil {
		writeError(w, http.StatusNotFound, "Schedule not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, factory.RuleToJSON(*rule))
}

// CreateSchedule creates or replaces a schedule definition.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var def factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule, err := factory.ParseRule(def)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule definition", err)
		return
	}

	if err := h.Store.SaveRule(r.Context(), rule); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save schedule", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.RuleToJSON(rule))
}

// DeleteSchedule removes a schedule definition.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteRule(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// =============================================================================
// PROJECTION ENDPOINTS
// =============================================================================

// ListOccurrences returns the flat chronological occurrence list:
// GET /api/schedules/occurrences?horizonMonths=N&cap=M&today=YYYY-MM-DD
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	window, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	projected := schedule.Project(schedule.GenerateAll(rules, window), window)
	projected = paginate(projected, r)

	writeJSON(w, http.StatusOK, occurrenceDTOs(projected))
}

// Calendar returns the month grid plus summary totals:
// GET /api/schedules/calendar?month=YYYY-MM&today=YYYY-MM-DD
func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	window, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	month := schedule.MonthOf(window.Today)
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := schedule.ParseMonth(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		month = parsed
	}

	// Widen the horizon so the displayed month is fully covered even when
	// the client navigated several months ahead.
	if ahead := monthsAhead(window.Today, month); ahead+1 > window.HorizonMonths {
		window.HorizonMonths = ahead + 1
	}

	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	projected := schedule.Project(schedule.GenerateAll(rules, window), window)
	grid := schedule.BuildGrid(month, window.Today, projected)
	summary := schedule.Summarize(projected, month)

	days := make([]CalendarDayDTO, len(grid.Days))
	for i, day := range grid.Days {
		days[i] = CalendarDayDTO{
			Date:           day.Date.Key(),
			InCurrentMonth: day.InCurrentMonth,
			IsToday:        day.IsToday,
			Occurrences:    occurrenceDTOs(day.Occurrences),
		}
	}

	writeJSON(w, http.StatusOK, CalendarResponse{
		Month:   month.String(),
		Weeks:   grid.Weeks(),
		Days:    days,
		Summary: summaryDTO(summary),
	})
}

// DashboardUpcoming returns the upcoming-bills widget:
// GET /api/dashboard/upcoming?limit=N&today=YYYY-MM-DD
func (h *Handler) DashboardUpcoming(w http.ResponseWriter, r *http.Request) {
	window, ok := h.parseWindow(w, r)
	if !ok {
		return
	}
	// The widget looks one week out; a single projection month covers it.
	window.HorizonMonths = 1

	limit := defaultWidgetLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	rules, err := h.Store.ListRules(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	projected := schedule.Project(schedule.GenerateAll(rules, window), window)
	writeJSON(w, http.StatusOK, occurrenceDTOs(schedule.UpcomingBills(projected, limit)))
}

// =============================================================================
// POSTING ENDPOINTS
// =============================================================================

// PostSchedule posts the next occurrence of one schedule.
func (h *Handler) PostSchedule(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	entry, err := h.Posting.PostNext(r.Context(), id)
	switch {
	case errors.Is(err, posting.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, "Schedule not found", nil)
		return
	case errors.Is(err, posting.ErrRuleInactive):
		writeError(w, http.StatusConflict, "Schedule is inactive", nil)
		return
	case errors.Is(err, posting.ErrDuplicateEntry):
		writeError(w, http.StatusConflict, "Occurrence already posted", nil)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to post occurrence", err)
		return
	}
	writeJSON(w, http.StatusCreated, postedEntryDTO(*entry))
}

// ListEntries returns the posted history for one schedule.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := schedule.RuleID(chi.URLParam(r, "id"))

	entries, err := h.Store.ListEntries(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list posted entries", err)
		return
	}

	dtos := make([]PostedEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = postedEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PostDueNow runs the auto-post sweep immediately.
func (h *Handler) PostDueNow(w http.ResponseWriter, r *http.Request) {
	today, ok := h.parseToday(w, r)
	if !ok {
		return
	}

	posted, err := h.Posting.PostDue(r.Context(), today)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Auto-post sweep failed", err)
		return
	}
	log.Printf("[API] auto-post sweep: %d entries posted", posted)
	writeJSON(w, http.StatusOK, map[string]any{"posted": posted})
}

// =============================================================================
// REQUEST PARSING HELPERS
// =============================================================================

// parseWindow builds the projection window from query parameters,
// injecting the server date when the client doesn't override it.
// Out-of-range bounds clamp inside the engine.
func (h *Handler) parseWindow(w http.ResponseWriter, r *http.Request) (schedule.ProjectionWindow, bool) {
	today, ok := h.parseToday(w, r)
	if !ok {
		return schedule.ProjectionWindow{}, false
	}

	window := schedule.ProjectionWindow{Today: today}
	q := r.URL.Query()
	if raw := q.Get("horizonMonths"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid horizonMonths", err)
			return window, false
		}
		window.HorizonMonths = n
	}
	if raw := q.Get("cap"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid cap", err)
			return window, false
		}
		window.MaxOccurrencesPerRule = n
	}
	return window.Clamped(), true
}

func (h *Handler) parseToday(w http.ResponseWriter, r *http.Request) (schedule.Date, bool) {
	raw := r.URL.Query().Get("today")
	if raw == "" {
		return schedule.DateOf(time.Now()), true
	}
	today, err := schedule.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid today (use YYYY-MM-DD)", err)
		return schedule.Date{}, false
	}
	return today, true
}

// paginate applies optional offset/limit query parameters to the flat list.
func paginate(occs []schedule.Occurrence, r *http.Request) []schedule.Occurrence {
	q := r.URL.Query()
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			if n >= len(occs) {
				return nil
			}
			occs = occs[n:]
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < len(occs) {
			occs = occs[:n]
		}
	}
	return occs
}

// monthsAhead returns how many whole months ahead of today's month the
// displayed month is (0 for the current or any past month).
func monthsAhead(today schedule.Date, month schedule.Month) int {
	n := (month.Year-today.Year())*12 + int(month.Month) - int(today.Month())
	if n < 0 {
		return 0
	}
	return n
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
