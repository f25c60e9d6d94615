package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/billing-engine/api"
	"github.com/warp/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv := httptest.NewServer(api.NewRouter(api.NewHandler(store)))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url, body string) *http.Response {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp
}

func seedRent(t *testing.T, srv *httptest.Server) {
	resp := postJSON(t, srv.URL+"/api/schedules", `{
		"id": "rent",
		"display_name": "Rent",
		"frequency": "MONTHLY",
		"cursor_date": "2026-03-01",
		"amount": "-1500.00"
	}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// =============================================================================
// SCHEDULE CRUD
// =============================================================================

func TestCreateAndListSchedules(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRent(t, srv)

	var defs []map[string]any
	resp := getJSON(t, srv.URL+"/api/schedules", &defs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, defs, 1)
	assert.Equal(t, "rent", defs[0]["id"])
	assert.Equal(t, "MONTHLY", defs[0]["frequency"])
	assert.Equal(t, "2026-03-01", defs[0]["cursor_date"])
}

func TestCreateSchedule_InvalidFrequencyRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/schedules", `{
		"id": "bad", "frequency": "HOURLY", "cursor_date": "2026-01-01", "amount": "-1"
	}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetSchedule_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/schedules/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PROJECTION ENDPOINTS
// =============================================================================

func TestListOccurrences_FixedToday(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRent(t, srv)

	var occs []api.OccurrenceDTO
	resp := getJSON(t, srv.URL+"/api/schedules/occurrences?today=2026-03-10&horizonMonths=2", &occs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, occs)

	assert.Equal(t, "rent", occs[0].RuleID)
	assert.Equal(t, "2026-03-01", occs[0].DueDate)
	assert.Equal(t, "OVERDUE", occs[0].Status)
	assert.Equal(t, -9, occs[0].DaysUntilDue)
	assert.Equal(t, "-1500.00", occs[0].Amount)

	assert.Equal(t, "2026-04-01", occs[1].DueDate)
	assert.Equal(t, "UPCOMING", occs[1].Status)
}

func TestListOccurrences_InvalidTodayRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/schedules/occurrences?today=tomorrow")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListOccurrences_MalformedStoredRuleIsolated(t *testing.T) {
	// One hand-broken row in storage must not blank the whole response.

	srv, store := newTestServer(t)
	seedRent(t, srv)

	require.NoError(t, store.ExecRaw(`
		INSERT INTO schedules
			(id, display_name, frequency, cursor_date, amount, currency_code, position)
		VALUES ('broken', 'Broken', 'MONTHLY', 'not-a-date', '1', 'USD', 50)`))

	var occs []api.OccurrenceDTO
	resp := getJSON(t, srv.URL+"/api/schedules/occurrences?today=2026-03-10", &occs)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, occs)
	for _, occ := range occs {
		assert.NotEqual(t, "broken", occ.RuleID)
	}
}

func TestCalendar_GridAndSummary(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRent(t, srv)

	var cal api.CalendarResponse
	resp := getJSON(t, srv.URL+"/api/schedules/calendar?month=2026-03&today=2026-03-10", &cal)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "2026-03", cal.Month)
	assert.Zero(t, len(cal.Days)%7, "grid must be whole weeks")
	assert.Equal(t, len(cal.Days)/7, cal.Weeks)

	var rentDay *api.CalendarDayDTO
	for i := range cal.Days {
		if cal.Days[i].Date == "2026-03-01" {
			rentDay = &cal.Days[i]
		}
	}
	require.NotNil(t, rentDay)
	assert.Len(t, rentDay.Occurrences, 1)

	// March 1 is before today, so rent lands in the overdue bucket.
	assert.Equal(t, 1, cal.Summary.OverdueCount)
	assert.Equal(t, "1500.00", cal.Summary.OverdueTotal)
}

func TestCalendar_FutureMonthWidensHorizon(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRent(t, srv)

	var cal api.CalendarResponse
	getJSON(t, srv.URL+"/api/schedules/calendar?month=2026-08&today=2026-03-10", &cal)

	found := false
	for _, day := range cal.Days {
		if day.Date == "2026-08-01" && len(day.Occurrences) == 1 {
			found = true
		}
	}
	assert.True(t, found, "August rent occurrence should appear when viewing August")
}

func TestDashboardUpcoming_BillsOnlyWithinSevenDays(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRent(t, srv)

	// Salary (income) and a due-soon bill.
	resp := postJSON(t, srv.URL+"/api/schedules", `{
		"id": "salary", "frequency": "MONTHLY", "cursor_date": "2026-03-12", "amount": "4200"
	}`)
	resp.Body.Close()
	resp = postJSON(t, srv.URL+"/api/schedules", `{
		"id": "power", "frequency": "MONTHLY", "cursor_date": "2026-03-14", "amount": "-80.25"
	}`)
	resp.Body.Close()

	var occs []api.OccurrenceDTO
	getJSON(t, srv.URL+"/api/dashboard/upcoming?today=2026-03-10", &occs)

	require.Len(t, occs, 1, "only the power bill is a bill due within 7 days")
	assert.Equal(t, "power", occs[0].RuleID)
	assert.Equal(t, "UPCOMING", occs[0].Status)
}

// =============================================================================
// POSTING ENDPOINTS
// =============================================================================

func TestPostSchedule_AdvancesCursor(t *testing.T) {
	srv, _ := newTestServer(t)
	seedRent(t, srv)

	resp := postJSON(t, srv.URL+"/api/schedules/rent/post", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry api.PostedEntryDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	assert.Equal(t, "2026-03-01", entry.DueDate)

	var def map[string]any
	getJSON(t, srv.URL+"/api/schedules/rent", &def)
	assert.Equal(t, "2026-04-01", def["cursor_date"], "cursor must advance one month")

	var entries []api.PostedEntryDTO
	getJSON(t, srv.URL+"/api/schedules/rent/entries", &entries)
	assert.Len(t, entries, 1)
}

func TestPostSchedule_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/schedules/ghost/post", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminPostDue_SweepsAutoPostRules(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/schedules", `{
		"id": "sub", "frequency": "WEEKLY", "cursor_date": "2026-03-01",
		"amount": "-15.99", "auto_post": true
	}`)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/admin/post-due?today=2026-03-15", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, 3, result["posted"], "Mar 1, 8, 15 are all due")
}
