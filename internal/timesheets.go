package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// computeTimesheetTotals sums the grid the way the weekly view displays it:
// one total per project row, one per day column, and a grand total.
func computeTimesheetTotals(grid models.TimesheetGrid) models.TimesheetTotals {
	totals := models.TimesheetTotals{
		ByProject: map[int64]float64{},
		ByDay:     map[string]float64{},
	}
	for projectID, days := range grid {
		for day, hours := range days {
			totals.ByProject[projectID] += hours
			totals.ByDay[day] += hours
			totals.Grand += hours
		}
	}
	return totals
}

// isAllowedHours matches the fixed dropdown the entry grid offers: half-hour
// steps from 0 to 24.
func isAllowedHours(h float64) bool {
	if h < 0 || h > 24 {
		return false
	}
	doubled := h * 2
	return doubled == float64(int(doubled))
}

// validateGrid checks every cell: allowed hour values, parseable dates, and
// all dates inside the week starting at weekStart.
func validateGrid(grid models.TimesheetGrid, weekStart string) error {
	ws, err := time.Parse(dateLayout, weekStart)
	if err != nil {
		return fmt.Errorf("invalid week_start: %w", err)
	}
	if ws.Weekday() != time.Monday {
		return fmt.Errorf("week_start must be a Monday")
	}
	weekEnd := ws.AddDate(0, 0, 6)
	for projectID, days := range grid {
		if projectID <= 0 {
			return fmt.Errorf("invalid project id %d", projectID)
		}
		for day, hours := range days {
			d, err := time.Parse(dateLayout, day)
			if err != nil {
				return fmt.Errorf("invalid date %q", day)
			}
			if d.Before(ws) || d.After(weekEnd) {
				return fmt.Errorf("date %s is outside the week of %s", day, weekStart)
			}
			if !isAllowedHours(hours) {
				return fmt.Errorf("hours for %s must be between 0 and 24 in half-hour steps", day)
			}
		}
	}
	return nil
}

// zeroFilledGrid builds the empty week the UI starts from: every active
// project of the org, every day of the week, zero hours.
func zeroFilledGrid(projectIDs []int64, weekStart string) models.TimesheetGrid {
	grid := models.TimesheetGrid{}
	ws, err := time.Parse(dateLayout, weekStart)
	if err != nil {
		return grid
	}
	for _, id := range projectIDs {
		days := map[string]float64{}
		for i := 0; i < 7; i++ {
			days[ws.AddDate(0, 0, i).Format(dateLayout)] = 0
		}
		grid[id] = days
	}
	return grid
}

// getTimesheet returns the caller's sheet for one week, zero-filled from the
// org's active projects when no record exists yet.
func (s *Server) getTimesheet(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	weekStart := r.URL.Query().Get("week_start")
	ws, err := time.Parse(dateLayout, weekStart)
	if err != nil || ws.Weekday() != time.Monday {
		http.Error(w, "week_start must be a Monday in YYYY-MM-DD format", http.StatusBadRequest)
		return
	}

	var ts models.Timesheet
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT id, org_id, user_id, to_char(week_start, 'YYYY-MM-DD'), status, grid, created_at, updated_at
		FROM timesheets WHERE org_id = $1 AND user_id = $2 AND week_start = $3`,
		orgID, userID, weekStart).Scan(
		&ts.ID, &ts.OrgID, &ts.UserID, &ts.WeekStart, &ts.Status, &ts.Grid, &ts.CreatedAt, &ts.UpdatedAt)

	if err == sql.ErrNoRows {
		// Unsaved week: return a draft grid of zeros over active projects
		rows, qerr := dbFrom(r.Context(), s.DB).QueryContext(r.Context(),
			`SELECT id FROM projects WHERE org_id = $1 AND status = 'active' ORDER BY id`, orgID)
		if qerr != nil {
			http.Error(w, qerr.Error(), 500)
			return
		}
		defer rows.Close()
		var projectIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			projectIDs = append(projectIDs, id)
		}
		ts = models.Timesheet{
			OrgID:     orgID,
			UserID:    userID,
			WeekStart: weekStart,
			Status:    "draft",
			Grid:      zeroFilledGrid(projectIDs, weekStart),
		}
	} else if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	resp := models.TimesheetResponse{
		Timesheet: ts,
		Totals:    computeTimesheetTotals(ts.Grid),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// saveTimesheet upserts the caller's full grid for one week.
func (s *Server) saveTimesheet(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	var in models.SaveTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := validateGrid(in.Grid, in.WeekStart); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	// Approved sheets are frozen; drafts and rejected sheets are editable.
	var status string
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT status FROM timesheets WHERE org_id = $1 AND user_id = $2 AND week_start = $3`,
		orgID, userID, in.WeekStart).Scan(&status)
	if err != nil && err != sql.ErrNoRows {
		http.Error(w, err.Error(), 500)
		return
	}
	if err == nil && (status == "approved" || status == "submitted") {
		http.Error(w, "timesheet is "+status+" and can no longer be edited", http.StatusConflict)
		return
	}

	var ts models.Timesheet
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO timesheets (org_id, user_id, week_start, status, grid)
		VALUES ($1, $2, $3, 'draft', $4)
		ON CONFLICT (org_id, user_id, week_start)
		DO UPDATE SET grid = EXCLUDED.grid, status = 'draft', updated_at = now()
		RETURNING id, org_id, user_id, to_char(week_start, 'YYYY-MM-DD'), status, grid, created_at, updated_at`,
		orgID, userID, in.WeekStart, in.Grid).Scan(
		&ts.ID, &ts.OrgID, &ts.UserID, &ts.WeekStart, &ts.Status, &ts.Grid, &ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	resp := models.TimesheetResponse{
		Timesheet: ts,
		Totals:    computeTimesheetTotals(ts.Grid),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// submitTimesheet moves the caller's draft to submitted.
func (s *Server) submitTimesheet(w http.ResponseWriter, r *http.Request) {
	s.transitionTimesheet(w, r, "submitted", []string{"draft", "rejected"}, true)
}

// approveTimesheet moves a submitted sheet to approved. Managers only.
func (s *Server) approveTimesheet(w http.ResponseWriter, r *http.Request) {
	s.transitionTimesheet(w, r, "approved", []string{"submitted"}, false)
}

// rejectTimesheet sends a submitted sheet back to its owner.
func (s *Server) rejectTimesheet(w http.ResponseWriter, r *http.Request) {
	s.transitionTimesheet(w, r, "rejected", []string{"submitted"}, false)
}

func (s *Server) transitionTimesheet(w http.ResponseWriter, r *http.Request, to string, from []string, ownerOnly bool) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var current string
	var ownerID int64
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		`SELECT status, user_id FROM timesheets WHERE id = $1 AND org_id = $2`, id, orgID).Scan(&current, &ownerID)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if ownerOnly && ownerID != auth.UserIDFromContext(r.Context()) {
		http.Error(w, "only the owner can submit a timesheet", http.StatusForbidden)
		return
	}

	allowed := false
	for _, f := range from {
		if current == f {
			allowed = true
			break
		}
	}
	if !allowed {
		http.Error(w, "timesheet is "+current+", cannot move to "+to, http.StatusConflict)
		return
	}

	var ts models.Timesheet
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE timesheets SET status = $1, updated_at = now()
		WHERE id = $2 AND org_id = $3
		RETURNING id, org_id, user_id, to_char(week_start, 'YYYY-MM-DD'), status, grid, created_at, updated_at`,
		to, id, orgID).Scan(
		&ts.ID, &ts.OrgID, &ts.UserID, &ts.WeekStart, &ts.Status, &ts.Grid, &ts.CreatedAt, &ts.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	resp := models.TimesheetResponse{
		Timesheet: ts,
		Totals:    computeTimesheetTotals(ts.Grid),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
