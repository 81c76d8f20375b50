package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const taskColumns = `id, org_id, project_id, title, assignee_id, status, progress,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), created_at, updated_at`

const dateLayout = "2006-01-02"

func scanTask(row interface{ Scan(...any) error }, t *models.Task) error {
	return row.Scan(&t.ID, &t.OrgID, &t.ProjectID, &t.Title, &t.AssigneeID, &t.Status,
		&t.Progress, &t.StartDate, &t.EndDate, &t.CreatedAt, &t.UpdatedAt)
}

// shiftDates moves both task dates by a whole number of days, preserving the
// task's duration. This is the server half of the Gantt drag: the client turns
// its pixel delta into days, the dates move together.
func shiftDates(start, end string, days int) (string, string, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return "", "", err
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return "", "", err
	}
	s = s.AddDate(0, 0, days)
	e = e.AddDate(0, 0, days)
	return s.Format(dateLayout), e.Format(dateLayout), nil
}

// clampResize moves only the end date, never past the start: a bar resized to
// zero or negative width snaps to a one-day task.
func clampResize(start, end string, days int) (string, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return "", err
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return "", err
	}
	e = e.AddDate(0, 0, days)
	if e.Before(s) {
		e = s
	}
	return e.Format(dateLayout), nil
}

// validateTaskDates enforces start <= end, and keeps the task inside the
// project window when the project has one.
func validateTaskDates(start, end string, projectStart, projectEnd *string) error {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start_date: %w", err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end_date: %w", err)
	}
	if e.Before(s) {
		return fmt.Errorf("end_date must not be before start_date")
	}
	if projectStart != nil {
		ps, err := time.Parse(dateLayout, *projectStart)
		if err == nil && s.Before(ps) {
			return fmt.Errorf("task starts before the project window")
		}
	}
	if projectEnd != nil {
		pe, err := time.Parse(dateLayout, *projectEnd)
		if err == nil && e.After(pe) {
			return fmt.Errorf("task ends after the project window")
		}
	}
	return nil
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	orgID := auth.OrgIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("org_id = $%d", arg))
	args = append(args, orgID)
	arg++

	if projectID := strings.TrimSpace(r.URL.Query().Get("project_id")); projectID != "" {
		clauses = append(clauses, fmt.Sprintf("project_id = $%d", arg))
		args = append(args, projectID)
		arg++
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, status)
		arg++
	}
	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := "SELECT " + taskColumns + " FROM tasks WHERE " + strings.Join(clauses, " AND ")

	allowedSort := map[string]string{
		"id":         "id",
		"start_date": "start_date",
		"end_date":   "end_date",
		"status":     "status",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := scanTask(rows, &t); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		tasks = append(tasks, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var t models.Task
	err := scanTask(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND org_id = $2", id, orgID), &t)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())

	// Project must exist in this org; its window bounds the task.
	var projectStart, projectEnd *string
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD')
		FROM projects WHERE id = $1 AND org_id = $2`, in.ProjectID, orgID).Scan(&projectStart, &projectEnd)
	if err == sql.ErrNoRows {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if err := validateTaskDates(in.StartDate, in.EndDate, projectStart, projectEnd); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	status := "todo"
	if in.Status != nil {
		status = *in.Status
	}
	progress := 0
	if in.Progress != nil {
		progress = *in.Progress
	}

	var t models.Task
	err = scanTask(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO tasks (org_id, project_id, title, assignee_id, status, progress, start_date, end_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+taskColumns,
		orgID, in.ProjectID, in.Title, in.AssigneeID, status, progress, in.StartDate, in.EndDate), &t)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	setParts := []string{}
	args := []interface{}{}
	arg := 1

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		setParts = append(setParts, fmt.Sprintf("title = $%d", arg))
		args = append(args, *in.Title)
		arg++
	}
	if in.AssigneeID != nil {
		setParts = append(setParts, fmt.Sprintf("assignee_id = $%d", arg))
		args = append(args, *in.AssigneeID)
		arg++
	}
	if in.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", arg))
		args = append(args, *in.Status)
		arg++
	}
	if in.Progress != nil {
		setParts = append(setParts, fmt.Sprintf("progress = $%d", arg))
		args = append(args, *in.Progress)
		arg++
	}

	if len(setParts) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	setParts = append(setParts, "updated_at = now()")
	sqlStr := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d AND org_id = $%d RETURNING %s",
		strings.Join(setParts, ", "), arg, arg+1, taskColumns)
	args = append(args, id, orgID)

	var t models.Task
	err := scanTask(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), sqlStr, args...), &t)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

// updateTaskDates commits a Gantt drag or resize. Last write wins: there is no
// version check, matching how the scheduling UI fires the PATCH.
func (s *Server) updateTaskDates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.UpdateTaskDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var projectStart, projectEnd *string
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT to_char(p.start_date, 'YYYY-MM-DD'), to_char(p.end_date, 'YYYY-MM-DD')
		FROM tasks t JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND t.org_id = $2`, id, orgID).Scan(&projectStart, &projectEnd)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	if err := validateTaskDates(in.StartDate, in.EndDate, projectStart, projectEnd); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var t models.Task
	err = scanTask(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE tasks SET start_date = $1, end_date = $2, updated_at = now()
		WHERE id = $3 AND org_id = $4
		RETURNING `+taskColumns, in.StartDate, in.EndDate, id, orgID), &t)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`DELETE FROM tasks WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
