package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"

	"github.com/go-chi/chi/v5"
)

const projectColumns = `id, org_id, code, name, client, description, status, owner_id,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), budget, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }, p *models.Project) error {
	return row.Scan(&p.ID, &p.OrgID, &p.Code, &p.Name, &p.Client, &p.Description, &p.Status,
		&p.OwnerID, &p.StartDate, &p.EndDate, &p.Budget, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	orgID := auth.OrgIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("org_id = $%d", arg))
	args = append(args, orgID)
	arg++

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d OR client ILIKE $%d)", arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, status)
		arg++
	}

	sqlStr := "SELECT " + projectColumns + " FROM projects"
	sqlStr += " WHERE " + strings.Join(clauses, " AND ")

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "name",
		"status":     "status",
		"start_date": "start_date",
		"created_at": "created_at",
	}
	sqlStr += buildOrderBy(params.sort, allowedSort)
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := scanProject(rows, &p); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		projects = append(projects, p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var p models.Project
	err := scanProject(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+projectColumns+" FROM projects WHERE id = $1 AND org_id = $2", id, orgID), &p)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var in models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	status := "planned"
	if in.Status != nil {
		status = *in.Status
	}

	orgID := auth.OrgIDFromContext(r.Context())

	var p models.Project
	err := scanProject(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO projects (org_id, code, name, client, description, status, owner_id, start_date, end_date, budget)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+projectColumns,
		orgID, in.Code, in.Name, nullIfEmpty(in.Client), nullIfEmpty(in.Description),
		status, in.OwnerID, in.StartDate, in.EndDate, in.Budget), &p)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "code already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.UpdateProjectRequest
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

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		setParts = append(setParts, fmt.Sprintf("name = $%d", arg))
		args = append(args, *in.Name)
		arg++
	}
	if in.Client != nil {
		setParts = append(setParts, fmt.Sprintf("client = $%d", arg))
		args = append(args, nullIfEmpty(in.Client))
		arg++
	}
	if in.Description != nil {
		setParts = append(setParts, fmt.Sprintf("description = $%d", arg))
		args = append(args, nullIfEmpty(in.Description))
		arg++
	}
	if in.Status != nil {
		setParts = append(setParts, fmt.Sprintf("status = $%d", arg))
		args = append(args, *in.Status)
		arg++
	}
	if in.OwnerID != nil {
		setParts = append(setParts, fmt.Sprintf("owner_id = $%d", arg))
		args = append(args, *in.OwnerID)
		arg++
	}
	if in.StartDate != nil {
		setParts = append(setParts, fmt.Sprintf("start_date = $%d", arg))
		args = append(args, *in.StartDate)
		arg++
	}
	if in.EndDate != nil {
		setParts = append(setParts, fmt.Sprintf("end_date = $%d", arg))
		args = append(args, *in.EndDate)
		arg++
	}
	if in.Budget != nil {
		setParts = append(setParts, fmt.Sprintf("budget = $%d", arg))
		args = append(args, *in.Budget)
		arg++
	}

	if len(setParts) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	setParts = append(setParts, "updated_at = now()")
	sqlStr := fmt.Sprintf("UPDATE projects SET %s WHERE id = $%d AND org_id = $%d RETURNING %s",
		strings.Join(setParts, ", "), arg, arg+1, projectColumns)
	args = append(args, id, orgID)

	var p models.Project
	err := scanProject(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), sqlStr, args...), &p)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`DELETE FROM projects WHERE id = $1 AND org_id = $2`, id, orgID)
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
