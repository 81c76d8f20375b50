package internal

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"

	"github.com/go-chi/chi/v5"
)

// listOrganizations is main-tenant only; other orgs only see themselves.
func (s *Server) listOrganizations(w http.ResponseWriter, r *http.Request) {
	sqlStr := `SELECT id, name, created_at, updated_at FROM organizations`
	args := []interface{}{}
	if !auth.IsMainTenant(r.Context()) {
		sqlStr += ` WHERE id = $1`
		args = append(args, auth.OrgIDFromContext(r.Context()))
	}
	sqlStr += ` ORDER BY id`

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	orgs := []models.Organization{}
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		orgs = append(orgs, o)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(orgs)
}

func (s *Server) getOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid organization ID", 400)
		return
	}
	if !auth.IsMainTenant(r.Context()) && id != auth.OrgIDFromContext(r.Context()) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var o models.Organization
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		`SELECT id, name, created_at, updated_at FROM organizations WHERE id = $1`, id).Scan(
		&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

// createOrganization onboards a new tenant. Main tenant only.
func (s *Server) createOrganization(w http.ResponseWriter, r *http.Request) {
	if !auth.IsMainTenant(r.Context()) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	var in models.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var o models.Organization
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO organizations (name) VALUES ($1)
		RETURNING id, name, created_at, updated_at`, in.Name).Scan(
		&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

func (s *Server) updateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid organization ID", 400)
		return
	}
	if !auth.CanManageOrg(r.Context(), id) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}

	var in models.CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var o models.Organization
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE organizations SET name = $1, updated_at = now() WHERE id = $2
		RETURNING id, name, created_at, updated_at`, in.Name, id).Scan(
		&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(o)
}

// deleteOrganization offboards a tenant. Main tenant only, and never itself.
func (s *Server) deleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid organization ID", 400)
		return
	}
	if !auth.IsMainTenant(r.Context()) {
		http.Error(w, "insufficient permissions", http.StatusForbidden)
		return
	}
	if id == auth.MainTenantOrgID {
		http.Error(w, "cannot delete the main tenant", http.StatusConflict)
		return
	}

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`DELETE FROM organizations WHERE id = $1`, id)
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

// getOrganizationStats powers the admin dashboard cards.
func (s *Server) getOrganizationStats(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid organization ID", 400)
		return
	}
	if !auth.IsMainTenant(r.Context()) && id != auth.OrgIDFromContext(r.Context()) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	stats := models.OrganizationStats{OrgID: id}
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM employees WHERE org_id = $1 AND is_active),
			(SELECT COUNT(*) FROM projects WHERE org_id = $1),
			(SELECT COUNT(*) FROM tasks t JOIN projects p ON p.id = t.project_id
				WHERE p.org_id = $1 AND t.status <> 'done'),
			(SELECT COUNT(*) FROM travel_claims WHERE org_id = $1 AND status = 'pending'),
			(SELECT COUNT(*) FROM timesheets WHERE org_id = $1
				AND week_start >= date_trunc('month', now())::date),
			(SELECT COUNT(*) FROM users WHERE org_id = $1 AND is_active),
			(SELECT COUNT(*) FROM sows WHERE org_id = $1 AND kicked_off_at IS NOT NULL)`,
		id).Scan(&stats.Employees, &stats.Projects, &stats.OpenTasks, &stats.PendingClaims,
		&stats.TimesheetsMonth, &stats.ActiveUsers, &stats.SOWsInDelivery)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
