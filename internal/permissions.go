package internal

import (
	"encoding/json"
	"net/http"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"

	"github.com/lib/pq"
)

// getPermissionMatrix returns the org's role-by-module matrix. Cells never
// stored default to no access, which is what an absent key means to clients.
func (s *Server) getPermissionMatrix(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), `
		SELECT role, module, can_view, can_edit
		FROM module_permissions WHERE org_id = $1`, orgID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	matrix := models.PermissionMatrix{}
	for rows.Next() {
		var role, module string
		var view, edit bool
		if err := rows.Scan(&role, &module, &view, &edit); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		if matrix[role] == nil {
			matrix[role] = map[string]models.ModulePermission{}
		}
		matrix[role][module] = models.ModulePermission{View: view, Edit: edit}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matrix)
}

// putPermissionMatrix replaces the org's matrix wholesale. The editor always
// saves the full grid, so a transactional delete-and-insert keeps the stored
// rows in lockstep with what the admin last saw.
func (s *Server) putPermissionMatrix(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())

	var matrix models.PermissionMatrix
	if err := json.NewDecoder(r.Body).Decode(&matrix); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := matrix.Validate(); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	tx, err := s.DB.BeginTx(r.Context(), nil)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(r.Context(),
		`DELETE FROM module_permissions WHERE org_id = $1`, orgID); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	for role, modules := range matrix {
		for module, perm := range modules {
			if _, err := tx.ExecContext(r.Context(), `
				INSERT INTO module_permissions (org_id, role, module, can_view, can_edit)
				VALUES ($1,$2,$3,$4,$5)`,
				orgID, role, module, perm.View, perm.Edit); err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
		}
	}

	if err := tx.Commit(); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(matrix)
}

// hasModulePermission checks the stored matrix for any of the caller's roles.
// org_admin bypasses the matrix entirely. A module with no stored rows for the
// org is open: the matrix restricts only once the admin has configured it.
func (s *Server) hasModulePermission(r *http.Request, module string, edit bool) (bool, error) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		return false, nil
	}
	if claims.HasRole("org_admin") {
		return true, nil
	}

	column := "can_view"
	if edit {
		column = "can_edit"
	}

	var configured int
	var allowed bool
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT COUNT(*),
			COALESCE(bool_or(`+column+`) FILTER (WHERE role = ANY($3)), false)
		FROM module_permissions
		WHERE org_id = $1 AND module = $2`,
		claims.OrgID, module, pq.Array(claims.Roles)).Scan(&configured, &allowed)
	if err != nil {
		return false, err
	}
	if configured == 0 {
		return true, nil
	}
	return allowed, nil
}

// requireModuleAccess is the handler guard over hasModulePermission. It writes
// the error response and reports whether the handler may proceed.
func (s *Server) requireModuleAccess(w http.ResponseWriter, r *http.Request, module string, edit bool) bool {
	ok, err := s.hasModulePermission(r, module, edit)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return false
	}
	if !ok {
		http.Error(w, "module access denied by permission matrix", http.StatusForbidden)
		return false
	}
	return true
}
