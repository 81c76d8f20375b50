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

func (s *Server) listEmployees(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	orgID := auth.OrgIDFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("org_id = $%d", arg))
	args = append(args, orgID)
	arg++

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR department ILIKE $%d)", arg, arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	if dept := strings.TrimSpace(r.URL.Query().Get("department")); dept != "" {
		clauses = append(clauses, fmt.Sprintf("department = $%d", arg))
		args = append(args, dept)
		arg++
	}

	sqlStr := `
		SELECT id, org_id, full_name, email, phone, department, position, manager_id,
		       to_char(joining_date, 'YYYY-MM-DD'), monthly_salary, is_active, created_at, updated_at
		FROM employees`
	sqlStr += " WHERE " + strings.Join(clauses, " AND ")

	allowedSort := map[string]string{
		"id":         "id",
		"name":       "full_name",
		"department": "department",
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

	employees := []models.Employee{}
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.OrgID, &e.FullName, &e.Email, &e.Phone, &e.Department,
			&e.Position, &e.ManagerID, &e.JoiningDate, &e.MonthlySalary, &e.IsActive,
			&e.CreatedAt, &e.UpdatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		employees = append(employees, e)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(employees)
}

func (s *Server) getEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var e models.Employee
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		SELECT id, org_id, full_name, email, phone, department, position, manager_id,
		       to_char(joining_date, 'YYYY-MM-DD'), monthly_salary, is_active, created_at, updated_at
		FROM employees WHERE id = $1 AND org_id = $2`, id, orgID).Scan(
		&e.ID, &e.OrgID, &e.FullName, &e.Email, &e.Phone, &e.Department,
		&e.Position, &e.ManagerID, &e.JoiningDate, &e.MonthlySalary, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(e)
}

func (s *Server) createEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())

	var e models.Employee
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO employees (org_id, full_name, email, phone, department, position, manager_id, joining_date, monthly_salary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, org_id, full_name, email, phone, department, position, manager_id,
		          to_char(joining_date, 'YYYY-MM-DD'), monthly_salary, is_active, created_at, updated_at
	`, orgID, in.FullName, in.Email, nullIfEmpty(in.Phone), nullIfEmpty(in.Department),
		nullIfEmpty(in.Position), in.ManagerID, in.JoiningDate, in.MonthlySalary).Scan(
		&e.ID, &e.OrgID, &e.FullName, &e.Email, &e.Phone, &e.Department,
		&e.Position, &e.ManagerID, &e.JoiningDate, &e.MonthlySalary, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(e)
}

func (s *Server) updateEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.UpdateEmployeeRequest
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

	if in.FullName != nil && strings.TrimSpace(*in.FullName) != "" {
		setParts = append(setParts, fmt.Sprintf("full_name = $%d", arg))
		args = append(args, *in.FullName)
		arg++
	}
	if in.Email != nil {
		setParts = append(setParts, fmt.Sprintf("email = $%d", arg))
		args = append(args, *in.Email)
		arg++
	}
	if in.Phone != nil {
		setParts = append(setParts, fmt.Sprintf("phone = $%d", arg))
		args = append(args, nullIfEmpty(in.Phone))
		arg++
	}
	if in.Department != nil {
		setParts = append(setParts, fmt.Sprintf("department = $%d", arg))
		args = append(args, nullIfEmpty(in.Department))
		arg++
	}
	if in.Position != nil {
		setParts = append(setParts, fmt.Sprintf("position = $%d", arg))
		args = append(args, nullIfEmpty(in.Position))
		arg++
	}
	if in.ManagerID != nil {
		setParts = append(setParts, fmt.Sprintf("manager_id = $%d", arg))
		args = append(args, *in.ManagerID)
		arg++
	}
	if in.JoiningDate != nil {
		setParts = append(setParts, fmt.Sprintf("joining_date = $%d", arg))
		args = append(args, *in.JoiningDate)
		arg++
	}
	if in.MonthlySalary != nil {
		setParts = append(setParts, fmt.Sprintf("monthly_salary = $%d", arg))
		args = append(args, *in.MonthlySalary)
		arg++
	}
	if in.IsActive != nil {
		setParts = append(setParts, fmt.Sprintf("is_active = $%d", arg))
		args = append(args, *in.IsActive)
		arg++
	}

	if len(setParts) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	setParts = append(setParts, "updated_at = now()")
	sqlStr := fmt.Sprintf(`
		UPDATE employees SET %s
		WHERE id = $%d AND org_id = $%d
		RETURNING id, org_id, full_name, email, phone, department, position, manager_id,
		          to_char(joining_date, 'YYYY-MM-DD'), monthly_salary, is_active, created_at, updated_at`,
		strings.Join(setParts, ", "), arg, arg+1)
	args = append(args, id, orgID)

	var e models.Employee
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), sqlStr, args...).Scan(
		&e.ID, &e.OrgID, &e.FullName, &e.Email, &e.Phone, &e.Department,
		&e.Position, &e.ManagerID, &e.JoiningDate, &e.MonthlySalary, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			http.Error(w, "email already exists", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(e)
}

func (s *Server) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`DELETE FROM employees WHERE id = $1 AND org_id = $2`, id, orgID)
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
