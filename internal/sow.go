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

const sowColumns = `id, org_id, title, client, sales_owner_id, delivery_owner_id, kicked_off_at, created_at, updated_at`

func scanSOW(row interface{ Scan(...any) error }, s *models.SOW) error {
	return row.Scan(&s.ID, &s.OrgID, &s.Title, &s.Client, &s.SalesOwnerID,
		&s.DeliveryOwnerID, &s.KickedOffAt, &s.CreatedAt, &s.UpdatedAt)
}

func (s *Server) listSOWs(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	orgID := auth.OrgIDFromContext(r.Context())

	clauses := []string{fmt.Sprintf("org_id = $%d", 1)}
	args := []interface{}{orgID}
	arg := 2

	if params.q != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR client ILIKE $%d)", arg, arg))
		args = append(args, "%"+params.q+"%")
		arg++
	}

	sqlStr := "SELECT " + sowColumns + " FROM sows WHERE " + strings.Join(clauses, " AND ")
	sqlStr += buildOrderBy(params.sort, map[string]string{"id": "id", "title": "title", "created_at": "created_at"})
	sqlStr += fmt.Sprintf(" LIMIT %d OFFSET %d", params.limit, params.offset)

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), sqlStr, args...)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	sows := []models.SOW{}
	for rows.Next() {
		var sow models.SOW
		if err := scanSOW(rows, &sow); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		sows = append(sows, sow)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sows)
}

func (s *Server) getSOW(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var sow models.SOW
	err := scanSOW(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+sowColumns+" FROM sows WHERE id = $1 AND org_id = $2", id, orgID), &sow)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sow)
}

func (s *Server) createSOW(w http.ResponseWriter, r *http.Request) {
	var in models.CreateSOWRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())
	salesOwnerID := auth.UserIDFromContext(r.Context())

	var sow models.SOW
	err := scanSOW(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO sows (org_id, title, client, sales_owner_id)
		VALUES ($1,$2,$3,$4)
		RETURNING `+sowColumns, orgID, in.Title, in.Client, salesOwnerID), &sow)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sow)
}

// kickoffSOW hands the signed deal from sales to delivery. A SOW kicks off
// exactly once; repeating it is a conflict.
func (s *Server) kickoffSOW(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.KickoffRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var sow models.SOW
	err := scanSOW(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE sows
		SET delivery_owner_id = $1, kicked_off_at = now(), updated_at = now()
		WHERE id = $2 AND org_id = $3 AND kicked_off_at IS NULL
		RETURNING `+sowColumns, in.DeliveryOwnerID, id, orgID), &sow)
	if err == sql.ErrNoRows {
		// Either missing or already kicked off; tell them apart
		var exists bool
		if qerr := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
			`SELECT true FROM sows WHERE id = $1 AND org_id = $2`, id, orgID).Scan(&exists); qerr == sql.ErrNoRows {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "SOW has already been kicked off", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sow)
}

func (s *Server) listSOWItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), `
		SELECT i.id, i.sow_id, i.deliverable, i.timeline_weeks, i.amount, i.created_at, i.updated_at
		FROM sow_items i JOIN sows s ON s.id = i.sow_id
		WHERE i.sow_id = $1 AND s.org_id = $2
		ORDER BY i.id`, id, orgID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	items := []models.SOWItem{}
	for rows.Next() {
		var it models.SOWItem
		if err := rows.Scan(&it.ID, &it.SOWID, &it.Deliverable, &it.TimelineWeeks,
			&it.Amount, &it.CreatedAt, &it.UpdatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		items = append(items, it)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (s *Server) createSOWItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.CreateSOWItemRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	// Parent SOW must belong to the caller's org
	var exists bool
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		`SELECT true FROM sows WHERE id = $1 AND org_id = $2`, id, orgID).Scan(&exists)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	var it models.SOWItem
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO sow_items (sow_id, deliverable, timeline_weeks, amount)
		VALUES ($1,$2,$3,$4)
		RETURNING id, sow_id, deliverable, timeline_weeks, amount, created_at, updated_at`,
		id, in.Deliverable, in.TimelineWeeks, in.Amount).Scan(
		&it.ID, &it.SOWID, &it.Deliverable, &it.TimelineWeeks, &it.Amount, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(it)
}

func (s *Server) updateSOWItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.UpdateSOWItemRequest
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

	if in.Deliverable != nil && strings.TrimSpace(*in.Deliverable) != "" {
		setParts = append(setParts, fmt.Sprintf("deliverable = $%d", arg))
		args = append(args, *in.Deliverable)
		arg++
	}
	if in.TimelineWeeks != nil {
		setParts = append(setParts, fmt.Sprintf("timeline_weeks = $%d", arg))
		args = append(args, *in.TimelineWeeks)
		arg++
	}
	if in.Amount != nil {
		setParts = append(setParts, fmt.Sprintf("amount = $%d", arg))
		args = append(args, *in.Amount)
		arg++
	}

	if len(setParts) == 0 {
		http.Error(w, "no fields to update", 400)
		return
	}

	setParts = append(setParts, "updated_at = now()")
	sqlStr := fmt.Sprintf(`
		UPDATE sow_items SET %s
		WHERE id = $%d AND sow_id IN (SELECT id FROM sows WHERE org_id = $%d)
		RETURNING id, sow_id, deliverable, timeline_weeks, amount, created_at, updated_at`,
		strings.Join(setParts, ", "), arg, arg+1)
	args = append(args, itemID, orgID)

	var it models.SOWItem
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), sqlStr, args...).Scan(
		&it.ID, &it.SOWID, &it.Deliverable, &it.TimelineWeeks, &it.Amount, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(it)
}

func (s *Server) deleteSOWItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	orgID := auth.OrgIDFromContext(r.Context())

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(), `
		DELETE FROM sow_items
		WHERE id = $1 AND sow_id IN (SELECT id FROM sows WHERE org_id = $2)`, itemID, orgID)
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
