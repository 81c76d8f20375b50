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

const travelColumns = `id, org_id, user_id, purpose, destination,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	amount, currency, status, reviewer_id, review_note, reviewed_at, created_at, updated_at`

func scanTravelClaim(row interface{ Scan(...any) error }, c *models.TravelClaim) error {
	return row.Scan(&c.ID, &c.OrgID, &c.UserID, &c.Purpose, &c.Destination,
		&c.StartDate, &c.EndDate, &c.Amount, &c.Currency, &c.Status,
		&c.ReviewerID, &c.ReviewNote, &c.ReviewedAt, &c.CreatedAt, &c.UpdatedAt)
}

func (s *Server) listTravelClaims(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)
	orgID := auth.OrgIDFromContext(r.Context())
	claims := auth.ClaimsFromContext(r.Context())

	clauses := []string{}
	args := []interface{}{}
	arg := 1

	clauses = append(clauses, fmt.Sprintf("org_id = $%d", arg))
	args = append(args, orgID)
	arg++

	// Plain employees only see their own claims; reviewers see the org's.
	if claims != nil && !claims.HasRole("manager", "hr_admin", "org_admin") {
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", arg))
		args = append(args, claims.UserID)
		arg++
	}

	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", arg))
		args = append(args, status)
		arg++
	}

	sqlStr := "SELECT " + travelColumns + " FROM travel_claims WHERE " + strings.Join(clauses, " AND ")

	allowedSort := map[string]string{
		"id":         "id",
		"amount":     "amount",
		"status":     "status",
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

	claimsOut := []models.TravelClaim{}
	for rows.Next() {
		var c models.TravelClaim
		if err := scanTravelClaim(rows, &c); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		claimsOut = append(claimsOut, c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(claimsOut)
}

func (s *Server) getTravelClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	var c models.TravelClaim
	err := scanTravelClaim(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		"SELECT "+travelColumns+" FROM travel_claims WHERE id = $1 AND org_id = $2", id, orgID), &c)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	if claims != nil && !claims.HasRole("manager", "hr_admin", "org_admin") && c.UserID != claims.UserID {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (s *Server) createTravelClaim(w http.ResponseWriter, r *http.Request) {
	var in models.CreateTravelClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		http.Error(w, "invalid start_date", 400)
		return
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		http.Error(w, "invalid end_date", 400)
		return
	}
	if end.Before(start) {
		http.Error(w, "end_date must not be before start_date", 400)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	var c models.TravelClaim
	err = scanTravelClaim(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO travel_claims (org_id, user_id, purpose, destination, start_date, end_date, amount, currency)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+travelColumns,
		orgID, userID, in.Purpose, in.Destination, in.StartDate, in.EndDate,
		in.Amount, strings.ToUpper(in.Currency)), &c)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

// approveTravelClaim resolves a pending claim. Terminal: approving or
// rejecting twice is a conflict.
func (s *Server) approveTravelClaim(w http.ResponseWriter, r *http.Request) {
	s.reviewTravelClaim(w, r, "approved")
}

func (s *Server) rejectTravelClaim(w http.ResponseWriter, r *http.Request) {
	s.reviewTravelClaim(w, r, "rejected")
}

func (s *Server) reviewTravelClaim(w http.ResponseWriter, r *http.Request, decision string) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())
	reviewerID := auth.UserIDFromContext(r.Context())

	var in models.ReviewTravelClaimRequest
	if r.Body != nil {
		// Note body is optional; decode errors on an empty body are fine
		_ = json.NewDecoder(r.Body).Decode(&in)
	}

	var status string
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(),
		`SELECT status FROM travel_claims WHERE id = $1 AND org_id = $2`, id, orgID).Scan(&status)
	if err == sql.ErrNoRows {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if status != "pending" {
		http.Error(w, "claim is already "+status, http.StatusConflict)
		return
	}

	var c models.TravelClaim
	err = scanTravelClaim(dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE travel_claims
		SET status = $1, reviewer_id = $2, review_note = $3, reviewed_at = now(), updated_at = now()
		WHERE id = $4 AND org_id = $5 AND status = 'pending'
		RETURNING `+travelColumns,
		decision, reviewerID, nullIfEmpty(in.Note), id, orgID), &c)
	if err == sql.ErrNoRows {
		// Lost the race with another reviewer
		http.Error(w, "claim was already reviewed", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

func (s *Server) deleteTravelClaim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	// Only the claimant may withdraw, and only while pending
	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`DELETE FROM travel_claims WHERE id = $1 AND org_id = $2 AND user_id = $3 AND status = 'pending'`,
		id, orgID, userID)
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
