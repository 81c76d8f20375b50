package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/models"
	"dvbc-erp-api/pkg/geo"

	"github.com/go-chi/chi/v5"
)

func (s *Server) listOfficeLocations(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), `
		SELECT id, org_id, name, latitude, longitude, radius_meters, created_at, updated_at
		FROM office_locations WHERE org_id = $1 ORDER BY id`, orgID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	offices := []models.OfficeLocation{}
	for rows.Next() {
		var o models.OfficeLocation
		if err := rows.Scan(&o.ID, &o.OrgID, &o.Name, &o.Latitude, &o.Longitude,
			&o.RadiusMeters, &o.CreatedAt, &o.UpdatedAt); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		offices = append(offices, o)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offices)
}

func (s *Server) createOfficeLocation(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())

	var in models.CreateOfficeLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	var o models.OfficeLocation
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO office_locations (org_id, name, latitude, longitude, radius_meters)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, org_id, name, latitude, longitude, radius_meters, created_at, updated_at`,
		orgID, in.Name, in.Latitude, in.Longitude, in.RadiusMeters).Scan(
		&o.ID, &o.OrgID, &o.Name, &o.Latitude, &o.Longitude, &o.RadiusMeters, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

func (s *Server) deleteOfficeLocation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	orgID := auth.OrgIDFromContext(r.Context())

	res, err := dbFrom(r.Context(), s.DB).ExecContext(r.Context(),
		`DELETE FROM office_locations WHERE id = $1 AND org_id = $2`, id, orgID)
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

// checkIn records today's arrival if the reported position lies inside any of
// the org's office geofences. The nearest office wins when several match.
func (s *Server) checkIn(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	var in models.CheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON", 400)
		return
	}
	if err := s.Validate.Struct(in); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), `
		SELECT id, latitude, longitude, radius_meters
		FROM office_locations WHERE org_id = $1`, orgID)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	var (
		bestOfficeID int64
		bestDistance float64
		nearestAny   float64 = -1
		inside       bool
	)
	for rows.Next() {
		var id int64
		var lat, lng, radius float64
		if err := rows.Scan(&id, &lat, &lng, &radius); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		within, dist := geo.WithinRadius(lat, lng, in.Latitude, in.Longitude, radius)
		if nearestAny < 0 || dist < nearestAny {
			nearestAny = dist
		}
		if within && (!inside || dist < bestDistance) {
			inside = true
			bestOfficeID = id
			bestDistance = dist
		}
	}

	if nearestAny < 0 {
		http.Error(w, "no office locations configured", http.StatusConflict)
		return
	}
	if !inside {
		http.Error(w, fmt.Sprintf("outside office geofence, nearest office is %.0f m away", nearestAny),
			http.StatusForbidden)
		return
	}

	day := time.Now().UTC().Format(dateLayout)

	var rec models.AttendanceRecord
	err = dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		INSERT INTO attendance_records (org_id, user_id, day, check_in_at, office_id, check_in_lat, check_in_lng, distance_meters)
		VALUES ($1,$2,$3, now(), $4,$5,$6,$7)
		ON CONFLICT (org_id, user_id, day) DO NOTHING
		RETURNING id, org_id, user_id, to_char(day, 'YYYY-MM-DD'), check_in_at, check_out_at, office_id, check_in_lat, check_in_lng, distance_meters`,
		orgID, userID, day, bestOfficeID, in.Latitude, in.Longitude, bestDistance).Scan(
		&rec.ID, &rec.OrgID, &rec.UserID, &rec.Day, &rec.CheckInAt, &rec.CheckOutAt,
		&rec.OfficeID, &rec.CheckInLat, &rec.CheckInLng, &rec.DistanceM)
	if err == sql.ErrNoRows {
		http.Error(w, "already checked in today", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// checkOut stamps today's open record. Checking out twice just moves the
// stamp, which matches what the kiosk UI expects.
func (s *Server) checkOut(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	day := time.Now().UTC().Format(dateLayout)

	var rec models.AttendanceRecord
	err := dbFrom(r.Context(), s.DB).QueryRowContext(r.Context(), `
		UPDATE attendance_records SET check_out_at = now()
		WHERE org_id = $1 AND user_id = $2 AND day = $3
		RETURNING id, org_id, user_id, to_char(day, 'YYYY-MM-DD'), check_in_at, check_out_at, office_id, check_in_lat, check_in_lng, distance_meters`,
		orgID, userID, day).Scan(
		&rec.ID, &rec.OrgID, &rec.UserID, &rec.Day, &rec.CheckInAt, &rec.CheckOutAt,
		&rec.OfficeID, &rec.CheckInLat, &rec.CheckInLng, &rec.DistanceM)
	if err == sql.ErrNoRows {
		http.Error(w, "no check-in today", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// listAttendance returns records for a month. Employees see their own,
// HR and managers may pass user_id to inspect someone else's.
func (s *Server) listAttendance(w http.ResponseWriter, r *http.Request) {
	orgID := auth.OrgIDFromContext(r.Context())
	claims := auth.ClaimsFromContext(r.Context())

	targetUserID := claims.UserID
	if uid := r.URL.Query().Get("user_id"); uid != "" {
		if !claims.HasRole("manager", "hr_admin", "org_admin") {
			http.Error(w, "insufficient permissions", http.StatusForbidden)
			return
		}
		var parsed int64
		if _, err := fmt.Sscanf(uid, "%d", &parsed); err != nil || parsed <= 0 {
			http.Error(w, "invalid user_id", 400)
			return
		}
		targetUserID = parsed
	}

	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	monthStart, err := time.Parse("2006-01", month)
	if err != nil {
		http.Error(w, "month must be YYYY-MM", 400)
		return
	}
	monthEnd := monthStart.AddDate(0, 1, 0)

	rows, err := dbFrom(r.Context(), s.DB).QueryContext(r.Context(), `
		SELECT id, org_id, user_id, to_char(day, 'YYYY-MM-DD'), check_in_at, check_out_at, office_id, check_in_lat, check_in_lng, distance_meters
		FROM attendance_records
		WHERE org_id = $1 AND user_id = $2 AND day >= $3 AND day < $4
		ORDER BY day`, orgID, targetUserID,
		monthStart.Format(dateLayout), monthEnd.Format(dateLayout))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	defer rows.Close()

	records := []models.AttendanceRecord{}
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.OrgID, &rec.UserID, &rec.Day, &rec.CheckInAt,
			&rec.CheckOutAt, &rec.OfficeID, &rec.CheckInLat, &rec.CheckInLng, &rec.DistanceM); err != nil {
			http.Error(w, err.Error(), 500)
			return
		}
		records = append(records, rec)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
