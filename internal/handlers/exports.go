package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/pkg/exporter"
)

// ExportsHandler handles Excel export operations
type ExportsHandler struct {
	DB            *pgxpool.Pool
	PayrollConfig string
}

// NewExportsHandler creates a new exports handler
func NewExportsHandler(db *pgxpool.Pool) *ExportsHandler {
	return &ExportsHandler{
		DB:            db,
		PayrollConfig: "configs/payroll.yaml",
	}
}

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// exportMonth reads the month query parameter, defaulting to the current one.
func exportMonth(r *http.Request) (string, bool) {
	month := r.URL.Query().Get("month")
	if month == "" {
		return time.Now().UTC().Format("2006-01"), true
	}
	return month, monthPattern.MatchString(month)
}

// TimesheetsExcel streams the month's timesheet workbook.
func (h *ExportsHandler) TimesheetsExcel(w http.ResponseWriter, r *http.Request) {
	month, ok := exportMonth(r)
	if !ok {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	claims := auth.ClaimsFromContext(r.Context())

	file, sum, err := exporter.ExportTimesheets(r.Context(), h.DB, exporter.ExportOptions{
		OrgID: claims.OrgID,
		Month: month,
	})
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "EXPORT_FAILED",
			"details": err.Error(),
			"data":    sum,
		})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="timesheets-`+month+`.xlsx"`)
	if err := file.Write(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PayrollExcel streams the month's payroll workbook.
func (h *ExportsHandler) PayrollExcel(w http.ResponseWriter, r *http.Request) {
	month, ok := exportMonth(r)
	if !ok {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	claims := auth.ClaimsFromContext(r.Context())

	file, sum, err := exporter.ExportPayroll(r.Context(), h.DB, exporter.ExportOptions{
		OrgID:      claims.OrgID,
		Month:      month,
		ConfigPath: h.PayrollConfig,
	})
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "EXPORT_FAILED",
			"details": err.Error(),
			"data":    sum,
		})
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="payroll-`+month+`.xlsx"`)
	if err := file.Write(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
