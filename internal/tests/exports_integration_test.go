//go:build integration

package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"dvbc-erp-api/internal/auth"
	"dvbc-erp-api/internal/handlers"
	"dvbc-erp-api/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"
)

func TestExportsIntegration(t *testing.T) {
	testutil.RequireIntegration(t)

	// Seed an employee with a salary and one approved week in March 2026
	userID := seedUser(t, 1, "export-user@example.com", "employee")

	_, err := testDB.Exec(
		`INSERT INTO employees (org_id, full_name, email, monthly_salary, is_active)
		 VALUES (1, 'Export User', 'export-user@example.com', 5200, TRUE)
		 ON CONFLICT DO NOTHING`)
	require.NoError(t, err)

	_, err = testDB.Exec(
		`INSERT INTO timesheets (org_id, user_id, week_start, status, grid)
		 VALUES (1, $1, '2026-03-02', 'approved',
		         '{"1": {"2026-03-02": 9, "2026-03-03": 9, "2026-03-04": 9, "2026-03-05": 9, "2026-03-06": 9}}')
		 ON CONFLICT (org_id, user_id, week_start) DO UPDATE SET status = 'approved', grid = EXCLUDED.grid`,
		userID)
	require.NoError(t, err)

	// Point the payroll pipeline at a config we control
	cfgPath := filepath.Join(t.TempDir(), "payroll.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
version: 1
standard_weekly_hours: 40
overtime_multiplier: 1.5
currency: MYR
`), 0o644))

	exportsHandler := &handlers.ExportsHandler{DB: testServer.Pool, PayrollConfig: cfgPath}

	adminCtx := func(r *http.Request) *http.Request {
		ctx := context.WithValue(r.Context(), auth.ClaimsKey, &auth.Claims{
			OrgID: 1,
			Roles: []string{"hr_admin"},
		})
		ctx = context.WithValue(ctx, auth.OrgIDKey, int64(1))
		return r.WithContext(ctx)
	}

	t.Run("TimesheetsWorkbook", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/exports/timesheets.xlsx?month=2026-03", nil))
		w := httptest.NewRecorder()

		exportsHandler.TimesheetsExcel(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t,
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "timesheets-2026-03.xlsx")

		file, err := xlsx.OpenBinary(w.Body.Bytes())
		require.NoError(t, err)
		require.NotEmpty(t, file.Sheets)
		// Header row plus at least the seeded week
		assert.GreaterOrEqual(t, file.Sheets[0].MaxRow, 2)
	})

	t.Run("PayrollWorkbook", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/exports/payroll.xlsx?month=2026-03", nil))
		w := httptest.NewRecorder()

		exportsHandler.PayrollExcel(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		file, err := xlsx.OpenBinary(w.Body.Bytes())
		require.NoError(t, err)
		require.NotEmpty(t, file.Sheets)
		assert.GreaterOrEqual(t, file.Sheets[0].MaxRow, 2)
	})

	t.Run("BadMonth", func(t *testing.T) {
		req := adminCtx(httptest.NewRequest("GET", "/exports/payroll.xlsx?month=March", nil))
		w := httptest.NewRecorder()

		exportsHandler.PayrollExcel(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingPayrollConfig", func(t *testing.T) {
		broken := &handlers.ExportsHandler{DB: testServer.Pool, PayrollConfig: "/does/not/exist.yaml"}

		req := adminCtx(httptest.NewRequest("GET", "/exports/payroll.xlsx?month=2026-03", nil))
		w := httptest.NewRecorder()

		broken.PayrollExcel(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "EXPORT_FAILED")
	})

	t.Run("RoleRequired", func(t *testing.T) {
		// Through the router the role check runs before the handler
		employeeToken := tokenFor(t, userID, 1, "employee")
		w := doJSON(t, "GET", "/exports/payroll.xlsx?month=2026-03", employeeToken, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
