package exporter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"
)

// ExportOptions defines the configuration for Excel export operations
type ExportOptions struct {
	OrgID      int64
	Month      string // YYYY-MM
	ConfigPath string // default "configs/payroll.yaml"
}

// ExportSummary contains the overall export statistics
type ExportSummary struct {
	Rows  int    `json:"rows"`
	Month string `json:"month"`
}

// PayrollConfig represents the YAML payroll configuration
type PayrollConfig struct {
	Version             int            `yaml:"version"`
	StandardWeeklyHours float64        `yaml:"standard_weekly_hours"`
	OvertimeMultiplier  float64        `yaml:"overtime_multiplier"`
	Currency            string         `yaml:"currency"`
	Columns             []ColumnConfig `yaml:"columns"`
}

type ColumnConfig struct {
	Key    string `yaml:"key"`
	Header string `yaml:"header"`
}

// defaultPayrollColumns is the sheet layout used when the config names none.
var defaultPayrollColumns = []ColumnConfig{
	{Key: "employee", Header: "Employee"},
	{Key: "department", Header: "Department"},
	{Key: "monthly_salary", Header: "Monthly Salary"},
	{Key: "approved_hours", Header: "Approved Hours"},
	{Key: "overtime_hours", Header: "Overtime Hours"},
	{Key: "overtime_pay", Header: "Overtime Pay"},
	{Key: "total_pay", Header: "Total Pay"},
}

// LoadPayrollConfig reads and validates the payroll mapping file.
func LoadPayrollConfig(path string) (*PayrollConfig, error) {
	if path == "" {
		path = "configs/payroll.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payroll config: %w", err)
	}

	var cfg PayrollConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse payroll config: %w", err)
	}

	if cfg.StandardWeeklyHours <= 0 {
		cfg.StandardWeeklyHours = 40
	}
	if cfg.OvertimeMultiplier <= 0 {
		cfg.OvertimeMultiplier = 1.5
	}
	if len(cfg.Columns) == 0 {
		cfg.Columns = defaultPayrollColumns
	}
	return &cfg, nil
}

// monthBounds returns the first day of the month and of the next month.
func monthBounds(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// payrollRow is one employee's computed line on the payroll sheet.
type payrollRow struct {
	Employee      string
	Department    string
	MonthlySalary float64
	ApprovedHours float64
	OvertimeHours float64
	OvertimePay   float64
	TotalPay      float64
}

// ExportTimesheets builds a workbook with one row per user per week for the
// month, listing daily hours out of the approved grids.
func ExportTimesheets(ctx context.Context, db *pgxpool.Pool, opts ExportOptions) (*xlsx.File, ExportSummary, error) {
	summary := ExportSummary{Month: opts.Month}

	start, end, err := monthBounds(opts.Month)
	if err != nil {
		return nil, summary, err
	}

	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer conn.Release()

	// Set org context for RLS. SET does not take bind parameters over the
	// extended protocol, so go through set_config.
	if _, err := conn.Exec(ctx,
		"SELECT set_config('app.current_org_id', $1::text, false)", opts.OrgID); err != nil {
		return nil, summary, fmt.Errorf("failed to set org context: %w", err)
	}

	rows, err := conn.Query(ctx, `
		SELECT u.email, to_char(t.week_start, 'YYYY-MM-DD'), t.status,
			(SELECT COALESCE(SUM(h.value::float8), 0)
			 FROM jsonb_each(t.grid) AS g(project, days),
			      jsonb_each(g.days) AS h(day, value))
		FROM timesheets t
		JOIN users u ON u.id = t.user_id
		WHERE t.org_id = $1 AND t.week_start >= $2 AND t.week_start < $3
		ORDER BY u.email, t.week_start`,
		opts.OrgID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, summary, err
	}
	defer rows.Close()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Timesheets")
	if err != nil {
		return nil, summary, err
	}

	header := sheet.AddRow()
	for _, h := range []string{"User", "Week Start", "Status", "Total Hours"} {
		header.AddCell().SetString(h)
	}

	for rows.Next() {
		var email, weekStart, status string
		var total float64
		if err := rows.Scan(&email, &weekStart, &status, &total); err != nil {
			return nil, summary, err
		}
		row := sheet.AddRow()
		row.AddCell().SetString(email)
		row.AddCell().SetString(weekStart)
		row.AddCell().SetString(status)
		row.AddCell().SetFloat(total)
		summary.Rows++
	}
	if err := rows.Err(); err != nil {
		return nil, summary, err
	}

	return file, summary, nil
}

// ExportPayroll builds the monthly payroll workbook. Base pay comes from the
// employee record, overtime from approved timesheet hours above the standard
// week, at the configured multiplier against an hourly rate derived from the
// monthly salary.
func ExportPayroll(ctx context.Context, db *pgxpool.Pool, opts ExportOptions) (*xlsx.File, ExportSummary, error) {
	summary := ExportSummary{Month: opts.Month}

	cfg, err := LoadPayrollConfig(opts.ConfigPath)
	if err != nil {
		return nil, summary, err
	}

	start, end, err := monthBounds(opts.Month)
	if err != nil {
		return nil, summary, err
	}

	conn, err := db.Acquire(ctx)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to acquire database connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx,
		"SELECT set_config('app.current_org_id', $1::text, false)", opts.OrgID); err != nil {
		return nil, summary, fmt.Errorf("failed to set org context: %w", err)
	}

	// Approved hours per user for the month, split into weeks so the
	// overtime threshold applies week by week.
	rows, err := conn.Query(ctx, `
		SELECT e.full_name, COALESCE(e.department, ''), COALESCE(e.monthly_salary, 0),
			COALESCE(w.hours, ARRAY[]::float8[])
		FROM employees e
		LEFT JOIN users u ON lower(u.email) = lower(e.email) AND u.org_id = e.org_id
		LEFT JOIN LATERAL (
			SELECT array_agg(weekly.total) AS hours
			FROM (
				SELECT (SELECT COALESCE(SUM(h.value::float8), 0)
					FROM jsonb_each(t.grid) AS g(project, days),
					     jsonb_each(g.days) AS h(day, value)) AS total
				FROM timesheets t
				WHERE t.user_id = u.id AND t.org_id = e.org_id
					AND t.status = 'approved'
					AND t.week_start >= $2 AND t.week_start < $3
			) weekly
		) w ON true
		WHERE e.org_id = $1 AND e.is_active
		ORDER BY e.full_name`,
		opts.OrgID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, summary, err
	}
	defer rows.Close()

	var payroll []payrollRow
	for rows.Next() {
		var p payrollRow
		var weekly []float64
		if err := rows.Scan(&p.Employee, &p.Department, &p.MonthlySalary, &weekly); err != nil {
			return nil, summary, err
		}
		for _, hours := range weekly {
			p.ApprovedHours += hours
			if hours > cfg.StandardWeeklyHours {
				p.OvertimeHours += hours - cfg.StandardWeeklyHours
			}
		}
		// Hourly rate from the monthly salary over ~4.33 standard weeks
		if cfg.StandardWeeklyHours > 0 && p.MonthlySalary > 0 {
			hourlyRate := p.MonthlySalary / (cfg.StandardWeeklyHours * 52 / 12)
			p.OvertimePay = p.OvertimeHours * hourlyRate * cfg.OvertimeMultiplier
		}
		p.TotalPay = p.MonthlySalary + p.OvertimePay
		payroll = append(payroll, p)
	}
	if err := rows.Err(); err != nil {
		return nil, summary, err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Payroll " + opts.Month)
	if err != nil {
		return nil, summary, err
	}

	header := sheet.AddRow()
	for _, col := range cfg.Columns {
		header.AddCell().SetString(col.Header)
	}

	for _, p := range payroll {
		row := sheet.AddRow()
		for _, col := range cfg.Columns {
			cell := row.AddCell()
			switch col.Key {
			case "employee":
				cell.SetString(p.Employee)
			case "department":
				cell.SetString(p.Department)
			case "monthly_salary":
				cell.SetFloat(p.MonthlySalary)
			case "approved_hours":
				cell.SetFloat(p.ApprovedHours)
			case "overtime_hours":
				cell.SetFloat(p.OvertimeHours)
			case "overtime_pay":
				cell.SetFloat(p.OvertimePay)
			case "total_pay":
				cell.SetFloat(p.TotalPay)
			case "currency":
				cell.SetString(cfg.Currency)
			default:
				cell.SetString("")
			}
		}
		summary.Rows++
	}

	return file, summary, nil
}
