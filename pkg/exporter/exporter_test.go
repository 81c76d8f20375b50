package exporter

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPayrollConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payroll.yaml")

	content := `
version: 1
standard_weekly_hours: 37.5
overtime_multiplier: 2
currency: MYR
columns:
  - key: employee
    header: Name
  - key: total_pay
    header: Total
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadPayrollConfig(path)
	if err != nil {
		t.Fatalf("LoadPayrollConfig() error = %v", err)
	}

	if cfg.StandardWeeklyHours != 37.5 {
		t.Errorf("Expected 37.5 standard hours, got %v", cfg.StandardWeeklyHours)
	}
	if cfg.OvertimeMultiplier != 2 {
		t.Errorf("Expected multiplier 2, got %v", cfg.OvertimeMultiplier)
	}
	if cfg.Currency != "MYR" {
		t.Errorf("Expected currency MYR, got %s", cfg.Currency)
	}
	if len(cfg.Columns) != 2 {
		t.Fatalf("Expected 2 columns, got %d", len(cfg.Columns))
	}
	if cfg.Columns[0].Key != "employee" || cfg.Columns[0].Header != "Name" {
		t.Errorf("Unexpected first column: %+v", cfg.Columns[0])
	}
}

func TestLoadPayrollConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payroll.yaml")

	if err := os.WriteFile(path, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadPayrollConfig(path)
	if err != nil {
		t.Fatalf("LoadPayrollConfig() error = %v", err)
	}

	if cfg.StandardWeeklyHours != 40 {
		t.Errorf("Expected default 40 standard hours, got %v", cfg.StandardWeeklyHours)
	}
	if cfg.OvertimeMultiplier != 1.5 {
		t.Errorf("Expected default multiplier 1.5, got %v", cfg.OvertimeMultiplier)
	}
	if len(cfg.Columns) == 0 {
		t.Error("Expected default columns when none configured")
	}
}

func TestLoadPayrollConfigMissingFile(t *testing.T) {
	if _, err := LoadPayrollConfig("/does/not/exist.yaml"); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestMonthBounds(t *testing.T) {
	start, end, err := monthBounds("2026-02")
	if err != nil {
		t.Fatalf("monthBounds() error = %v", err)
	}
	if start.Format("2006-01-02") != "2026-02-01" {
		t.Errorf("Expected start 2026-02-01, got %s", start.Format("2006-01-02"))
	}
	if end.Format("2006-01-02") != "2026-03-01" {
		t.Errorf("Expected end 2026-03-01, got %s", end.Format("2006-01-02"))
	}

	if _, _, err := monthBounds("2026-2"); err == nil {
		t.Error("Expected error for malformed month")
	}
	if _, _, err := monthBounds(""); err == nil {
		t.Error("Expected error for empty month")
	}
}
