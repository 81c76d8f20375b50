package internal

import (
	"testing"

	"dvbc-erp-api/internal/models"
)

func TestComputeTimesheetTotals(t *testing.T) {
	grid := models.TimesheetGrid{
		1: {"2026-03-02": 8, "2026-03-03": 7.5},
		2: {"2026-03-02": 1, "2026-03-04": 4},
	}

	totals := computeTimesheetTotals(grid)

	if totals.Grand != 20.5 {
		t.Errorf("Expected grand total 20.5, got %v", totals.Grand)
	}
	if totals.ByProject[1] != 15.5 {
		t.Errorf("Expected project 1 total 15.5, got %v", totals.ByProject[1])
	}
	if totals.ByProject[2] != 5 {
		t.Errorf("Expected project 2 total 5, got %v", totals.ByProject[2])
	}
	if totals.ByDay["2026-03-02"] != 9 {
		t.Errorf("Expected 9 hours on 2026-03-02, got %v", totals.ByDay["2026-03-02"])
	}
	if totals.ByDay["2026-03-04"] != 4 {
		t.Errorf("Expected 4 hours on 2026-03-04, got %v", totals.ByDay["2026-03-04"])
	}
}

func TestComputeTimesheetTotalsEmpty(t *testing.T) {
	totals := computeTimesheetTotals(models.TimesheetGrid{})
	if totals.Grand != 0 {
		t.Errorf("Expected grand total 0 for empty grid, got %v", totals.Grand)
	}
	if len(totals.ByProject) != 0 || len(totals.ByDay) != 0 {
		t.Error("Expected empty aggregate maps for empty grid")
	}
}

func TestIsAllowedHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  bool
	}{
		{0, true},
		{0.5, true},
		{7.5, true},
		{8, true},
		{24, true},
		{0.25, false},
		{7.3, false},
		{-1, false},
		{24.5, false},
	}

	for _, tt := range tests {
		if got := isAllowedHours(tt.hours); got != tt.want {
			t.Errorf("isAllowedHours(%v) = %v, want %v", tt.hours, got, tt.want)
		}
	}
}

func TestValidateGrid(t *testing.T) {
	tests := []struct {
		name      string
		grid      models.TimesheetGrid
		weekStart string
		wantErr   bool
	}{
		{
			name: "valid grid",
			grid: models.TimesheetGrid{
				1: {"2026-03-02": 8, "2026-03-08": 0.5},
			},
			weekStart: "2026-03-02",
		},
		{
			name:      "empty grid is fine",
			grid:      models.TimesheetGrid{},
			weekStart: "2026-03-02",
		},
		{
			name: "week start not a Monday",
			grid: models.TimesheetGrid{
				1: {"2026-03-03": 8},
			},
			weekStart: "2026-03-03",
			wantErr:   true,
		},
		{
			name: "date outside the week",
			grid: models.TimesheetGrid{
				1: {"2026-03-09": 8},
			},
			weekStart: "2026-03-02",
			wantErr:   true,
		},
		{
			name: "quarter-hour value rejected",
			grid: models.TimesheetGrid{
				1: {"2026-03-02": 7.25},
			},
			weekStart: "2026-03-02",
			wantErr:   true,
		},
		{
			name: "unparseable date",
			grid: models.TimesheetGrid{
				1: {"March 2nd": 8},
			},
			weekStart: "2026-03-02",
			wantErr:   true,
		},
		{
			name: "invalid project id",
			grid: models.TimesheetGrid{
				0: {"2026-03-02": 8},
			},
			weekStart: "2026-03-02",
			wantErr:   true,
		},
		{
			name:      "invalid week start",
			grid:      models.TimesheetGrid{},
			weekStart: "bad",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateGrid(tt.grid, tt.weekStart)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateGrid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestZeroFilledGrid(t *testing.T) {
	grid := zeroFilledGrid([]int64{3, 7}, "2026-03-02")

	if len(grid) != 2 {
		t.Fatalf("Expected 2 projects, got %d", len(grid))
	}
	for _, projectID := range []int64{3, 7} {
		days, ok := grid[projectID]
		if !ok {
			t.Fatalf("Expected project %d in grid", projectID)
		}
		if len(days) != 7 {
			t.Errorf("Expected 7 days for project %d, got %d", projectID, len(days))
		}
		for day, hours := range days {
			if hours != 0 {
				t.Errorf("Expected 0 hours for %s, got %v", day, hours)
			}
		}
		if _, ok := days["2026-03-02"]; !ok {
			t.Error("Expected the Monday in the grid")
		}
		if _, ok := days["2026-03-08"]; !ok {
			t.Error("Expected the Sunday in the grid")
		}
	}
}

func TestBuildOrderBy(t *testing.T) {
	allowed := map[string]string{"id": "id", "name": "name", "created_at": "created_at"}

	tests := []struct {
		sort string
		want string
	}{
		{"", " ORDER BY id ASC"},
		{"name", " ORDER BY name ASC"},
		{"-created_at", " ORDER BY created_at DESC"},
		{"name,-id", " ORDER BY name ASC, id DESC"},
		{"evil; DROP TABLE users", " ORDER BY id ASC"},
		{"unknown", " ORDER BY id ASC"},
	}

	for _, tt := range tests {
		if got := buildOrderBy(tt.sort, allowed); got != tt.want {
			t.Errorf("buildOrderBy(%q) = %q, want %q", tt.sort, got, tt.want)
		}
	}
}
