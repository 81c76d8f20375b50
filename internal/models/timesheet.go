package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Timesheet statuses
var ValidTimesheetStatuses = []string{"draft", "submitted", "approved", "rejected"}

// TimesheetGrid is the weekly entry grid exactly as the client edits it:
// hours keyed by project ID, then by ISO date within the week.
type TimesheetGrid map[int64]map[string]float64

// Timesheet is one user's weekly sheet.
type Timesheet struct {
	ID        int64         `json:"id"`
	OrgID     int64         `json:"org_id"`
	UserID    int64         `json:"user_id"`
	WeekStart string        `json:"week_start"` // Monday, YYYY-MM-DD
	Status    string        `json:"status"`
	Grid      TimesheetGrid `json:"grid"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TimesheetTotals carries the aggregates the grid view displays.
type TimesheetTotals struct {
	ByProject map[int64]float64  `json:"by_project"`
	ByDay     map[string]float64 `json:"by_day"`
	Grand     float64            `json:"grand"`
}

// TimesheetResponse is the sheet together with its server-computed totals.
type TimesheetResponse struct {
	Timesheet
	Totals TimesheetTotals `json:"totals"`
}

// Value implements the driver.Valuer interface so the grid persists as JSONB
func (g TimesheetGrid) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	return json.Marshal(g)
}

// Scan implements the sql.Scanner interface for the JSONB grid column
func (g *TimesheetGrid) Scan(value interface{}) error {
	if value == nil {
		*g = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, g)
}

// SaveTimesheetRequest upserts the full grid for one week.
type SaveTimesheetRequest struct {
	WeekStart string        `json:"week_start" validate:"required,datetime=2006-01-02"`
	Grid      TimesheetGrid `json:"grid" validate:"required"`
}
