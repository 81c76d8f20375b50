package internal

import (
	"testing"
)

func TestShiftDates(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		days      int
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{
			name:      "shift forward",
			start:     "2026-03-02",
			end:       "2026-03-06",
			days:      3,
			wantStart: "2026-03-05",
			wantEnd:   "2026-03-09",
		},
		{
			name:      "shift backward",
			start:     "2026-03-02",
			end:       "2026-03-06",
			days:      -2,
			wantStart: "2026-02-28",
			wantEnd:   "2026-03-04",
		},
		{
			name:      "zero shift",
			start:     "2026-03-02",
			end:       "2026-03-06",
			days:      0,
			wantStart: "2026-03-02",
			wantEnd:   "2026-03-06",
		},
		{
			name:      "crosses month boundary",
			start:     "2026-01-30",
			end:       "2026-01-31",
			days:      2,
			wantStart: "2026-02-01",
			wantEnd:   "2026-02-02",
		},
		{
			name:    "invalid start date",
			start:   "not-a-date",
			end:     "2026-03-06",
			days:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd, err := shiftDates(tt.start, tt.end, tt.days)
			if (err != nil) != tt.wantErr {
				t.Errorf("shiftDates() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if gotStart != tt.wantStart || gotEnd != tt.wantEnd {
				t.Errorf("shiftDates() = (%s, %s), want (%s, %s)", gotStart, gotEnd, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestShiftDatesPreservesDuration(t *testing.T) {
	start, end, err := shiftDates("2026-05-04", "2026-05-15", 7)
	if err != nil {
		t.Fatalf("shiftDates() error = %v", err)
	}
	if start != "2026-05-11" || end != "2026-05-22" {
		t.Errorf("Expected (2026-05-11, 2026-05-22), got (%s, %s)", start, end)
	}
}

func TestClampResize(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		days    int
		want    string
		wantErr bool
	}{
		{
			name:  "grow",
			start: "2026-03-02",
			end:   "2026-03-06",
			days:  2,
			want:  "2026-03-08",
		},
		{
			name:  "shrink",
			start: "2026-03-02",
			end:   "2026-03-06",
			days:  -2,
			want:  "2026-03-04",
		},
		{
			name:  "shrink past start snaps to start",
			start: "2026-03-02",
			end:   "2026-03-06",
			days:  -10,
			want:  "2026-03-02",
		},
		{
			name:    "invalid end date",
			start:   "2026-03-02",
			end:     "bad",
			days:    1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := clampResize(tt.start, tt.end, tt.days)
			if (err != nil) != tt.wantErr {
				t.Errorf("clampResize() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("clampResize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateTaskDates(t *testing.T) {
	strp := func(s string) *string { return &s }

	tests := []struct {
		name         string
		start        string
		end          string
		projectStart *string
		projectEnd   *string
		wantErr      bool
	}{
		{
			name:  "valid, no project window",
			start: "2026-03-02",
			end:   "2026-03-06",
		},
		{
			name:  "single day task",
			start: "2026-03-02",
			end:   "2026-03-02",
		},
		{
			name:    "end before start",
			start:   "2026-03-06",
			end:     "2026-03-02",
			wantErr: true,
		},
		{
			name:         "inside project window",
			start:        "2026-03-02",
			end:          "2026-03-06",
			projectStart: strp("2026-03-01"),
			projectEnd:   strp("2026-03-31"),
		},
		{
			name:         "starts before project window",
			start:        "2026-02-20",
			end:          "2026-03-06",
			projectStart: strp("2026-03-01"),
			projectEnd:   strp("2026-03-31"),
			wantErr:      true,
		},
		{
			name:         "ends after project window",
			start:        "2026-03-02",
			end:          "2026-04-06",
			projectStart: strp("2026-03-01"),
			projectEnd:   strp("2026-03-31"),
			wantErr:      true,
		},
		{
			name:         "open-ended project",
			start:        "2026-03-02",
			end:          "2027-03-06",
			projectStart: strp("2026-03-01"),
		},
		{
			name:    "invalid start",
			start:   "nope",
			end:     "2026-03-06",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTaskDates(tt.start, tt.end, tt.projectStart, tt.projectEnd)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTaskDates() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
