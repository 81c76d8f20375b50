package models

import "time"

// Task statuses
var ValidTaskStatuses = []string{"todo", "in_progress", "done"}

// Task is a schedulable unit on the project Gantt chart. Dates are DATE
// columns exchanged as ISO strings, matching what the scheduling UI holds.
type Task struct {
	ID         int64     `json:"id"`
	OrgID      int64     `json:"org_id"`
	ProjectID  int64     `json:"project_id"`
	Title      string    `json:"title"`
	AssigneeID *int64    `json:"assignee_id,omitempty"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"` // 0..100
	StartDate  string    `json:"start_date"` // YYYY-MM-DD
	EndDate    string    `json:"end_date"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	ProjectID  int64   `json:"project_id" validate:"required,gt=0"`
	Title      string  `json:"title" validate:"required,min=1,max=255"`
	AssigneeID *int64  `json:"assignee_id,omitempty"`
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done"`
	Progress   *int    `json:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
	StartDate  string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string  `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// UpdateTaskRequest represents the request body for updating a task
type UpdateTaskRequest struct {
	Title      *string `json:"title,omitempty"`
	AssigneeID *int64  `json:"assignee_id,omitempty"`
	Status     *string `json:"status,omitempty" validate:"omitempty,oneof=todo in_progress done"`
	Progress   *int    `json:"progress,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// UpdateTaskDatesRequest is the Gantt drag/resize commit: the client converts
// its pixel delta into new dates and PATCHes them here.
type UpdateTaskDatesRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}
