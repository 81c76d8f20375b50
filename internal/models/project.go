package models

import "time"

// Project statuses
var ValidProjectStatuses = []string{"planned", "active", "on_hold", "completed"}

// Project is a consulting delivery project.
type Project struct {
	ID          int64     `json:"id"`
	OrgID       int64     `json:"org_id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Client      *string   `json:"client,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      string    `json:"status"`
	OwnerID     *int64    `json:"owner_id,omitempty"` // delivery owner (user)
	StartDate   *string   `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate     *string   `json:"end_date,omitempty"`
	Budget      *float64  `json:"budget,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProjectRequest represents the request body for creating a project
type CreateProjectRequest struct {
	Code        string   `json:"code" validate:"required,min=1,max=64"`
	Name        string   `json:"name" validate:"required,min=1,max=255"`
	Client      *string  `json:"client,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=planned active on_hold completed"`
	OwnerID     *int64   `json:"owner_id,omitempty"`
	StartDate   *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Budget      *float64 `json:"budget,omitempty" validate:"omitempty,gte=0"`
}

// UpdateProjectRequest represents the request body for updating a project
type UpdateProjectRequest struct {
	Name        *string  `json:"name,omitempty"`
	Client      *string  `json:"client,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=planned active on_hold completed"`
	OwnerID     *int64   `json:"owner_id,omitempty"`
	StartDate   *string  `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string  `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Budget      *float64 `json:"budget,omitempty" validate:"omitempty,gte=0"`
}
