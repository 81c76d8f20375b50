package models

import "time"

// SOW is a Scope of Work attached to a sales pricing plan. Ownership starts
// with sales and moves to delivery at kickoff.
type SOW struct {
	ID              int64      `json:"id"`
	OrgID           int64      `json:"org_id"`
	Title           string     `json:"title"`
	Client          string     `json:"client"`
	SalesOwnerID    int64      `json:"sales_owner_id"`
	DeliveryOwnerID *int64     `json:"delivery_owner_id,omitempty"`
	KickedOffAt     *time.Time `json:"kicked_off_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SOWItem is one deliverable line on the scope.
type SOWItem struct {
	ID            int64     `json:"id"`
	SOWID         int64     `json:"sow_id"`
	Deliverable   string    `json:"deliverable"`
	TimelineWeeks int       `json:"timeline_weeks"`
	Amount        float64   `json:"amount"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateSOWRequest represents the request body for creating a SOW
type CreateSOWRequest struct {
	Title  string `json:"title" validate:"required,min=1,max=255"`
	Client string `json:"client" validate:"required,min=1,max=255"`
}

// CreateSOWItemRequest represents the request body for adding a scope item
type CreateSOWItemRequest struct {
	Deliverable   string  `json:"deliverable" validate:"required,min=1,max=500"`
	TimelineWeeks int     `json:"timeline_weeks" validate:"required,gt=0"`
	Amount        float64 `json:"amount" validate:"required,gte=0"`
}

// UpdateSOWItemRequest represents the request body for editing a scope item
type UpdateSOWItemRequest struct {
	Deliverable   *string  `json:"deliverable,omitempty"`
	TimelineWeeks *int     `json:"timeline_weeks,omitempty" validate:"omitempty,gt=0"`
	Amount        *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
}

// KickoffRequest transfers a signed deal from sales to delivery ownership
type KickoffRequest struct {
	DeliveryOwnerID int64 `json:"delivery_owner_id" validate:"required,gt=0"`
}
