package models

import "time"

// Travel claim statuses. pending is the only non-terminal state.
var ValidTravelStatuses = []string{"pending", "approved", "rejected"}

// TravelClaim is a travel reimbursement request.
type TravelClaim struct {
	ID          int64      `json:"id"`
	OrgID       int64      `json:"org_id"`
	UserID      int64      `json:"user_id"`
	Purpose     string     `json:"purpose"`
	Destination string     `json:"destination"`
	StartDate   string     `json:"start_date"` // YYYY-MM-DD
	EndDate     string     `json:"end_date"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"`
	ReviewerID  *int64     `json:"reviewer_id,omitempty"`
	ReviewNote  *string    `json:"review_note,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateTravelClaimRequest represents the request body for filing a claim
type CreateTravelClaimRequest struct {
	Purpose     string  `json:"purpose" validate:"required,min=1,max=500"`
	Destination string  `json:"destination" validate:"required,min=1,max=255"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,len=3"`
}

// ReviewTravelClaimRequest carries the optional reviewer note
type ReviewTravelClaimRequest struct {
	Note *string `json:"note,omitempty"`
}
