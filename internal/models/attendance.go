package models

import "time"

// OfficeLocation is a geofence center for attendance check-ins.
type OfficeLocation struct {
	ID           int64     `json:"id"`
	OrgID        int64     `json:"org_id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusMeters float64   `json:"radius_meters"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateOfficeLocationRequest represents the request body for adding an office
type CreateOfficeLocationRequest struct {
	Name         string  `json:"name" validate:"required,min=1,max=255"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusMeters float64 `json:"radius_meters" validate:"required,gt=0"`
}

// AttendanceRecord is one day's check-in/check-out for a user.
type AttendanceRecord struct {
	ID          int64      `json:"id"`
	OrgID       int64      `json:"org_id"`
	UserID      int64      `json:"user_id"`
	Day         string     `json:"day"` // YYYY-MM-DD
	CheckInAt   time.Time  `json:"check_in_at"`
	CheckOutAt  *time.Time `json:"check_out_at,omitempty"`
	OfficeID    int64      `json:"office_id"`
	CheckInLat  float64    `json:"check_in_lat"`
	CheckInLng  float64    `json:"check_in_lng"`
	DistanceM   float64    `json:"distance_meters"`
}

// CheckInRequest carries the browser-reported coordinates.
type CheckInRequest struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}
