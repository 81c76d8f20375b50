package models

import "time"

// Employee is the HR record, separate from the login account.
type Employee struct {
	ID            int64      `json:"id"`
	OrgID         int64      `json:"org_id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	Department    *string    `json:"department,omitempty"`
	Position      *string    `json:"position,omitempty"`
	ManagerID     *int64     `json:"manager_id,omitempty"`
	JoiningDate   *string    `json:"joining_date,omitempty"` // YYYY-MM-DD
	MonthlySalary *float64   `json:"monthly_salary,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateEmployeeRequest represents the request body for creating an employee
type CreateEmployeeRequest struct {
	FullName      string   `json:"full_name" validate:"required,min=1,max=255"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         *string  `json:"phone,omitempty"`
	Department    *string  `json:"department,omitempty"`
	Position      *string  `json:"position,omitempty"`
	ManagerID     *int64   `json:"manager_id,omitempty"`
	JoiningDate   *string  `json:"joining_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MonthlySalary *float64 `json:"monthly_salary,omitempty" validate:"omitempty,gte=0"`
}

// UpdateEmployeeRequest represents the request body for updating an employee
type UpdateEmployeeRequest struct {
	FullName      *string  `json:"full_name,omitempty"`
	Email         *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone         *string  `json:"phone,omitempty"`
	Department    *string  `json:"department,omitempty"`
	Position      *string  `json:"position,omitempty"`
	ManagerID     *int64   `json:"manager_id,omitempty"`
	JoiningDate   *string  `json:"joining_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MonthlySalary *float64 `json:"monthly_salary,omitempty" validate:"omitempty,gte=0"`
	IsActive      *bool    `json:"is_active,omitempty"`
}
