package users

import "time"

// User statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// User represents a user account for management.
type User struct {
	ID           int64      `json:"id"`
	CompanyID    int64      `json:"companyId"`
	CompanyName  string     `json:"companyName"`
	RoleID       int64      `json:"roleId"`
	RoleCode     string     `json:"role"`
	RoleName     string     `json:"roleName"`
	SupervisorID *int64     `json:"supervisorId"`
	Username     string     `json:"username"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"lastLoginAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ListFilters narrows the user listing.
type ListFilters struct {
	CompanyID *int64
	RoleID    *int64
	RoleCode  string
	Status    string
}

// CreateInput is the payload for a new user.
type CreateInput struct {
	CompanyID    int64  `json:"companyId" validate:"required,gt=0"`
	RoleID       int64  `json:"roleId" validate:"required,gt=0"`
	SupervisorID *int64 `json:"supervisorId" validate:"omitempty,gt=0"`
	Username     string `json:"username" validate:"required,max=64"`
	Password     string `json:"password" validate:"required,min=4,max=72"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=32"`
}

// UpdateInput edits a user. An empty password keeps the current one.
type UpdateInput struct {
	CompanyID    int64  `json:"companyId" validate:"required,gt=0"`
	RoleID       int64  `json:"roleId" validate:"required,gt=0"`
	SupervisorID *int64 `json:"supervisorId" validate:"omitempty,gt=0"`
	Password     string `json:"password" validate:"omitempty,min=4,max=72"`
	FirstName    string `json:"firstName" validate:"required,max=100"`
	LastName     string `json:"lastName" validate:"max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=32"`
}

// StatusInput toggles a user's status.
type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}
