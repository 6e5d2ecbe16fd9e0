package roles

import "time"

// Role represents a role for management.
type Role struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"isSystem"`
	IsActive    bool      `json:"isActive"`
	UserCount   int       `json:"userCount"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateInput is the payload for a new role.
type CreateInput struct {
	Code        string   `json:"code" validate:"required,max=64"`
	Name        string   `json:"name" validate:"required,max=128"`
	Description string   `json:"description" validate:"max=500"`
	IsActive    *bool    `json:"isActive"`
	Permissions []string `json:"permissions"`
}

// UpdateInput is the payload for editing a role.
type UpdateInput struct {
	Name        string `json:"name" validate:"required,max=128"`
	Description string `json:"description" validate:"max=500"`
	IsActive    *bool  `json:"isActive"`
}

// PermissionsInput replaces a role's permission set.
type PermissionsInput struct {
	Permissions []string `json:"permissions"`
}
