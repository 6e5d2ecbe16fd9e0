// Package tags manages the labels attached to customers.
package tags

import "time"

const (
	TypeSystem = "SYSTEM"
	TypeUser   = "USER"
)

// Tag labels customers. Names are unique per company and type.
type Tag struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"companyId"`
	Name      string    `json:"name" validate:"required,max=100"`
	Type      string    `json:"type" validate:"required,oneof=SYSTEM USER"`
	Color     string    `json:"color" validate:"omitempty,max=32"`
	Customers int       `json:"customerCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filters narrows tag listings.
type Filters struct {
	CompanyID *int64
	Type      string
	Search    string
}
