// Package customers implements the telesales customer book: the customer
// list, ownership assignment, tagging, and CSV import/export.
package customers

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LifecycleNew               = "New"
	LifecycleOld               = "Old"
	LifecycleFollowUp          = "FollowUp"
	LifecycleOld3Months        = "Old3Months"
	LifecycleDailyDistribution = "DailyDistribution"
)

const (
	BehaviorHot    = "Hot"
	BehaviorWarm   = "Warm"
	BehaviorCold   = "Cold"
	BehaviorFrozen = "Frozen"
)

const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeB     = "B"
	GradeC     = "C"
	GradeD     = "D"
)

// Address is a Thai postal address.
type Address struct {
	Street      string `json:"street"`
	Subdistrict string `json:"subdistrict"`
	District    string `json:"district"`
	Province    string `json:"province"`
	PostalCode  string `json:"postalCode" validate:"omitempty,numeric,len=5"`
}

// TagRef is the tag summary embedded in a customer.
type TagRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

// Customer is one entry in the customer book.
type Customer struct {
	ID               int64           `json:"id"`
	CompanyID        int64           `json:"companyId"`
	FirstName        string          `json:"firstName"`
	LastName         string          `json:"lastName"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	FacebookName     string          `json:"facebookName"`
	LineID           string          `json:"lineId"`
	Address          Address         `json:"address"`
	LifecycleStatus  string          `json:"lifecycleStatus"`
	BehavioralStatus string          `json:"behavioralStatus"`
	Grade            string          `json:"grade"`
	AssignedTo       *int64          `json:"assignedTo"`
	AssignedToName   string          `json:"assignedToName"`
	DateAssigned     *time.Time      `json:"dateAssigned"`
	DateRegistered   time.Time       `json:"dateRegistered"`
	FollowUpDate     *time.Time      `json:"followUpDate"`
	OwnershipExpires *time.Time      `json:"ownershipExpires"`
	TotalPurchases   decimal.Decimal `json:"totalPurchases"`
	TotalCalls       int             `json:"totalCalls"`
	HasSoldBefore    bool            `json:"hasSoldBefore"`
	LastSaleDate     *time.Time      `json:"lastSaleDate"`
	FollowUpCount    int             `json:"followUpCount"`
	Notes            string          `json:"notes"`
	Tags             []TagRef        `json:"tags"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// FullName joins first and last name.
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Filters narrows customer listings. AssignedTo of 0 selects the unassigned pool.
type Filters struct {
	CompanyID  *int64
	Lifecycle  string
	Behavioral string
	Grade      string
	AssignedTo *int64
	Province   string
	TagID      *int64
}

// CreateInput is the payload for POST /customers.
type CreateInput struct {
	CompanyID        int64      `json:"companyId"`
	FirstName        string     `json:"firstName" validate:"required,max=100"`
	LastName         string     `json:"lastName" validate:"max=100"`
	Phone            string     `json:"phone" validate:"required"`
	Email            string     `json:"email" validate:"omitempty,email"`
	FacebookName     string     `json:"facebookName" validate:"max=200"`
	LineID           string     `json:"lineId" validate:"max=100"`
	Address          Address    `json:"address"`
	LifecycleStatus  string     `json:"lifecycleStatus" validate:"omitempty,oneof=New Old FollowUp Old3Months DailyDistribution"`
	BehavioralStatus string     `json:"behavioralStatus" validate:"omitempty,oneof=Hot Warm Cold Frozen"`
	AssignedTo       *int64     `json:"assignedTo"`
	FollowUpDate     *time.Time `json:"followUpDate"`
	Notes            string     `json:"notes"`
	TagIDs           []int64    `json:"tagIds"`
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	FirstName        *string    `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName         *string    `json:"lastName" validate:"omitempty,max=100"`
	Phone            *string    `json:"phone"`
	Email            *string    `json:"email" validate:"omitempty,email"`
	FacebookName     *string    `json:"facebookName"`
	LineID           *string    `json:"lineId"`
	Address          *Address   `json:"address"`
	LifecycleStatus  *string    `json:"lifecycleStatus" validate:"omitempty,oneof=New Old FollowUp Old3Months DailyDistribution"`
	BehavioralStatus *string    `json:"behavioralStatus" validate:"omitempty,oneof=Hot Warm Cold Frozen"`
	Grade            *string    `json:"grade" validate:"omitempty,oneof=A+ A B C D"`
	FollowUpDate     *time.Time `json:"followUpDate"`
	Notes            *string    `json:"notes"`
}

// AssignInput moves a customer to a telesale, or back to the pool when UserID is nil.
type AssignInput struct {
	UserID *int64 `json:"userId"`
}

// TagsInput replaces a customer's tags.
type TagsInput struct {
	TagIDs []int64 `json:"tagIds"`
}

// CallInput logs a telephone call.
type CallInput struct {
	Result string `json:"result" validate:"max=100"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// AppointmentInput schedules a follow-up.
type AppointmentInput struct {
	Date  time.Time `json:"date" validate:"required"`
	Notes string    `json:"notes" validate:"max=2000"`
}
