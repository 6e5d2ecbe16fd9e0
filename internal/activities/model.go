// Package activities keeps the per-customer timeline written by the CRM and order flows.
package activities

import "time"

// Type classifies a timeline entry.
type Type string

const (
	TypeAssignment         Type = "assignment"
	TypeGradeChange        Type = "grade_change"
	TypeStatusChange       Type = "status_change"
	TypeOrderCreated       Type = "order_created"
	TypeAppointmentSet     Type = "appointment_set"
	TypeCallLogged         Type = "call_logged"
	TypeOrderCancelled     Type = "order_cancelled"
	TypeTrackingAdded      Type = "tracking_added"
	TypePaymentVerified    Type = "payment_verified"
	TypeOrderStatusChanged Type = "order_status_changed"
	TypeOrderNoteAdded     Type = "order_note_added"
	TypeOwnershipExpired   Type = "ownership_expired"
)

// Activity is one timeline entry.
type Activity struct {
	ID          int64     `json:"id"`
	CustomerID  int64     `json:"customerId"`
	Type        Type      `json:"type"`
	Description string    `json:"description"`
	ActorID     *int64    `json:"actorId"`
	ActorName   string    `json:"actorName"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Filters narrows the activity listing.
type Filters struct {
	CustomerID *int64
	Type       string
}
