// Package orders implements telesales orders: creation with totals, status
// and payment updates with their customer side effects, bulk tracking
// numbers, slips, exports, and shipping labels.
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/customers"
)

const (
	StatusPending   = "Pending"
	StatusPicking   = "Picking"
	StatusShipping  = "Shipping"
	StatusDelivered = "Delivered"
	StatusReturned  = "Returned"
	StatusCancelled = "Cancelled"
)

const (
	PaymentUnpaid              = "Unpaid"
	PaymentPendingVerification = "PendingVerification"
	PaymentPaid                = "Paid"
)

const (
	MethodCOD      = "COD"
	MethodTransfer = "Transfer"
	MethodPayAfter = "PayAfter"
)

// Item is one order line. LineTotal is derived.
type Item struct {
	ID           int64           `json:"id"`
	ProductID    *int64          `json:"productId"`
	PromotionID  *int64          `json:"promotionId"`
	ProductName  string          `json:"productName"`
	Quantity     int             `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Discount     decimal.Decimal `json:"discount"`
	IsFreebie    bool            `json:"isFreebie"`
	BoxNumber    int             `json:"boxNumber"`
	LineTotal    decimal.Decimal `json:"lineTotal"`
}

// Slip is a payment transfer slip attached to an order.
type Slip struct {
	ID           int64           `json:"id"`
	URL          string          `json:"url"`
	Amount       decimal.Decimal `json:"amount"`
	TransferDate *time.Time      `json:"transferDate"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Order is the aggregate returned by the API.
type Order struct {
	ID              string            `json:"id"`
	CompanyID       int64             `json:"companyId"`
	CustomerID      int64             `json:"customerId"`
	CustomerName    string            `json:"customerName"`
	CustomerPhone   string            `json:"customerPhone"`
	CreatorID       int64             `json:"creatorId"`
	CreatorName     string            `json:"creatorName"`
	OrderDate       time.Time         `json:"orderDate"`
	DeliveryDate    *time.Time        `json:"deliveryDate"`
	RecipientName   string            `json:"recipientName"`
	ShippingAddress customers.Address `json:"shippingAddress"`
	ShippingCost    decimal.Decimal   `json:"shippingCost"`
	BillDiscount    decimal.Decimal   `json:"billDiscount"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	PaymentMethod   string            `json:"paymentMethod"`
	PaymentStatus   string            `json:"paymentStatus"`
	AmountPaid      decimal.Decimal   `json:"amountPaid"`
	CODAmount       decimal.Decimal   `json:"codAmount"`
	OrderStatus     string            `json:"orderStatus"`
	Notes           string            `json:"notes"`
	SalesChannel    string            `json:"salesChannel"`
	SaleCounted     bool              `json:"-"`
	TrackingNumbers []string          `json:"trackingNumbers"`
	Items           []Item            `json:"items,omitempty"`
	Slips           []Slip            `json:"slips,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// Filters narrows order listings.
type Filters struct {
	CompanyID     *int64
	Status        string
	PaymentStatus string
	PaymentMethod string
	CustomerID    *int64
	CreatorID     *int64
}

// ItemInput is one line of a create request.
type ItemInput struct {
	ProductID    *int64          `json:"productId"`
	PromotionID  *int64          `json:"promotionId"`
	ProductName  string          `json:"productName" validate:"required,max=200"`
	Quantity     int             `json:"quantity" validate:"required,gt=0"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	Discount     decimal.Decimal `json:"discount"`
	IsFreebie    bool            `json:"isFreebie"`
	BoxNumber    int             `json:"boxNumber" validate:"gte=0"`
}

// CreateInput is the payload for POST /orders.
type CreateInput struct {
	ID              string            `json:"id" validate:"omitempty,max=32"`
	CompanyID       int64             `json:"companyId"`
	CustomerID      int64             `json:"customerId" validate:"required,gt=0"`
	DeliveryDate    *time.Time        `json:"deliveryDate"`
	RecipientName   string            `json:"recipientName" validate:"max=200"`
	ShippingAddress customers.Address `json:"shippingAddress"`
	ShippingCost    decimal.Decimal   `json:"shippingCost"`
	BillDiscount    decimal.Decimal   `json:"billDiscount"`
	PaymentMethod   string            `json:"paymentMethod" validate:"required,oneof=COD Transfer PayAfter"`
	PaymentStatus   string            `json:"paymentStatus" validate:"omitempty,oneof=Unpaid PendingVerification Paid"`
	AmountPaid      decimal.Decimal   `json:"amountPaid"`
	CODAmount       decimal.Decimal   `json:"codAmount"`
	Notes           string            `json:"notes"`
	SalesChannel    string            `json:"salesChannel" validate:"max=100"`
	TrackingNumbers []string          `json:"trackingNumbers"`
	Items           []ItemInput       `json:"items" validate:"required,min=1,dive"`
}

// PatchInput updates an order. Empty strings and nil values leave a field unchanged.
type PatchInput struct {
	OrderStatus     string           `json:"orderStatus" validate:"omitempty,oneof=Pending Picking Shipping Delivered Returned Cancelled"`
	PaymentStatus   string           `json:"paymentStatus" validate:"omitempty,oneof=Unpaid PendingVerification Paid"`
	AmountPaid      *decimal.Decimal `json:"amountPaid"`
	CODAmount       *decimal.Decimal `json:"codAmount"`
	Notes           string           `json:"notes"`
	SalesChannel    string           `json:"salesChannel"`
	TrackingNumbers []string         `json:"trackingNumbers"`
}

// SlipInput attaches a transfer slip.
type SlipInput struct {
	URL          string          `json:"url" validate:"required,url"`
	Amount       decimal.Decimal `json:"amount"`
	TransferDate *time.Time      `json:"transferDate"`
}
