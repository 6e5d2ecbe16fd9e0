// Package procurement manages supplier purchases and the receipt of goods
// into inventory lots.
package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// Purchase lifecycle statuses.
const (
	StatusDraft     = "Draft"
	StatusOrdered   = "Ordered"
	StatusPartial   = "Partial"
	StatusReceived  = "Received"
	StatusCancelled = "Cancelled"
)

// Purchase payment statuses.
const (
	PaymentUnpaid  = "Unpaid"
	PaymentPartial = "Partial"
	PaymentPaid    = "Paid"
)

// Purchase is a purchase order placed with a supplier for one warehouse.
type Purchase struct {
	ID                   int64           `json:"id"`
	CompanyID            int64           `json:"companyId"`
	PurchaseNumber       string          `json:"purchaseNumber"`
	SupplierID           int64           `json:"supplierId"`
	SupplierName         string          `json:"supplierName"`
	WarehouseID          int64           `json:"warehouseId"`
	WarehouseName        string          `json:"warehouseName"`
	PurchaseDate         time.Time       `json:"purchaseDate"`
	ExpectedDeliveryDate *time.Time      `json:"expectedDeliveryDate"`
	ReceivedDate         *time.Time      `json:"receivedDate"`
	Status               string          `json:"status"`
	PaymentStatus        string          `json:"paymentStatus"`
	PaidAmount           decimal.Decimal `json:"paidAmount"`
	TotalAmount          decimal.Decimal `json:"totalAmount"`
	Notes                string          `json:"notes"`
	CreatedBy            *int64          `json:"createdBy"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
	Items                []Item          `json:"items"`
}

// Item is one ordered product line.
type Item struct {
	ID               int64           `json:"id"`
	PurchaseID       int64           `json:"purchaseId"`
	ProductID        int64           `json:"productId"`
	ProductSKU       string          `json:"productSku"`
	ProductName      string          `json:"productName"`
	Quantity         int             `json:"quantity"`
	ReceivedQuantity int             `json:"receivedQuantity"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	LotNumber        string          `json:"lotNumber"`
}

// Outstanding is the quantity still to be received.
func (i Item) Outstanding() int {
	return i.Quantity - i.ReceivedQuantity
}

// Filters narrows the purchase listing.
type Filters struct {
	CompanyID   *int64
	SupplierID  *int64
	WarehouseID *int64
	Status      string
	From        *time.Time
	To          *time.Time
}

// ItemInput is one line of a new purchase.
type ItemInput struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unitCost"`
	LotNumber string          `json:"lotNumber" validate:"max=64"`
}

// CreateInput describes a new purchase. A blank PurchaseNumber is generated.
type CreateInput struct {
	CompanyID            int64       `json:"companyId"`
	PurchaseNumber       string      `json:"purchaseNumber" validate:"max=40"`
	SupplierID           int64       `json:"supplierId" validate:"required,gt=0"`
	WarehouseID          int64       `json:"warehouseId" validate:"required,gt=0"`
	PurchaseDate         *time.Time  `json:"purchaseDate"`
	ExpectedDeliveryDate *time.Time  `json:"expectedDeliveryDate"`
	Status               string      `json:"status" validate:"omitempty,oneof=Draft Ordered"`
	Notes                string      `json:"notes" validate:"max=2000"`
	Items                []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ReceiveItemInput books part of one purchase item.
type ReceiveItemInput struct {
	ItemID     int64      `json:"itemId" validate:"required,gt=0"`
	Quantity   int        `json:"quantity" validate:"gt=0"`
	LotNumber  string     `json:"lotNumber" validate:"max=64"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// ReceiveInput is the body of a goods receipt.
type ReceiveInput struct {
	Items []ReceiveItemInput `json:"items" validate:"required,min=1,dive"`
}

// StatusInput changes the lifecycle or payment state of a purchase.
type StatusInput struct {
	Status        string           `json:"status" validate:"omitempty,oneof=Draft Ordered Cancelled"`
	PaymentStatus string           `json:"paymentStatus" validate:"omitempty,oneof=Unpaid Partial Paid"`
	PaidAmount    *decimal.Decimal `json:"paidAmount"`
}

// ErrInvalidState occurs when an action violates the purchase workflow.
var ErrInvalidState = fmt.Errorf("%w: invalid purchase state", httpx.ErrConflict)
