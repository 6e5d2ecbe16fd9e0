// Package inventory tracks warehouse stock per lot, lot expiry and the
// movement ledger.
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mini-erp/telecrm/internal/platform/httpx"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound receipt.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound issue.
	MovementOut MovementType = "OUT"
	// MovementTransfer is used for transfers between warehouses.
	MovementTransfer MovementType = "TRANSFER"
	// MovementAdjustment indicates manual adjustments.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Label returns the Thai label used on exported reports.
func (t MovementType) Label() string {
	switch t {
	case MovementIn:
		return "รับเข้า"
	case MovementOut:
		return "จ่ายออก"
	case MovementTransfer:
		return "โอนย้าย"
	case MovementAdjustment:
		return "ปรับปรุงยอด"
	}
	return string(t)
}

// Lot statuses.
const (
	LotActive   = "Active"
	LotDepleted = "Depleted"
	LotExpired  = "Expired"
)

// Stock is the on-hand quantity of one product lot in a warehouse.
type Stock struct {
	ID            int64     `json:"id"`
	WarehouseID   int64     `json:"warehouseId"`
	WarehouseName string    `json:"warehouseName"`
	ProductID     int64     `json:"productId"`
	ProductSKU    string    `json:"productSku"`
	ProductName   string    `json:"productName"`
	LotNumber     string    `json:"lotNumber"`
	Quantity      int       `json:"quantity"`
	Reserved      int       `json:"reservedQuantity"`
	Available     int       `json:"availableQuantity"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Lot is one received batch of a product.
type Lot struct {
	ID                int64           `json:"id"`
	LotNumber         string          `json:"lotNumber"`
	ProductID         int64           `json:"productId"`
	ProductSKU        string          `json:"productSku"`
	ProductName       string          `json:"productName"`
	WarehouseID       int64           `json:"warehouseId"`
	WarehouseName     string          `json:"warehouseName"`
	PurchaseID        *int64          `json:"purchaseId"`
	SupplierID        *int64          `json:"supplierId"`
	PurchaseDate      time.Time       `json:"purchaseDate"`
	ExpiryDate        *time.Time      `json:"expiryDate"`
	QuantityReceived  int             `json:"quantityReceived"`
	QuantityRemaining int             `json:"quantityRemaining"`
	UnitCost          decimal.Decimal `json:"unitCost"`
	Status            string          `json:"status"`
	Notes             string          `json:"notes"`
}

// LotSummary aggregates a lot listing.
type LotSummary struct {
	Active         int             `json:"active"`
	Depleted       int             `json:"depleted"`
	Expired        int             `json:"expired"`
	TotalRemaining int             `json:"totalRemaining"`
	TotalValue     decimal.Decimal `json:"totalValue"`
	ExpiringSoon   int             `json:"expiringSoon"`
}

// Movement is one ledger line.
type Movement struct {
	ID            int64        `json:"id"`
	WarehouseID   int64        `json:"warehouseId"`
	WarehouseName string       `json:"warehouseName"`
	ProductID     int64        `json:"productId"`
	ProductSKU    string       `json:"productSku"`
	ProductName   string       `json:"productName"`
	LotNumber     string       `json:"lotNumber"`
	Type          MovementType `json:"movementType"`
	Quantity      int          `json:"quantity"`
	ReferenceType string       `json:"referenceType"`
	ReferenceID   string       `json:"referenceId"`
	Reason        string       `json:"reason"`
	CreatedBy     *int64       `json:"createdBy"`
	CreatedByName string       `json:"createdByName"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// DocumentNo is the reference shown on reports.
func (m Movement) DocumentNo() string {
	if m.ReferenceID != "" {
		return m.ReferenceID
	}
	return fmt.Sprintf("MV-%06d", m.ID)
}

// StockFilters narrows the stock listing. Search matches sku or name.
type StockFilters struct {
	CompanyID   *int64
	WarehouseID *int64
	ProductID   *int64
	Search      string
}

// LotFilters narrows the lot listing.
type LotFilters struct {
	CompanyID          *int64
	WarehouseID        *int64
	ProductID          *int64
	Status             string
	ExpiringWithinDays *int
}

// MovementFilters narrows the movement ledger. Product matches sku or name.
type MovementFilters struct {
	CompanyID   *int64
	WarehouseID *int64
	ProductID   *int64
	Product     string
	Type        string
	From        *time.Time
	To          *time.Time
}

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	WarehouseID int64  `json:"warehouseId" validate:"required,gt=0"`
	ProductID   int64  `json:"productId" validate:"required,gt=0"`
	LotNumber   string `json:"lotNumber" validate:"max=64"`
	Quantity    int    `json:"quantity" validate:"required,ne=0"`
	Reason      string `json:"reason" validate:"required,max=500"`
}

// ReceiptInput books goods into a lot, typically from a purchase receipt.
type ReceiptInput struct {
	WarehouseID  int64
	ProductID    int64
	SupplierID   *int64
	PurchaseID   *int64
	LotNumber    string
	Quantity     int
	UnitCost     decimal.Decimal
	PurchaseDate time.Time
	ExpiryDate   *time.Time
	Reference    string
	ActorID      int64
}

// ErrNegativeStock is returned when a movement would leave a lot or stock below zero.
var ErrNegativeStock = fmt.Errorf("%w: stock cannot go below zero", httpx.ErrValidation)

// ErrLotNotFound indicates a missing lot row.
var ErrLotNotFound = errors.New("inventory: lot not found")

// ErrStockNotFound indicates a missing warehouse stock row.
var ErrStockNotFound = errors.New("inventory: stock not found")
