// Package promotions manages bundle promotions and their derived pricing.
package promotions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is one product line of a promotion, joined to the product catalogue.
type Item struct {
	ID            int64            `json:"id"`
	ProductID     int64            `json:"productId"`
	ProductSKU    string           `json:"productSku"`
	ProductName   string           `json:"productName"`
	ProductPrice  decimal.Decimal  `json:"productPrice"`
	Quantity      int              `json:"quantity"`
	IsFreebie     bool             `json:"isFreebie"`
	PriceOverride *decimal.Decimal `json:"priceOverride"`
}

// Promotion is a named bundle valid between optional start and end dates.
type Promotion struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"companyId"`
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	IsActive    bool       `json:"isActive"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Items       []Item     `json:"items"`
	Pricing     Pricing    `json:"pricing"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Filters narrows promotion listings.
type Filters struct {
	CompanyID *int64
	IsActive  *bool
}

// ItemInput is one line of a create/update payload.
type ItemInput struct {
	ProductID     int64            `json:"productId" validate:"required,gt=0"`
	Quantity      int              `json:"quantity" validate:"gt=0"`
	IsFreebie     bool             `json:"isFreebie"`
	PriceOverride *decimal.Decimal `json:"priceOverride"`
}

// Input is the create/update payload.
type Input struct {
	CompanyID   int64       `json:"companyId"`
	SKU         string      `json:"sku" validate:"max=64"`
	Name        string      `json:"name" validate:"required,max=200"`
	Description string      `json:"description"`
	IsActive    *bool       `json:"isActive"`
	StartDate   *time.Time  `json:"startDate"`
	EndDate     *time.Time  `json:"endDate"`
	Items       []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ActiveInput toggles a promotion.
type ActiveInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}
