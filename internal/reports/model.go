// Package reports serves the sales dashboards and report workbooks.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Filter scopes every report. To is exclusive.
type Filter struct {
	CompanyID *int64
	From      time.Time
	To        time.Time
}

// Totals are the headline order figures. Cancelled orders are excluded.
type Totals struct {
	Orders            int             `json:"orders"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
}

// Bucket is one slice of a breakdown.
type Bucket struct {
	Key        string          `json:"key"`
	Count      int             `json:"count"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage float64         `json:"percentage"`
}

// DailyPoint is one day of the sales series. Date is YYYY-MM-DD.
type DailyPoint struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// TopProduct ranks products by quantity sold.
type TopProduct struct {
	ProductID *int64          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// SalesSummary is the sales dashboard payload.
type SalesSummary struct {
	From            string       `json:"from"`
	To              string       `json:"to"`
	Totals          Totals       `json:"totals"`
	ByStatus        []Bucket     `json:"byStatus"`
	ByPaymentMethod []Bucket     `json:"byPaymentMethod"`
	Daily           []DailyPoint `json:"daily"`
	TopProducts     []TopProduct `json:"topProducts"`
}

// TelesalesRow is one creator's performance.
type TelesalesRow struct {
	UserID              int64           `json:"userId"`
	Name                string          `json:"name"`
	Orders              int             `json:"orders"`
	Revenue             decimal.Decimal `json:"revenue"`
	CustomersAssigned   int             `json:"customersAssigned"`
	CustomersWithOrders int             `json:"customersWithOrders"`
	Calls               int             `json:"calls"`
	ConversionRate      float64         `json:"conversionRate"`
}
