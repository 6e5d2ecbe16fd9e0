package suppliers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier represents a supplier entity
type Supplier struct {
	ID            int64           `json:"id"`
	CompanyID     int64           `json:"companyId" validate:"required,gt=0"`
	Code          string          `json:"code" validate:"required,max=32"`
	Name          string          `json:"name" validate:"required,max=200"`
	ContactPerson string          `json:"contactPerson" validate:"max=200"`
	Phone         string          `json:"phone" validate:"max=32"`
	Email         string          `json:"email" validate:"omitempty,email"`
	Address       string          `json:"address"`
	Province      string          `json:"province" validate:"max=100"`
	TaxID         string          `json:"taxId" validate:"max=32"`
	PaymentTerms  string          `json:"paymentTerms" validate:"max=100"`
	CreditLimit   decimal.Decimal `json:"creditLimit"`
	Notes         string          `json:"notes"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}
