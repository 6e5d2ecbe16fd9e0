package products

import "github.com/shopspring/decimal"

// ProductForm is the create/update payload.
type ProductForm struct {
	CompanyID   int64           `json:"companyId"`
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	Category    string          `json:"category" validate:"max=100"`
	Unit        string          `json:"unit" validate:"max=32"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	IsActive    *bool           `json:"isActive"`
}

func (f ProductForm) toModel() Product {
	p := Product{
		CompanyID:   f.CompanyID,
		SKU:         f.SKU,
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Unit:        f.Unit,
		Cost:        f.Cost,
		Price:       f.Price,
		IsActive:    true,
	}
	if f.IsActive != nil {
		p.IsActive = *f.IsActive
	}
	return p
}
