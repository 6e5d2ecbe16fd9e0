package warehouses

import (
	"time"
)

// Warehouse represents a warehouse entity
type Warehouse struct {
	ID                   int64     `json:"id"`
	CompanyID            int64     `json:"companyId" validate:"required,gt=0"`
	CompanyName          string    `json:"companyName"`
	Code                 string    `json:"code" validate:"required,max=32"`
	Name                 string    `json:"name" validate:"required,max=200"`
	Address              string    `json:"address"`
	Province             string    `json:"province" validate:"max=100"`
	ResponsibleProvinces []string  `json:"responsibleProvinces"`
	ManagerName          string    `json:"managerName" validate:"max=200"`
	Phone                string    `json:"phone" validate:"max=32"`
	IsActive             bool      `json:"isActive"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
