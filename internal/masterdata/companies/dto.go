package companies

// CompanyForm is the payload of the company editor modal.
type CompanyForm struct {
	Code     string `json:"code" validate:"required,max=32"`
	Name     string `json:"name" validate:"required,max=200"`
	TaxID    string `json:"taxId" validate:"omitempty,max=20"`
	Address  string `json:"address"`
	Phone    string `json:"phone" validate:"max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive *bool  `json:"isActive"`
}

func (f CompanyForm) toModel() Company {
	c := Company{
		Code:     f.Code,
		Name:     f.Name,
		TaxID:    f.TaxID,
		Address:  f.Address,
		Phone:    f.Phone,
		Email:    f.Email,
		IsActive: true,
	}
	if f.IsActive != nil {
		c.IsActive = *f.IsActive
	}
	return c
}
