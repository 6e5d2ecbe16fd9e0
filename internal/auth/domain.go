package auth

import "time"

// User represents an account able to log in.
type User struct {
	ID           int64      `json:"id"`
	CompanyID    int64      `json:"companyId"`
	RoleID       int64      `json:"roleId"`
	RoleCode     string     `json:"role"`
	RoleName     string     `json:"roleName"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// IsActive reports whether the account may log in.
func (u User) IsActive() bool {
	return u.Status == "active"
}

// LoginRequest is the login payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful login and from /me.
type LoginResponse struct {
	Token       string   `json:"token,omitempty"`
	User        User     `json:"user"`
	Permissions []string `json:"permissions"`
}

// ChangePasswordRequest changes the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}
