package model

import "time"

// User is a platform account. Admins manage other users and see every score.
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	Admin        bool      `json:"admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserFilter narrows the admin user table.
type UserFilter struct {
	Search string
	Active *bool
	Admin  *bool
}

// RegisterRequest is the payload for self-registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=128,username"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=1,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// CreateUserRequest is the payload for an admin creating an account.
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=128,username"`
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=6,max=128"`
	Active   *bool  `json:"active"`
	Admin    bool   `json:"admin"`
}

// UpdateUserRequest is the payload for an admin editing an account. Omitted
// fields are left unchanged.
type UpdateUserRequest struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=128,username"`
	Email    *string `json:"email" binding:"omitempty,email,max=128"`
	Password *string `json:"password" binding:"omitempty,min=6,max=128"`
	Active   *bool   `json:"active"`
	Admin    *bool   `json:"admin"`
}

// UserStats summarizes the user table for the dashboard.
type UserStats struct {
	TotalUsers    int     `json:"total_users"`
	ActiveUsers   int     `json:"active_users"`
	InactiveUsers int     `json:"inactive_users"`
	AdminUsers    int     `json:"admin_users"`
	ActiveRate    float64 `json:"active_rate"`
}
