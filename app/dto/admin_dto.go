package dto

import "time"

// AdminLoginRequest represents the admin panel login form
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

// AdminLoginResponse represents the response after admin login
type AdminLoginResponse struct {
	Message  string  `json:"message"`
	Redirect string  `json:"redirect"`
	User     UserDTO `json:"user"`
}

// CustomerSummaryDTO is the admin-facing view of a customer account
type CustomerSummaryDTO struct {
	ID            uint       `json:"id"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	IsBlocked     bool       `json:"is_blocked"`
	IsVerified    bool       `json:"is_verified"`
	WalletBalance int64      `json:"wallet_balance"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// DashboardStatsResponse aggregates customer counts for the admin landing
type DashboardStatsResponse struct {
	TotalCustomers    int64                `json:"total_customers"`
	ActiveCustomers   int64                `json:"active_customers"`
	BlockedCustomers  int64                `json:"blocked_customers"`
	VerifiedCustomers int64                `json:"verified_customers"`
	RecentCustomers   []CustomerSummaryDTO `json:"recent_customers"`
}

// ListCustomersResponse is one page of the admin customer listing,
// echoing the filters that produced it
type ListCustomersResponse struct {
	Customers  []CustomerSummaryDTO `json:"customers"`
	Pagination Pagination           `json:"pagination"`
	Status     string               `json:"status"`
	Sort       string               `json:"sort"`
	Search     string               `json:"search,omitempty"`
}

// ToggleBlockResponse reports the new blocked state of a customer
type ToggleBlockResponse struct {
	Message    string `json:"message"`
	CustomerID uint   `json:"customer_id"`
	IsBlocked  bool   `json:"is_blocked"`
}
