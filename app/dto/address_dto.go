package dto

import "time"

// AddressDTO represents a delivery address for API responses
type AddressDTO struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Pincode     string    `json:"pincode"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	HouseNumber string    `json:"house_number"`
	Locality    string    `json:"locality"`
	Landmark    *string   `json:"landmark,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveAddressRequest is the payload for adding or replacing an address
type SaveAddressRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=60,alpha_space"`
	Phone       string  `json:"phone" validate:"required,indian_mobile"`
	Pincode     string  `json:"pincode" validate:"required,len=6,numeric"`
	City        string  `json:"city" validate:"required,max=60"`
	State       string  `json:"state" validate:"required,max=60"`
	HouseNumber string  `json:"house_number" validate:"required,max=120"`
	Locality    string  `json:"locality" validate:"required,max=120"`
	Landmark    *string `json:"landmark,omitempty" validate:"omitempty,max=120"`
}

// AddressListResponse represents the address listing, default first
type AddressListResponse struct {
	Addresses []AddressDTO `json:"addresses"`
}

// AddressResponse represents a single-address mutation result
type AddressResponse struct {
	Message string     `json:"message"`
	Address AddressDTO `json:"address"`
}

// DeleteAddressResponse reports the deletion and any promoted default
type DeleteAddressResponse struct {
	Message            string `json:"message"`
	PromotedAddressID  *uint  `json:"promoted_address_id,omitempty"`
	RemainingAddresses int    `json:"remaining_addresses"`
}
