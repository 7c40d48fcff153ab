package dto

// ProfileResponse carries the account plus its default delivery address
type ProfileResponse struct {
	User           UserDTO     `json:"user"`
	DefaultAddress *AddressDTO `json:"default_address,omitempty"`
}

// UpdateProfileRequest represents editable profile fields
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"required,min=2,max=60,alpha_space"`
	LastName  string `json:"last_name" validate:"required,min=2,max=60,alpha_space"`
	Phone     string `json:"phone" validate:"required,indian_mobile"`
}

// UpdateProfileResponse represents the response after a profile update
type UpdateProfileResponse struct {
	Message string  `json:"message"`
	User    UserDTO `json:"user"`
}

// ChangePasswordRequest represents an authenticated password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ChangePasswordResponse represents the response after a password change
type ChangePasswordResponse struct {
	Message string `json:"message"`
}

// UpdateProfileImageResponse carries the stored image path after upload
type UpdateProfileImageResponse struct {
	Message      string `json:"message"`
	ProfileImage string `json:"profile_image"`
}

// DeactivateAccountResponse represents the response after deactivation
type DeactivateAccountResponse struct {
	Message string `json:"message"`
}
