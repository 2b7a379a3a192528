package account

// CreateAccountRequest represents the request body for creating an account
type CreateAccountRequest struct {
	Name  string  `json:"name" validate:"required,min=2,max=100"`
	Phone string  `json:"phone" validate:"required,e164"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateAccountRequest represents the request body for updating an account
type UpdateAccountRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
}

// AccountResponse represents the response for a single account
type AccountResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
	Email     *string `json:"email,omitempty"`
	CreatedAt string  `json:"created_at"`
}

// ToResponse converts an Account model to an AccountResponse DTO
func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Phone:     a.Phone,
		Email:     a.Email,
		CreatedAt: a.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
