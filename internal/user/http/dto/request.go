// Package dto provides data transfer objects for the user HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/natter/internal/user/usecase"
	appValidation "github.com/allisson/natter/internal/validation"
)

// RegisterUserRequest represents the API request for user registration
type RegisterUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the request shape. Password policy is enforced by the use case.
func (r *RegisterUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username,
			validation.Required,
			appValidation.NotBlank,
			validation.Length(1, 30),
		),
		validation.Field(&r.Password,
			validation.Required,
			validation.Length(1, 128),
		),
	)
}

// ToRegisterUserInput converts the request to the use case input
func (r *RegisterUserRequest) ToRegisterUserInput() usecase.RegisterUserInput {
	return usecase.RegisterUserInput{
		Username: r.Username,
		Password: r.Password,
	}
}
