package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator bundles struct-tag validation with the business rule validator
// so services receive a single dependency.
type Validator struct {
	validate *validator.Validate
	business *BusinessValidator
}

// New creates a validator with all business rules registered.
func New() *Validator {
	business := NewBusinessValidator()
	return &Validator{
		validate: business.validate,
		business: business,
	}
}

// Validate runs struct-tag validation and returns a plain error.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator returns the business rule validator.
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}
