// Package validation plugs go-playground/validator into Echo so handlers
// can call c.Validate on bound request structs.
package validation

import (
	"github.com/go-playground/validator/v10"
)

// Validator adapts a validator.Validate instance to echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New returns a request validator with struct-tag rules enabled.
func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate implements echo.Validator.
func (rv *Validator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}
