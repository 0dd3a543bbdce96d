package orders

import "strings"

// CheckoutForm is the contact data collected at checkout. FullName,
// ShippingAddress and Phone are required; the rest is optional.
type CheckoutForm struct {
	FullName        string
	ShippingAddress string
	Phone           string
	Email           string
	Comment         string
	PaymentMethod   string
}

// requiredFields is checked in a fixed order so validation errors are
// deterministic.
var requiredFields = []string{"full_name", "shipping_address", "phone"}

// Trim strips surrounding whitespace from every field, returning the form
// that actually gets stored.
func (f CheckoutForm) Trim() CheckoutForm {
	return CheckoutForm{
		FullName:        strings.TrimSpace(f.FullName),
		ShippingAddress: strings.TrimSpace(f.ShippingAddress),
		Phone:           strings.TrimSpace(f.Phone),
		Email:           strings.TrimSpace(f.Email),
		Comment:         strings.TrimSpace(f.Comment),
		PaymentMethod:   strings.TrimSpace(f.PaymentMethod),
	}
}

// Validate reports the first required field that is blank after trimming.
func (f CheckoutForm) Validate() error {
	trimmed := f.Trim()
	values := map[string]string{
		"full_name":        trimmed.FullName,
		"shipping_address": trimmed.ShippingAddress,
		"phone":            trimmed.Phone,
	}
	for _, field := range requiredFields {
		if values[field] == "" {
			return &MissingFieldError{Field: field}
		}
	}
	return nil
}
