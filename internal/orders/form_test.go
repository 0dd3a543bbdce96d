package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutForm_Validate(t *testing.T) {
	valid := CheckoutForm{
		FullName:        "John Smith",
		ShippingAddress: "New York, Madison St. 12",
		Phone:           "+123456789",
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		form  CheckoutForm
		field string
	}{
		{
			name:  "missing full name",
			form:  CheckoutForm{ShippingAddress: "addr", Phone: "123"},
			field: "full_name",
		},
		{
			name:  "missing shipping address",
			form:  CheckoutForm{FullName: "John", Phone: "123"},
			field: "shipping_address",
		},
		{
			name:  "missing phone",
			form:  CheckoutForm{FullName: "John", ShippingAddress: "addr"},
			field: "phone",
		},
		{
			name:  "whitespace only counts as blank",
			form:  CheckoutForm{FullName: "John", ShippingAddress: "   \t", Phone: "123"},
			field: "shipping_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			var missingErr *MissingFieldError
			require.ErrorAs(t, err, &missingErr)
			assert.Equal(t, tt.field, missingErr.Field)
		})
	}
}

func TestCheckoutForm_Trim(t *testing.T) {
	form := CheckoutForm{
		FullName:        "  John Smith ",
		ShippingAddress: "\tMadison St. 12\n",
		Phone:           " +123456789 ",
		Email:           " john@example.com ",
		Comment:         "  call first  ",
		PaymentMethod:   " card ",
	}

	trimmed := form.Trim()
	assert.Equal(t, "John Smith", trimmed.FullName)
	assert.Equal(t, "Madison St. 12", trimmed.ShippingAddress)
	assert.Equal(t, "+123456789", trimmed.Phone)
	assert.Equal(t, "john@example.com", trimmed.Email)
	assert.Equal(t, "call first", trimmed.Comment)
	assert.Equal(t, "card", trimmed.PaymentMethod)
}

func TestNormalizePaymentMethod(t *testing.T) {
	assert.Equal(t, PaymentCard, NormalizePaymentMethod("card"))
	assert.Equal(t, PaymentCOD, NormalizePaymentMethod("cod"))
	assert.Equal(t, PaymentCash, NormalizePaymentMethod("cash"))

	// unrecognized values default instead of failing
	assert.Equal(t, PaymentCash, NormalizePaymentMethod(""))
	assert.Equal(t, PaymentCash, NormalizePaymentMethod("bitcoin"))
}
