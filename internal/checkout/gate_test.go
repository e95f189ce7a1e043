package checkout

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietcart/storefront/internal/domain"
)

func TestAuthorizeStep(t *testing.T) {
	tests := []struct {
		name          string
		step          domain.CheckoutStep
		authenticated bool
		wantErr       error
	}{
		{"cart step needs auth", domain.StepCart, false, ErrAuthRequired},
		{"checkout step needs auth", domain.StepCheckout, false, ErrAuthRequired},
		{"result step is public", domain.StepResult, false, nil},
		{"authenticated cart", domain.StepCart, true, nil},
		{"authenticated checkout", domain.StepCheckout, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeStep(tt.step, tt.authenticated)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseResultParams_CODNeedsNoResponseCode(t *testing.T) {
	q := url.Values{}
	q.Set("order_id", "abc123")
	q.Set("method", "COD")

	params, err := ParseResultParams(q)

	require.NoError(t, err)
	assert.Equal(t, "abc123", params.OrderID)
	assert.Equal(t, domain.PaymentMethodCOD, params.Method)
}

func TestParseResultParams_GatewayRequiresResponseCode(t *testing.T) {
	q := url.Values{}
	q.Set("order_id", "abc123")
	q.Set("method", "VNPAY")

	_, err := ParseResultParams(q)
	assert.ErrorIs(t, err, ErrInvalidDeepLink)

	q.Set("vnp_ResponseCode", "00")
	params, err := ParseResultParams(q)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentMethodVNPay, params.Method)
	assert.Equal(t, "00", params.ResponseCode)
}

func TestParseResultParams_RejectsForgedLinks(t *testing.T) {
	missingOrder := url.Values{}
	missingOrder.Set("method", "COD")
	_, err := ParseResultParams(missingOrder)
	assert.ErrorIs(t, err, ErrInvalidDeepLink)

	unknownMethod := url.Values{}
	unknownMethod.Set("order_id", "abc123")
	unknownMethod.Set("method", "PAYPAL")
	_, err = ParseResultParams(unknownMethod)
	assert.ErrorIs(t, err, ErrInvalidDeepLink)

	_, err = ParseResultParams(url.Values{})
	assert.ErrorIs(t, err, ErrInvalidDeepLink)
}
