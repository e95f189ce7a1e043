package domain

import "errors"

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

type PaymentMethod string

const (
	// PaymentMethodCOD confirms the order synchronously, no external redirect.
	PaymentMethodCOD PaymentMethod = "COD"
	// PaymentMethodVNPay redirects the buyer to the VNPAY gateway, which
	// later redirects back with a response code.
	PaymentMethodVNPay PaymentMethod = "VNPAY"
)

// ParsePaymentMethod validates an untrusted method value, typically taken from
// a URL parameter.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch PaymentMethod(raw) {
	case PaymentMethodCOD:
		return PaymentMethodCOD, nil
	case PaymentMethodVNPay:
		return PaymentMethodVNPay, nil
	default:
		return "", ErrUnknownPaymentMethod
	}
}

func (m PaymentMethod) String() string {
	return string(m)
}
