package domain

import "errors"

var ErrUnknownStep = errors.New("unknown checkout step")

// CheckoutStep is the phase of the purchase flow. It is carried exclusively in
// the "step" URL query parameter and re-parsed on every request; handlers never
// trust a previously resolved step.
type CheckoutStep int

const (
	StepCart     CheckoutStep = 1
	StepCheckout CheckoutStep = 2
	StepResult   CheckoutStep = 3
)

func ParseCheckoutStep(raw string) (CheckoutStep, error) {
	switch raw {
	case "1":
		return StepCart, nil
	case "2":
		return StepCheckout, nil
	case "3":
		return StepResult, nil
	default:
		return 0, ErrUnknownStep
	}
}

// RequiresAuth reports whether the step needs an authenticated session.
// StepResult stays reachable without one because a payment gateway may
// redirect back into a fresh browser context.
func (s CheckoutStep) RequiresAuth() bool {
	return s == StepCart || s == StepCheckout
}

func (s CheckoutStep) String() string {
	switch s {
	case StepCart:
		return "CART"
	case StepCheckout:
		return "CHECKOUT"
	case StepResult:
		return "RESULT"
	default:
		return "UNKNOWN"
	}
}
