package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle            CheckoutStatus = "idle"
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment"
	CheckoutStatusSucceeded       CheckoutStatus = "succeeded"
	CheckoutStatusFailed          CheckoutStatus = "failed"
)

var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIdle:            {CheckoutStatusAwaitingPayment},
	CheckoutStatusAwaitingPayment: {CheckoutStatusSucceeded, CheckoutStatusFailed},
	CheckoutStatusFailed:          {CheckoutStatusAwaitingPayment},
}

// IsTerminal reports whether no further transitions are possible.
// failed is not terminal: the visitor may retry.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusSucceeded
}

func (s CheckoutStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
