package checkout

import (
	"errors"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
)

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
	ErrPaymentInFlight   = errors.New("payment already in flight for this checkout")
	ErrSessionNotFound   = domain.ErrCheckoutNotFound
	ErrSessionDiscarded  = errors.New("checkout session discarded")
)
