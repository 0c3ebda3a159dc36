package checkout

import (
	"context"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
)

// OrderPlacer submits the payment intent. Satisfied by *gateway.Client.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, idempotencyKey string, order domain.OrderRequest) (*domain.OrderResult, error)
}

// Cart is the part of the cart store a checkout needs. Satisfied by
// *cart.Store and *cart.VisitorCart.
type Cart interface {
	Snapshot() domain.CartSnapshot
	Clear(ctx context.Context)
}

// Journal records every session transition and serves past sessions.
// GetSession returns domain.ErrCheckoutNotFound for unknown ids.
type Journal interface {
	SaveSession(ctx context.Context, session *domain.CheckoutSession) error
	GetSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	ListByVisitor(ctx context.Context, visitorID string, limit int) ([]domain.CheckoutSession, error)
}

// Publisher announces completed checkouts.
type Publisher interface {
	PublishCheckoutSucceeded(ctx context.Context, session domain.CheckoutSession) error
}

type nopJournal struct{}

func (nopJournal) SaveSession(context.Context, *domain.CheckoutSession) error { return nil }

func (nopJournal) GetSession(context.Context, string) (*domain.CheckoutSession, error) {
	return nil, domain.ErrCheckoutNotFound
}

func (nopJournal) ListByVisitor(context.Context, string, int) ([]domain.CheckoutSession, error) {
	return nil, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishCheckoutSucceeded(context.Context, domain.CheckoutSession) error {
	return nil
}
