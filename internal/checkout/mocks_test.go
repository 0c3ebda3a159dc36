package checkout

import (
	"context"
	"sync"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
)

type orderCall struct {
	Key   string
	Order domain.OrderRequest
}

// MockOrderPlacer answers CreateOrder from a queue of results.
type MockOrderPlacer struct {
	mu      sync.Mutex
	Results []*domain.OrderResult
	Errs    []error
	Calls   []orderCall
	// Started, when set, is signalled on entry; Release blocks the call until closed.
	Started chan struct{}
	Release chan struct{}
}

func (m *MockOrderPlacer) CreateOrder(_ context.Context, key string, order domain.OrderRequest) (*domain.OrderResult, error) {
	m.mu.Lock()
	n := len(m.Calls)
	m.Calls = append(m.Calls, orderCall{Key: key, Order: order})
	m.mu.Unlock()

	if m.Started != nil {
		m.Started <- struct{}{}
	}
	if m.Release != nil {
		<-m.Release
	}

	var res *domain.OrderResult
	var err error
	if n < len(m.Results) {
		res = m.Results[n]
	}
	if n < len(m.Errs) {
		err = m.Errs[n]
	}
	return res, err
}

func (m *MockOrderPlacer) calls() []orderCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]orderCall(nil), m.Calls...)
}

// MockJournal keeps the latest version of every saved session.
type MockJournal struct {
	mu       sync.Mutex
	States   []domain.CheckoutStatus
	Sessions map[string]domain.CheckoutSession
	Order    []string
	Err      error
}

func (m *MockJournal) SaveSession(_ context.Context, s *domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States = append(m.States, s.State)
	if m.Err != nil {
		return m.Err
	}
	if m.Sessions == nil {
		m.Sessions = make(map[string]domain.CheckoutSession)
	}
	if _, ok := m.Sessions[s.ID]; !ok {
		m.Order = append(m.Order, s.ID)
	}
	m.Sessions[s.ID] = *s
	return nil
}

func (m *MockJournal) GetSession(_ context.Context, id string) (*domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sessions[id]
	if !ok {
		return nil, domain.ErrCheckoutNotFound
	}
	return &s, nil
}

func (m *MockJournal) ListByVisitor(_ context.Context, visitorID string, limit int) ([]domain.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CheckoutSession
	for i := len(m.Order) - 1; i >= 0 && len(out) < limit; i-- {
		if s := m.Sessions[m.Order[i]]; s.VisitorID == visitorID {
			out = append(out, s)
		}
	}
	return out, nil
}

type MockPublisher struct {
	mu        sync.Mutex
	Published []domain.CheckoutSession
	Err       error
}

func (m *MockPublisher) PublishCheckoutSucceeded(_ context.Context, s domain.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, s)
	return m.Err
}
