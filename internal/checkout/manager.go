// Package checkout drives the checkout session state machine:
// idle -> awaiting_payment -> succeeded | failed, with failed -> awaiting_payment on retry.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	d "github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	defaultIdleTTL      = 30 * time.Minute
	defaultHistoryLimit = 20
)

type deps struct {
	orders    OrderPlacer
	journal   Journal
	publisher Publisher
	log       logrus.FieldLogger
	now       func() time.Time
	newID     func() string
	idleTTL   time.Duration
}

type Option func(*deps)

func WithJournal(j Journal) Option {
	return func(o *deps) { o.journal = j }
}

func WithPublisher(p Publisher) Option {
	return func(o *deps) { o.publisher = p }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *deps) { o.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(o *deps) { o.now = now }
}

// WithIdleTTL sets how long a session without state changes stays live.
func WithIdleTTL(d time.Duration) Option {
	return func(o *deps) { o.idleTTL = d }
}

// Manager keeps at most one live checkout session per visitor.
type Manager struct {
	deps *deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(orders OrderPlacer, opts ...Option) *Manager {
	o := &deps{
		orders:    orders,
		journal:   nopJournal{},
		publisher: nopPublisher{},
		log:       logrus.StandardLogger(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
		idleTTL:   defaultIdleTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Manager{
		deps:     o,
		sessions: make(map[string]*Session),
	}
}

// Start snapshots the visitor's cart into a new idle session, replacing any
// previous session that is not mid-payment.
func (m *Manager) Start(ctx context.Context, visitorID string, cart Cart) (d.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.sessions[visitorID]; ok && prev.inFlight() {
		return prev.View(), ErrPaymentInFlight
	}
	return m.startLocked(ctx, visitorID, cart)
}

// Restart replaces an existing session with a fresh snapshot of the live cart.
// The old session is kept when the cart is now empty.
func (m *Manager) Restart(ctx context.Context, visitorID string, cart Cart) (d.CheckoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.sessions[visitorID]
	if !ok {
		return d.CheckoutSession{}, ErrSessionNotFound
	}
	if prev.inFlight() {
		return prev.View(), ErrPaymentInFlight
	}
	return m.startLocked(ctx, visitorID, cart)
}

func (m *Manager) startLocked(ctx context.Context, visitorID string, cart Cart) (d.CheckoutSession, error) {
	s, err := newSession(m.deps.newID(), visitorID, cart, m.deps)
	if err != nil {
		return d.CheckoutSession{}, err
	}
	if prev, ok := m.sessions[visitorID]; ok {
		prev.discard()
	}
	m.sessions[visitorID] = s

	view := s.View()
	s.record(ctx, view)
	s.log.WithField("amount", view.Snapshot.Amount.String()).WithField("items", view.Snapshot.TotalItems()).Info("checkout started")
	return view, nil
}

func (m *Manager) Get(visitorID string) (d.CheckoutSession, error) {
	s, err := m.session(visitorID)
	if err != nil {
		return d.CheckoutSession{}, err
	}
	return s.View(), nil
}

// Pay submits (or retries) the visitor's current session.
func (m *Manager) Pay(ctx context.Context, visitorID string) (d.CheckoutSession, error) {
	s, err := m.session(visitorID)
	if err != nil {
		return d.CheckoutSession{}, err
	}
	return s.Pay(ctx)
}

// Discard drops the visitor's session. Discarding mid-payment abandons the
// attempt: its eventual result is logged and ignored and the cart is kept.
func (m *Manager) Discard(visitorID string) error {
	m.mu.Lock()
	s, ok := m.sessions[visitorID]
	delete(m.sessions, visitorID)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if s.discard() {
		s.log.Warn("checkout discarded while payment in flight")
	}
	return nil
}

// Lookup returns one of the visitor's sessions by id: the live one, or a
// journaled one once it has been swept or replaced.
func (m *Manager) Lookup(ctx context.Context, visitorID, id string) (d.CheckoutSession, error) {
	if s, err := m.session(visitorID); err == nil && s.ID() == id {
		return s.View(), nil
	}

	past, err := m.deps.journal.GetSession(ctx, id)
	if err != nil {
		return d.CheckoutSession{}, err
	}
	if past.VisitorID != visitorID {
		return d.CheckoutSession{}, ErrSessionNotFound
	}
	return *past, nil
}

// History lists the visitor's journaled sessions, newest first.
func (m *Manager) History(ctx context.Context, visitorID string, limit int) ([]d.CheckoutSession, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return m.deps.journal.ListByVisitor(ctx, visitorID, limit)
}

// Sweep drops sessions whose last state change is older than the idle TTL.
// Sessions mid-payment are kept.
func (m *Manager) Sweep() int {
	cutoff := m.deps.now().Add(-m.deps.idleTTL)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for visitorID, s := range m.sessions {
		if s.idleSince(cutoff) {
			s.discard()
			delete(m.sessions, visitorID)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables sweeping.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.deps.log.WithField("evicted", n).Debug("idle checkout sessions evicted")
			}
		}
	}
}

func (m *Manager) session(visitorID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[visitorID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}
