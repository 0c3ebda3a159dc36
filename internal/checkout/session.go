package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	d "github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/sirupsen/logrus"
)

const journalTimeout = 2 * time.Second

// Session is one checkout attempt over a frozen snapshot of the cart.
// The snapshot never changes after creation, so retries pay the same amount
// even if the live cart was edited meanwhile.
type Session struct {
	mu        sync.Mutex
	state     d.CheckoutSession
	discarded bool

	cart    Cart
	deps    *deps
	log     logrus.FieldLogger
	persist sync.Mutex // orders journal writes of this session
}

func newSession(id, visitorID string, cart Cart, deps *deps) (*Session, error) {
	snapshot := cart.Snapshot()
	if snapshot.IsEmpty() {
		return nil, ErrEmptyCart
	}

	now := deps.now()
	return &Session{
		state: d.CheckoutSession{
			ID:        id,
			VisitorID: visitorID,
			State:     d.CheckoutStatusIdle,
			Snapshot:  snapshot,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cart: cart,
		deps: deps,
		log: deps.log.WithFields(logrus.Fields{
			"checkout_id": id,
			"visitor_id":  visitorID,
		}),
	}, nil
}

func (s *Session) ID() string {
	return s.state.ID
}

// View returns a copy of the observable state.
func (s *Session) View() d.CheckoutSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() d.CheckoutSession {
	v := s.state
	v.Snapshot.Lines = append([]d.CartLine(nil), s.state.Snapshot.Lines...)
	return v
}

// Pay submits the snapshot to the API gateway. Transitions:
// idle|failed -> awaiting_payment -> succeeded|failed.
// A payment failure is not returned as an error: it is reported through the
// returned view with State failed and LastError set.
func (s *Session) Pay(ctx context.Context) (d.CheckoutSession, error) {
	s.mu.Lock()
	if err := s.beginLocked(); err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, err
	}
	pending := s.viewLocked()
	s.mu.Unlock()

	s.record(ctx, pending)
	s.log.WithField("attempt", pending.Attempts).WithField("amount", pending.Snapshot.Amount.String()).Info("submitting payment")

	result, payErr := s.deps.orders.CreateOrder(ctx, pending.ID, pending.Snapshot.OrderRequest())

	s.mu.Lock()
	if s.discarded {
		view := s.viewLocked()
		s.mu.Unlock()
		s.logAbandoned(result, payErr)
		return view, ErrSessionDiscarded
	}
	s.finishLocked(result, payErr)
	view := s.viewLocked()
	s.mu.Unlock()

	s.record(ctx, view)
	if view.State == d.CheckoutStatusSucceeded {
		s.cart.Clear(ctx)
		s.log.WithField("transaction_id", view.TransactionID).Info("payment succeeded, cart cleared")
		if err := s.deps.publisher.PublishCheckoutSucceeded(ctx, view); err != nil {
			s.log.WithError(err).Warn("publish checkout event failed")
		}
	} else {
		s.log.WithField("error", view.LastError).Warn("payment failed")
	}
	return view, nil
}

func (s *Session) beginLocked() error {
	if s.discarded {
		return ErrSessionDiscarded
	}
	from := s.state.State
	if from == d.CheckoutStatusAwaitingPayment {
		return ErrPaymentInFlight
	}
	if !d.CanTransitionTo(from, d.CheckoutStatusAwaitingPayment) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, d.CheckoutStatusAwaitingPayment)
	}
	if s.state.Snapshot.IsEmpty() {
		return ErrEmptyCart
	}

	s.state.State = d.CheckoutStatusAwaitingPayment
	s.state.Attempts++
	s.state.LastError = ""
	s.state.UpdatedAt = s.deps.now()
	return nil
}

func (s *Session) finishLocked(result *d.OrderResult, payErr error) {
	s.state.UpdatedAt = s.deps.now()
	switch {
	case payErr != nil:
		s.state.State = d.CheckoutStatusFailed
		s.state.LastError = payErr.Error()
	case result == nil || result.TransactionID == "":
		s.state.State = d.CheckoutStatusFailed
		s.state.LastError = "payment response carries no transaction id"
	default:
		s.state.State = d.CheckoutStatusSucceeded
		s.state.TransactionID = result.TransactionID
	}
}

// discard marks the session abandoned. A payment still in flight keeps running
// but its result is ignored when it arrives.
func (s *Session) discard() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
	return s.state.State == d.CheckoutStatusAwaitingPayment
}

func (s *Session) inFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.State == d.CheckoutStatusAwaitingPayment
}

// idleSince reports whether the session is not mid-payment and has not
// changed state since cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.State != d.CheckoutStatusAwaitingPayment && s.state.UpdatedAt.Before(cutoff)
}

func (s *Session) logAbandoned(result *d.OrderResult, payErr error) {
	entry := s.log.WithField("abandoned", true)
	switch {
	case payErr != nil:
		entry.WithError(payErr).Warn("abandoned checkout payment failed, result ignored")
	case result != nil:
		entry.WithField("transaction_id", result.TransactionID).Error("abandoned checkout was charged, result ignored and cart kept")
	}
}

func (s *Session) record(ctx context.Context, view d.CheckoutSession) {
	s.persist.Lock()
	defer s.persist.Unlock()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.deps.journal.SaveSession(saveCtx, &view); err != nil {
		s.log.WithError(err).WithField("state", view.State).Warn("journal write failed")
	}
}
