package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/hellOoSaksit/PixelShop/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const defaultSaveTimeout = 2 * time.Second

// ErrUnavailable reports that the cart could not be read from its backend.
// The persisted cart is unknown, so no empty stand-in may be written over it.
var ErrUnavailable = errors.New("cart storage unavailable")

// Store is the single source of truth for one visitor's cart.
// Every mutation is applied in memory first and then written through to storage;
// a failed write is logged and does not undo the mutation.
type Store struct {
	key         string
	storage     storage.Storage
	log         logrus.FieldLogger
	now         func() time.Time
	saveTimeout time.Duration

	mu    sync.Mutex
	order []string
	lines map[string]*domain.CartLine
}

// Load restores the cart stored under key. A missing key or a corrupt or
// unknown payload yields an empty cart. A backend error (including a cancelled
// ctx) returns ErrUnavailable and no Store.
func Load(ctx context.Context, key string, st storage.Storage, log logrus.FieldLogger) (*Store, error) {
	s := newStore(key, st, log)

	data, err := st.Load(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	lines, err := Decode(data)
	if err != nil {
		s.log.WithError(err).Warn("persisted cart unreadable, starting empty")
		return s, nil
	}
	for i := range lines {
		l := lines[i]
		s.order = append(s.order, l.ProductID)
		s.lines[l.ProductID] = &l
	}
	return s, nil
}

func newStore(key string, st storage.Storage, log logrus.FieldLogger) *Store {
	return &Store{
		key:         key,
		storage:     st,
		log:         log.WithField("cart_key", key),
		now:         func() time.Time { return time.Now().UTC() },
		saveTimeout: defaultSaveTimeout,
		lines:       make(map[string]*domain.CartLine),
	}
}

// AddItem increments the line for ref.ID, or inserts it. quantity below 1 counts as 1.
func (s *Store) AddItem(ctx context.Context, ref domain.ProductRef, quantity int) domain.CartLine {
	quantity = domain.ClampQuantity(quantity)

	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[ref.ID]
	if ok {
		line.Quantity += quantity
	} else {
		line = &domain.CartLine{
			ProductID: ref.ID,
			Name:      ref.Name,
			Image:     ref.Image,
			UnitPrice: ref.UnitPrice,
			Quantity:  quantity,
			AddedAt:   s.now(),
		}
		s.lines[ref.ID] = line
		s.order = append(s.order, ref.ID)
	}

	s.persistLocked(ctx)
	return *line
}

func (s *Store) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lines[productID]; !ok {
		return
	}
	s.removeLocked(productID)
	s.persistLocked(ctx)
}

// UpdateQuantity overwrites a line's quantity; below 1 removes the line.
// Unknown product ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[productID]
	if !ok {
		return
	}
	if quantity < domain.MinQuantity {
		s.removeLocked(productID)
	} else {
		line.Quantity = quantity
	}
	s.persistLocked(ctx)
}

func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.lines = make(map[string]*domain.CartLine)
	s.persistLocked(ctx)
}

// Lines returns a copy of the lines in insertion order.
func (s *Store) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.linesLocked()
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, l := range s.lines {
		total += l.Quantity
	}
	return total
}

func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines) == 0
}

// Snapshot copies the current lines for checkout.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.NewCartSnapshot(s.linesLocked(), s.now())
}

func (s *Store) linesLocked() []domain.CartLine {
	out := make([]domain.CartLine, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.lines[id])
	}
	return out
}

func (s *Store) removeLocked(productID string) {
	delete(s.lines, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// persistLocked writes the full line set, or deletes the key once the cart is
// empty. It detaches from the caller's cancellation so an aborted request
// still leaves storage consistent with memory.
func (s *Store) persistLocked(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
	defer cancel()

	if len(s.order) == 0 {
		if err := s.storage.Delete(saveCtx, s.key); err != nil {
			s.log.WithError(err).Error("cart delete failed")
		}
		return
	}

	data, err := Encode(s.linesLocked(), s.now())
	if err != nil {
		s.log.WithError(err).Error("cart encode failed")
		return
	}
	if err := s.storage.Save(saveCtx, s.key, data); err != nil {
		s.log.WithError(err).Error("cart save failed")
	}
}
