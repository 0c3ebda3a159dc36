package cart

import (
	"context"
	"sync"
	"time"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/hellOoSaksit/PixelShop/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix = "cart:"

	defaultLoadTimeout = 3 * time.Second
	defaultIdleTTL     = 30 * time.Minute
	emptyIdleTTL       = time.Minute
)

// StorageKey is the fixed namespace a visitor's cart is persisted under.
func StorageKey(visitorID string) string {
	return keyPrefix + visitorID
}

type entry struct {
	store    *Store
	lastUsed time.Time
}

type Option func(*Registry)

// WithLoadTimeout bounds a first load from storage.
func WithLoadTimeout(d time.Duration) Option {
	return func(r *Registry) { r.loadTimeout = d }
}

// WithIdleTTL sets how long an unused cart stays in memory.
func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) { r.idleTTL = d }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// Registry hands out one Store per visitor, loading it from storage on first use.
// Stores are write-through, so dropping one from memory loses nothing.
type Registry struct {
	storage     storage.Storage
	log         logrus.FieldLogger
	loadTimeout time.Duration
	idleTTL     time.Duration
	now         func() time.Time

	mu     sync.Mutex
	stores map[string]*entry
	sfg    singleflight.Group // collapses concurrent first loads of the same cart
}

func NewRegistry(st storage.Storage, log logrus.FieldLogger, opts ...Option) *Registry {
	r := &Registry{
		storage:     st,
		log:         log,
		loadTimeout: defaultLoadTimeout,
		idleTTL:     defaultIdleTTL,
		now:         time.Now,
		stores:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the visitor's Store. When storage cannot be read it returns
// ErrUnavailable and caches nothing, so the next call retries the load.
func (r *Registry) Get(ctx context.Context, visitorID string) (*Store, error) {
	if s, ok := r.cached(visitorID); ok {
		return s, nil
	}

	v, err, _ := r.sfg.Do(visitorID, func() (interface{}, error) {
		if s, ok := r.cached(visitorID); ok {
			return s, nil
		}

		// one caller's cancellation must not fail every waiter
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()

		log := r.log.WithField("visitor_id", visitorID)
		loaded, err := Load(loadCtx, StorageKey(visitorID), r.storage, log)
		if err != nil {
			log.WithError(err).Warn("cart load failed")
			return nil, err
		}

		r.mu.Lock()
		r.stores[visitorID] = &entry{store: loaded, lastUsed: r.now()}
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

func (r *Registry) cached(visitorID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[visitorID]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.store, true
}

// Forget drops the in-memory copy; the next Get reloads from storage.
func (r *Registry) Forget(visitorID string) {
	r.mu.Lock()
	delete(r.stores, visitorID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep evicts carts unused for longer than the idle TTL, and empty carts
// unused for a minute.
func (r *Registry) Sweep() int {
	now := r.now()
	cutoff := now.Add(-r.idleTTL)
	emptyCutoff := now.Add(-min(emptyIdleTTL, r.idleTTL))

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.stores {
		if e.lastUsed.Before(cutoff) || (e.lastUsed.Before(emptyCutoff) && e.store.IsEmpty()) {
			delete(r.stores, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables sweeping.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
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
			if n := r.Sweep(); n > 0 {
				r.log.WithField("evicted", n).WithField("cached", r.Len()).Debug("idle carts evicted")
			}
		}
	}
}

// VisitorCart pins the Store a checkout snapshots. Clear goes to whichever
// Store is cached for the visitor at that moment, so a checkout that outlives
// an eviction still clears the cart the visitor sees.
type VisitorCart struct {
	registry  *Registry
	visitorID string
	store     *Store
}

func (r *Registry) VisitorCart(ctx context.Context, visitorID string) (*VisitorCart, error) {
	s, err := r.Get(ctx, visitorID)
	if err != nil {
		return nil, err
	}
	return &VisitorCart{registry: r, visitorID: visitorID, store: s}, nil
}

func (c *VisitorCart) Snapshot() domain.CartSnapshot {
	return c.store.Snapshot()
}

func (c *VisitorCart) Clear(ctx context.Context) {
	if cur, ok := c.registry.cached(c.visitorID); ok {
		cur.Clear(ctx)
		return
	}
	c.store.Clear(ctx)
}
