package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	d "github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrSessionNotFound = d.ErrCheckoutNotFound

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sessionColumns = `id, visitor_id, state, amount, snapshot, transaction_id, attempts, last_error, created_at, updated_at`

func (r *Repository) SaveSession(ctx context.Context, s *d.CheckoutSession) error {
	snapshot, err := json.Marshal(s.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}

	query := r.rebind(`INSERT INTO checkout_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			transaction_id = excluded.transaction_id,
			attempts = excluded.attempts,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`)

	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.VisitorID,
		string(s.State),
		s.Snapshot.Amount.String(),
		string(snapshot),
		s.TransactionID,
		s.Attempts,
		s.LastError,
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkout session %s: %w", s.ID, err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, id string) (*d.CheckoutSession, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+sessionColumns+` FROM checkout_sessions WHERE id = ?`), id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout session %s: %w", id, err)
	}
	return s, nil
}

// ListByVisitor returns the visitor's sessions, newest first.
func (r *Repository) ListByVisitor(ctx context.Context, visitorID string, limit int) ([]d.CheckoutSession, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		r.rebind(`SELECT `+sessionColumns+` FROM checkout_sessions WHERE visitor_id = ? ORDER BY created_at DESC LIMIT ?`),
		visitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkout sessions: %w", err)
	}
	defer rows.Close()

	var out []d.CheckoutSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout session: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (*d.CheckoutSession, error) {
	var (
		s                    d.CheckoutSession
		state, amount, snap  string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&s.ID, &s.VisitorID, &state, &amount, &snap, &s.TransactionID,
		&s.Attempts, &s.LastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	s.State = d.CheckoutStatus(state)
	if err := json.Unmarshal([]byte(snap), &s.Snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("decode amount: %w", err)
	}
	s.Snapshot.Amount = amt

	if s.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
