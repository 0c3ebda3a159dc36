package gateway

import (
	"context"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultHydrateLimit = 8

// ProductLookup is satisfied by *Client.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// HydratedLine pairs a cart line with the current catalog entry.
type HydratedLine struct {
	domain.CartLine
	Product domain.Product `json:"product"`
}

// Hydrate looks up every line's product concurrently. Lines whose lookup fails are
// left out of the result and their ids returned in omitted; the cart is not modified.
func Hydrate(ctx context.Context, lookup ProductLookup, lines []domain.CartLine, limit int, log logrus.FieldLogger) (hydrated []HydratedLine, omitted []string) {
	if limit <= 0 {
		limit = defaultHydrateLimit
	}

	results := make([]*HydratedLine, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, line := range lines {
		g.Go(func() error {
			p, err := lookup.GetProduct(gctx, line.ProductID)
			if err != nil {
				log.WithError(err).WithField("product_id", line.ProductID).Warn("product lookup failed, omitting line")
				return nil
			}
			results[i] = &HydratedLine{CartLine: line, Product: p}
			return nil
		})
	}
	_ = g.Wait()

	hydrated = make([]HydratedLine, 0, len(lines))
	for i, r := range results {
		if r == nil {
			omitted = append(omitted, lines[i].ProductID)
			continue
		}
		hydrated = append(hydrated, *r)
	}
	return hydrated, omitted
}
