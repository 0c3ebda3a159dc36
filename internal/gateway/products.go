package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hellOoSaksit/PixelShop/internal/domain"
)

// FlexibleID accepts both numeric and string ids.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

type productDTO struct {
	ID FlexibleID `json:"id"`
	domain.Product
}

// GetProduct fetches one catalog entry. Concurrent calls for the same id share
// one request, which runs detached from any single caller's cancellation and
// is bounded by the client timeout.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	ch := c.sfg.DoChan("product:"+id, func() (interface{}, error) {
		return c.fetchProduct(context.WithoutCancel(ctx), id)
	})

	select {
	case <-ctx.Done():
		return domain.Product{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Product{}, res.Err
		}
		return res.Val.(domain.Product), nil
	}
}

func (c *Client) fetchProduct(ctx context.Context, id string) (domain.Product, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return domain.Product{}, err
	}

	var dto productDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domain.Product{}, fmt.Errorf("%w: decode product %s: %w", ErrUpstream, id, err)
	}
	p := dto.Product
	p.ID = string(dto.ID)
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}
