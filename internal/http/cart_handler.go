package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hellOoSaksit/PixelShop/internal/cart"
	"github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/hellOoSaksit/PixelShop/internal/gateway"
	"github.com/hellOoSaksit/PixelShop/pkg/circuitbreaker"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	carts        *cart.Registry
	products     gateway.ProductLookup
	timeout      time.Duration
	hydrateLimit int
	log          logrus.FieldLogger
}

func NewCartHandler(carts *cart.Registry, products gateway.ProductLookup, timeout time.Duration, hydrateLimit int, log logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:        carts,
		products:     products,
		timeout:      timeout,
		hydrateLimit: hydrateLimit,
		log:          log,
	}
}

type AddItemRequestDTO struct {
	ProductID gateway.FlexibleID `json:"product_id"`
	Quantity  *int               `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

type CartResponseDTO struct {
	Lines      []domain.CartLine      `json:"lines"`
	TotalItems int                    `json:"totalItems"`
	TotalPrice decimal.Decimal        `json:"totalPrice"`
	Products   []gateway.HydratedLine `json:"products,omitempty"`
	Omitted    []string               `json:"omitted,omitempty"`
}

func newCartResponse(snapshot domain.CartSnapshot) CartResponseDTO {
	return CartResponseDTO{
		Lines:      snapshot.Lines,
		TotalItems: snapshot.TotalItems(),
		TotalPrice: snapshot.Amount,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, err := h.carts.Get(ctx, getVisitorID(ctx))
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	resp := newCartResponse(store.Snapshot())

	if hydrate, _ := strconv.ParseBool(r.URL.Query().Get("hydrate")); hydrate {
		resp.Products, resp.Omitted = gateway.Hydrate(ctx, h.products, resp.Lines, h.hydrateLimit, h.log)
	}

	respondJSON(w, h.log, http.StatusOK, resp)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	quantity := domain.MinQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := domain.ValidateQuantity(quantity); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_quantity", err.Error())
		return
	}

	product, err := h.products.GetProduct(ctx, string(req.ProductID))
	if err != nil {
		h.handleGatewayError(w, err)
		return
	}

	store, err := h.carts.Get(ctx, getVisitorID(ctx))
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	store.AddItem(ctx, product.Ref(), quantity)

	respondJSON(w, h.log, http.StatusCreated, newCartResponse(store.Snapshot()))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.log, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// 0 removes the line
	if req.Quantity == nil || *req.Quantity < 0 || *req.Quantity > domain.MaxQuantity {
		respondError(w, h.log, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99")
		return
	}

	store, err := h.carts.Get(ctx, getVisitorID(ctx))
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	store.UpdateQuantity(ctx, productID, *req.Quantity)

	respondJSON(w, h.log, http.StatusOK, newCartResponse(store.Snapshot()))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, h.log, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	store, err := h.carts.Get(ctx, getVisitorID(ctx))
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	store.RemoveItem(ctx, productID)

	respondJSON(w, h.log, http.StatusOK, newCartResponse(store.Snapshot()))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	store, err := h.carts.Get(ctx, getVisitorID(ctx))
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	store.Clear(ctx)

	respondJSON(w, h.log, http.StatusOK, newCartResponse(store.Snapshot()))
}

func (h *CartHandler) handleGatewayError(w http.ResponseWriter, err error) {
	var se *gateway.StatusError
	switch {
	case errors.Is(err, gateway.ErrProductNotFound):
		respondError(w, h.log, http.StatusNotFound, "product_not_found", "product not found")
	case circuitbreaker.IsOpen(err):
		respondError(w, h.log, http.StatusServiceUnavailable, "service_unavailable", "api gateway temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, h.log, http.StatusGatewayTimeout, "timeout", "api gateway timed out")
	case errors.As(err, &se):
		respondErrorDetails(w, h.log, http.StatusBadGateway, "upstream_error", "api gateway request failed", strconv.Itoa(se.StatusCode))
	default:
		respondError(w, h.log, http.StatusBadGateway, "upstream_error", "api gateway request failed")
	}
}
