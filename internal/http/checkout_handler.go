package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hellOoSaksit/PixelShop/internal/cart"
	"github.com/hellOoSaksit/PixelShop/internal/checkout"
	"github.com/hellOoSaksit/PixelShop/internal/domain"
	"github.com/sirupsen/logrus"
)

const maxHistoryLimit = 100

type CheckoutHandler struct {
	carts    *cart.Registry
	checkout *checkout.Manager
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewCheckoutHandler(carts *cart.Registry, manager *checkout.Manager, timeout time.Duration, log logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{
		carts:    carts,
		checkout: manager,
		timeout:  timeout,
		log:      log,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !isAuthenticated(ctx) {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	visitorID := getVisitorID(ctx)
	visitorCart, err := h.carts.VisitorCart(ctx, visitorID)
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	session, err := h.checkout.Start(ctx, visitorID, visitorCart)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, h.log, http.StatusCreated, session)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	session, err := h.checkout.Get(getVisitorID(r.Context()))
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, session)
}

// POST /api/v1/checkout/pay
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !isAuthenticated(ctx) {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	// a declined or failed payment is reported in the session state, not as an error
	session, err := h.checkout.Pay(ctx, getVisitorID(ctx))
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, session)
}

// POST /api/v1/checkout/restart
func (h *CheckoutHandler) Restart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !isAuthenticated(ctx) {
		respondError(w, h.log, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	visitorID := getVisitorID(ctx)
	visitorCart, err := h.carts.VisitorCart(ctx, visitorID)
	if err != nil {
		respondCartUnavailable(w, h.log)
		return
	}
	session, err := h.checkout.Restart(ctx, visitorID, visitorCart)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, h.log, http.StatusCreated, session)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Discard(getVisitorID(r.Context())); err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/checkout/history
func (h *CheckoutHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			respondError(w, h.log, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	sessions, err := h.checkout.History(ctx, getVisitorID(ctx), limit)
	if err != nil {
		h.log.WithError(err).Warn("checkout history read failed")
		h.handleCheckoutError(w, err)
		return
	}
	if sessions == nil {
		sessions = []domain.CheckoutSession{}
	}

	respondJSON(w, h.log, http.StatusOK, sessions)
}

// GET /api/v1/checkout/history/{checkout_id}
func (h *CheckoutHandler) GetPastCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session, err := h.checkout.Lookup(ctx, getVisitorID(ctx), chi.URLParam(r, "checkout_id"))
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, h.log, http.StatusOK, session)
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, h.log, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, checkout.ErrPaymentInFlight):
		respondError(w, h.log, http.StatusConflict, "payment_in_flight", err.Error())
	case errors.Is(err, checkout.ErrIllegalTransition):
		respondError(w, h.log, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, h.log, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, checkout.ErrSessionDiscarded):
		respondError(w, h.log, http.StatusGone, "checkout_discarded", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, h.log, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		respondError(w, h.log, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
