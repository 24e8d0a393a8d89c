package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Kvnbbg/cfa/internal/audit"
	"github.com/Kvnbbg/cfa/internal/store"
)

type couponRequest struct {
	Code      string     `json:"code"`
	Type      string     `json:"type"`
	Value     int64      `json:"value"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type validateCouponRequest struct {
	Code          string `json:"code"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

type validateCouponResponse struct {
	Valid         bool  `json:"valid"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

func (a *API) couponsCollection() http.Handler {
	create := a.requireAdmin(http.HandlerFunc(a.createCoupon))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		create.ServeHTTP(w, r)
	})
}

func (a *API) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}
	if req.Type != store.DiscountPercent && req.Type != store.DiscountFixed {
		writeError(w, r, http.StatusBadRequest, "type must be percent or fixed")
		return
	}
	if req.Value <= 0 || (req.Type == store.DiscountPercent && req.Value > 100) {
		writeError(w, r, http.StatusBadRequest, "invalid discount value")
		return
	}

	coupon := &store.Coupon{
		Code:   code,
		Type:   req.Type,
		Value:  req.Value,
		Active: true,
	}
	if req.ExpiresAt != nil {
		coupon.ExpiresAt = req.ExpiresAt.UTC()
	}
	if err := a.store.Coupons().Create(r.Context(), coupon); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "coupon.created", map[string]any{"code": coupon.Code})
	writeJSON(w, http.StatusCreated, coupon)
}

func (a *API) validateCoupon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req validateCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		writeError(w, r, http.StatusBadRequest, "code is required")
		return
	}
	if req.SubtotalCents < 0 {
		writeError(w, r, http.StatusBadRequest, "subtotal_cents must be >= 0")
		return
	}

	coupon, err := a.store.Coupons().FindByCode(r.Context(), code)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		handleStoreError(w, r, err)
		return
	}
	if err != nil || !coupon.Active || coupon.Expired(time.Now().UTC()) {
		// An unknown code is not an error, just an invalid coupon.
		writeJSON(w, http.StatusOK, validateCouponResponse{
			Valid:      false,
			TotalCents: req.SubtotalCents,
		})
		return
	}

	discount := coupon.Discount(req.SubtotalCents)
	writeJSON(w, http.StatusOK, validateCouponResponse{
		Valid:         true,
		DiscountCents: discount,
		TotalCents:    req.SubtotalCents - discount,
	})
}
