package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Kvnbbg/cfa/internal/audit"
	"github.com/Kvnbbg/cfa/internal/auth"
	"github.com/Kvnbbg/cfa/internal/store"
)

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items      []orderItemRequest `json:"items"`
	CouponCode string             `json:"coupon_code"`
}

func (a *API) ordersCollection() http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			a.createOrder(w, r)
		case http.MethodGet:
			a.listOrders(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	}))
}

func (a *API) orderResource() http.Handler {
	return a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/orders/")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getOrder(w, r, id)
	}))
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		writeError(w, r, http.StatusBadRequest, "items are required")
		return
	}

	var (
		items    []store.OrderItem
		subtotal int64
	)
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			writeError(w, r, http.StatusBadRequest, "quantity must be > 0")
			return
		}
		product, err := a.store.Products().Find(r.Context(), item.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, r, http.StatusBadRequest, "unknown product")
				return
			}
			handleStoreError(w, r, err)
			return
		}
		items = append(items, store.OrderItem{
			ProductID:      product.ID,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		})
		subtotal += product.PriceCents * int64(item.Quantity)
	}

	total := subtotal
	// Codes are stored upper-cased; lookups normalize the same way.
	couponCode := strings.ToUpper(strings.TrimSpace(req.CouponCode))
	if couponCode != "" {
		coupon, err := a.lookupCoupon(w, r, couponCode)
		if err != nil {
			return // response already written
		}
		total = subtotal - coupon.Discount(subtotal)
	}

	order := &store.Order{
		UserID:     user.ID,
		Status:     store.OrderPending,
		TotalCents: total,
		CouponCode: couponCode,
		Items:      items,
	}
	if err := a.store.Orders().Create(r.Context(), order); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "order.created", map[string]any{
		"order_id":    order.ID,
		"total_cents": order.TotalCents,
	})
	writeJSON(w, http.StatusCreated, order)
}

func (a *API) listOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	orders, err := a.store.Orders().ListByUser(r.Context(), user.ID)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*store.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orders})
}

// getOrder returns an order to its owner. Admins can inspect any order.
func (a *API) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}
	order, err := a.store.Orders().Find(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if order.UserID != user.ID && user.Role != store.RoleAdmin {
		// Hide existence of other users' orders.
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// lookupCoupon resolves and validates a coupon code, writing the error
// response itself on failure.
func (a *API) lookupCoupon(w http.ResponseWriter, r *http.Request, code string) (*store.Coupon, error) {
	coupon, err := a.store.Coupons().FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusBadRequest, "invalid coupon code")
			return nil, err
		}
		handleStoreError(w, r, err)
		return nil, err
	}
	if !coupon.Active || coupon.Expired(time.Now().UTC()) {
		writeError(w, r, http.StatusBadRequest, "invalid coupon code")
		return nil, store.ErrInvalidInput
	}
	return coupon, nil
}
