package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/Kvnbbg/cfa/internal/audit"
	"github.com/Kvnbbg/cfa/internal/store"
)

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
}

func (a *API) productsCollection() http.Handler {
	create := a.requireAdmin(http.HandlerFunc(a.createProduct))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			a.listProducts(w, r)
		case http.MethodPost:
			create.ServeHTTP(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	})
}

// productResource dispatches /api/products/{id} and
// /api/products/{id}/reviews.
func (a *API) productResource() http.Handler {
	update := a.requireAdmin(http.HandlerFunc(a.updateProduct))
	remove := a.requireAdmin(http.HandlerFunc(a.deleteProduct))
	review := a.RequireAuth(http.HandlerFunc(a.createReview))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/products/")
		if path == "" {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}

		if id, ok := strings.CutSuffix(path, "/reviews"); ok {
			id = strings.TrimSuffix(id, "/")
			if id == "" || strings.Contains(id, "/") {
				writeError(w, r, http.StatusNotFound, "not found")
				return
			}
			r = withProductID(r, id)
			switch r.Method {
			case http.MethodGet:
				a.listReviews(w, r)
			case http.MethodPost:
				review.ServeHTTP(w, r)
			default:
				methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
			}
			return
		}

		if strings.Contains(path, "/") {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}

		r = withProductID(r, path)
		switch r.Method {
		case http.MethodGet:
			a.getProduct(w, r)
		case http.MethodPut:
			update.ServeHTTP(w, r)
		case http.MethodDelete:
			remove.ServeHTTP(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	})
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.store.Products().List(r.Context())
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if products == nil {
		products = []*store.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": products})
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.Products().Find(r.Context(), productID(r))
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateProduct(req); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	p := &store.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	}
	if err := a.store.Products().Create(r.Context(), p); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "product.created", map[string]any{"product_id": p.ID})
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validateProduct(req); msg != "" {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	p := &store.Product{
		ID:          productID(r),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
	}
	if err := a.store.Products().Update(r.Context(), p); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "product.updated", map[string]any{"product_id": p.ID})
	writeJSON(w, http.StatusOK, p)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := productID(r)
	if err := a.store.Products().Delete(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "product.deleted", map[string]any{"product_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func validateProduct(req productRequest) string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if req.PriceCents <= 0 {
		return "price_cents must be > 0"
	}
	if req.Stock < 0 {
		return "stock must be >= 0"
	}
	return ""
}

// productID travels via context so the gated inner handlers keep the plain
// http.Handler shape.
type productIDKey struct{}

func withProductID(r *http.Request, id string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), productIDKey{}, id))
}

func productID(r *http.Request) string {
	if v, ok := r.Context().Value(productIDKey{}).(string); ok {
		return v
	}
	return ""
}
