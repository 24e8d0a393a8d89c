// Package httpapi is the HTTP layer of the storefront API: routing, the
// request gate for protected endpoints, and the JSON envelope helpers.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Kvnbbg/cfa/internal/auth"
	"github.com/Kvnbbg/cfa/internal/obs"
	"github.com/Kvnbbg/cfa/internal/store"
)

// ReadyProbe reports whether the backing database answers.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP surface.
type API struct {
	mux        *http.ServeMux
	store      store.Store
	auth       *auth.Service
	readyProbe ReadyProbe
	version    string

	corsOrigins []string
	rateBurst   int
	ratePerSec  int
}

// New wires routes. Admin-only and customer-facing operations are gated
// per-route; everything else stays public.
func New(st store.Store, authSvc *auth.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		store:      st,
		auth:       authSvc,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/health", a.Health)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.Handle("/api/login", a.loginRoute())
	a.mux.Handle("/api/profile", a.RequireAuth(http.HandlerFunc(a.handleProfile)))

	a.mux.Handle("/api/products", a.productsCollection())
	a.mux.Handle("/api/products/", a.productResource())
	a.mux.Handle("/api/orders", a.ordersCollection())
	a.mux.Handle("/api/orders/", a.orderResource())
	a.mux.Handle("/api/coupons", a.couponsCollection())
	a.mux.Handle("/api/coupons/validate", a.RequireAuth(http.HandlerFunc(a.validateCoupon)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetCORSOrigins configures the allowed browser origins.
func (a *API) SetCORSOrigins(origins []string) { a.corsOrigins = origins }

// SetRateLimit overrides the per-IP rate limit, mainly for tests.
func (a *API) SetRateLimit(burst, perSec int) {
	a.rateBurst = burst
	a.ratePerSec = perSec
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = LoggingJSON(h)
	h = obs.Instrument(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleStoreError maps store sentinel errors onto the public taxonomy.
func handleStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
