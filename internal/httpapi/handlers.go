package httpapi

import (
	"net/http"

	"github.com/Kvnbbg/cfa/internal/obs"
)

// Health mirrors the storefront's public health check shape.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	if a.readyProbe.DB == nil {
		database = "in-memory"
	} else if err := a.readyProbe.Check(r.Context()); err != nil {
		database = "unavailable"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"app":      "cfa-api",
		"version":  a.version,
		"database": database,
	})
}

// Ready is the readiness probe used by orchestration.
func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
