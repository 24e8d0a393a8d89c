package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Kvnbbg/cfa/internal/audit"
	"github.com/Kvnbbg/cfa/internal/auth"
	"github.com/Kvnbbg/cfa/internal/store"
)

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (a *API) listReviews(w http.ResponseWriter, r *http.Request) {
	id := productID(r)
	if _, err := a.store.Products().Find(r.Context(), id); err != nil {
		handleStoreError(w, r, err)
		return
	}
	reviews, err := a.store.Reviews().ListByProduct(r.Context(), id)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []*store.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": reviews})
}

func (a *API) createReview(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, r, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	id := productID(r)
	if _, err := a.store.Products().Find(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		handleStoreError(w, r, err)
		return
	}

	review := &store.Review{
		ProductID: id,
		UserID:    user.ID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := a.store.Reviews().Create(r.Context(), review); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "review.created", map[string]any{
		"review_id":  review.ID,
		"product_id": id,
	})
	writeJSON(w, http.StatusCreated, review)
}
