// Package store owns the storefront persistence model: users, catalog,
// orders, reviews and coupons. Two implementations exist: Postgres (pg
// subpackage) and an in-process one used by tests and DSN-less dev runs.
package store

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors. Anything else returned by an implementation is a
// connectivity or driver failure and maps to 500 at the HTTP edge.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrInvalidInput  = errors.New("store: invalid input")
)

// NormalizeEmail canonicalizes a login handle: trimmed and lower-cased.
// Exactly one user may exist per normalized email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Store aggregates the per-entity stores.
type Store interface {
	Users() UserStore
	Products() ProductStore
	Orders() OrderStore
	Reviews() ReviewStore
	Coupons() CouponStore
}

// UserStore manages user accounts. FindByEmail matches the normalized email
// exactly; a missing user is ErrNotFound, not a failure.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// ProductStore manages the catalog.
type ProductStore interface {
	Create(ctx context.Context, p *Product) error
	Find(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// OrderStore manages orders and their items.
type OrderStore interface {
	Create(ctx context.Context, o *Order) error
	Find(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]*Order, error)
}

// ReviewStore manages product reviews.
type ReviewStore interface {
	Create(ctx context.Context, r *Review) error
	ListByProduct(ctx context.Context, productID string) ([]*Review, error)
}

// CouponStore manages discount codes.
type CouponStore interface {
	Create(ctx context.Context, c *Coupon) error
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
