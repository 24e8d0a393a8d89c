package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Kvnbbg/cfa/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by tests
// and by dev runs without a Postgres DSN.
type InMemory struct {
	mu       sync.RWMutex
	users    map[string]*User
	byEmail  map[string]string // normalized email -> user id
	products map[string]*Product
	orders   map[string]*Order
	reviews  map[string][]*Review // product id -> reviews
	coupons  map[string]*Coupon   // code -> coupon
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		users:    make(map[string]*User),
		byEmail:  make(map[string]string),
		products: make(map[string]*Product),
		orders:   make(map[string]*Order),
		reviews:  make(map[string][]*Review),
		coupons:  make(map[string]*Coupon),
	}
}

func (s *InMemory) Users() UserStore       { return (*memUsers)(s) }
func (s *InMemory) Products() ProductStore { return (*memProducts)(s) }
func (s *InMemory) Orders() OrderStore     { return (*memOrders)(s) }
func (s *InMemory) Reviews() ReviewStore   { return (*memReviews)(s) }
func (s *InMemory) Coupons() CouponStore   { return (*memCoupons)(s) }

// Users ---------------------------------------------------------------------

type memUsers InMemory

func (s *memUsers) Create(ctx context.Context, u *User) error {
	email := NormalizeEmail(u.Email)
	if email == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = email
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[email] = u.ID
	return nil
}

func (s *memUsers) Find(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUsers) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

// Products ------------------------------------------------------------------

type memProducts InMemory

func (s *memProducts) Create(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *memProducts) Find(ctx context.Context, id string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memProducts) List(ctx context.Context) ([]*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Product, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memProducts) Update(ctx context.Context, p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *memProducts) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

// Orders --------------------------------------------------------------------

type memOrders InMemory

func (s *memOrders) Create(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = ids.New()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	s.orders[o.ID] = &cp
	return nil
}

func (s *memOrders) Find(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp, nil
}

func (s *memOrders) ListByUser(ctx context.Context, userID string) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Order
	for _, o := range s.orders {
		if o.UserID != userID {
			continue
		}
		cp := *o
		cp.Items = append([]OrderItem(nil), o.Items...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Reviews -------------------------------------------------------------------

type memReviews InMemory

func (s *memReviews) Create(ctx context.Context, r *Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = ids.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	s.reviews[r.ProductID] = append(s.reviews[r.ProductID], &cp)
	return nil
}

func (s *memReviews) ListByProduct(ctx context.Context, productID string) ([]*Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.reviews[productID]
	out := make([]*Review, 0, len(src))
	for _, r := range src {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// Coupons -------------------------------------------------------------------

type memCoupons InMemory

func (s *memCoupons) Create(ctx context.Context, c *Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[c.Code]; ok {
		return ErrAlreadyExists
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.coupons[c.Code] = &cp
	return nil
}

func (s *memCoupons) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}
