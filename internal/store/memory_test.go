package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryUserLifecycle(t *testing.T) {
	st := NewInMemory()
	ctx := context.Background()

	u := &User{Email: "  A@B.com ", PasswordHash: "hash", Role: RoleCustomer}
	if err := st.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}
	if u.Email != "a@b.com" {
		t.Fatalf("expected normalized email, got %q", u.Email)
	}

	found, err := st.Users().Find(ctx, u.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.Email != "a@b.com" {
		t.Fatalf("unexpected email: %q", found.Email)
	}

	// Lookup normalizes too.
	byEmail, err := st.Users().FindByEmail(ctx, " A@B.COM ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("expected id %q, got %q", u.ID, byEmail.ID)
	}

	if err := st.Users().Create(ctx, &User{Email: "a@b.com", PasswordHash: "x"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if _, err := st.Users().Find(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := st.Users().Create(ctx, &User{Email: "   "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestInMemoryReturnsCopies(t *testing.T) {
	st := NewInMemory()
	ctx := context.Background()

	u := &User{Email: "a@b.com", PasswordHash: "hash"}
	if err := st.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := st.Users().Find(ctx, u.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got.PasswordHash = "mutated"

	again, err := st.Users().Find(ctx, u.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if again.PasswordHash != "hash" {
		t.Fatal("stored user was mutated through a returned copy")
	}
}

func TestInMemoryProductCRUD(t *testing.T) {
	st := NewInMemory()
	ctx := context.Background()

	p := &Product{Name: "Mug", PriceCents: 1200, Stock: 5}
	if err := st.Products().Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := st.Products().List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 product, got %d", len(list))
	}

	p.PriceCents = 1400
	if err := st.Products().Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := st.Products().Find(ctx, p.ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.PriceCents != 1400 {
		t.Fatalf("expected updated price, got %d", got.PriceCents)
	}

	if err := st.Products().Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := st.Products().Find(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := st.Products().Delete(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestInMemoryOrdersScopedToUser(t *testing.T) {
	st := NewInMemory()
	ctx := context.Background()

	if err := st.Orders().Create(ctx, &Order{
		UserID: "u-1", Status: OrderPending, TotalCents: 100,
		Items: []OrderItem{{ProductID: "p-1", Quantity: 1, UnitPriceCents: 100}},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Orders().Create(ctx, &Order{
		UserID: "u-2", Status: OrderPending, TotalCents: 200,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, err := st.Orders().ListByUser(ctx, "u-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != "u-1" {
		t.Fatalf("unexpected orders: %+v", mine)
	}
	if len(mine[0].Items) != 1 {
		t.Fatalf("expected items carried, got %d", len(mine[0].Items))
	}
}

func TestInMemoryCouponsByCode(t *testing.T) {
	st := NewInMemory()
	ctx := context.Background()

	c := &Coupon{Code: "SAVE5", Type: DiscountFixed, Value: 500, Active: true,
		ExpiresAt: time.Now().Add(time.Hour)}
	if err := st.Coupons().Create(ctx, c); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Coupons().Create(ctx, &Coupon{Code: "SAVE5"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := st.Coupons().FindByCode(ctx, "SAVE5")
	if err != nil {
		t.Fatalf("FindByCode: %v", err)
	}
	if got.Value != 500 {
		t.Fatalf("unexpected coupon: %+v", got)
	}
	if _, err := st.Coupons().FindByCode(ctx, "MISSING"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalizeEmail(t *testing.T) {
	cases := []struct{ in, want string }{
		{"a@b.com", "a@b.com"},
		{"  A@B.com  ", "a@b.com"},
		{"MIXED@Case.IO", "mixed@case.io"},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Fatalf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCouponDiscount(t *testing.T) {
	cases := []struct {
		name     string
		coupon   Coupon
		subtotal int64
		want     int64
	}{
		{name: "percent", coupon: Coupon{Type: DiscountPercent, Value: 10}, subtotal: 4000, want: 400},
		{name: "fixed", coupon: Coupon{Type: DiscountFixed, Value: 500}, subtotal: 2000, want: 500},
		{name: "fixed capped at subtotal", coupon: Coupon{Type: DiscountFixed, Value: 5000}, subtotal: 2000, want: 2000},
		{name: "unknown type", coupon: Coupon{Type: "mystery", Value: 10}, subtotal: 2000, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.coupon.Discount(tc.subtotal); got != tc.want {
				t.Fatalf("Discount(%d) = %d, want %d", tc.subtotal, got, tc.want)
			}
		})
	}
}

func TestCouponExpired(t *testing.T) {
	now := time.Now()
	c := Coupon{ExpiresAt: now.Add(-time.Minute)}
	if !c.Expired(now) {
		t.Fatal("expected expired")
	}
	c = Coupon{ExpiresAt: now.Add(time.Minute)}
	if c.Expired(now) {
		t.Fatal("expected not expired")
	}
	c = Coupon{}
	if c.Expired(now) {
		t.Fatal("zero expiry means no expiry")
	}
}
