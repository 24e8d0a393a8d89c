package store

import "time"

// User roles. The set is closed; anything else is rejected at the edges.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCustomer
}

// User is a registered storefront account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product is a catalog entry. Prices are integer cents.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Order statuses.
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

// Order groups purchased items for one user.
type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     string      `json:"status"`
	TotalCents int64       `json:"total_cents"`
	CouponCode string      `json:"coupon_code,omitempty"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderItem is one product line inside an order. The unit price is captured
// at purchase time and does not follow later catalog changes.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// Review is a customer rating for a product. Rating is 1..5.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Coupon discount types.
const (
	DiscountPercent = "percent"
	DiscountFixed   = "fixed"
)

// Coupon is a discount code. Value is a percentage for DiscountPercent and
// integer cents for DiscountFixed.
type Coupon struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	Value     int64     `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the coupon is past its expiry at the given instant.
func (c Coupon) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Discount returns the discount in cents applied to the given subtotal.
func (c Coupon) Discount(subtotalCents int64) int64 {
	var d int64
	switch c.Type {
	case DiscountPercent:
		d = subtotalCents * c.Value / 100
	case DiscountFixed:
		d = c.Value
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	if d < 0 {
		d = 0
	}
	return d
}
