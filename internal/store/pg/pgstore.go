// Package pg implements the storefront store on PostgreSQL.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Kvnbbg/cfa/internal/ids"
	"github.com/Kvnbbg/cfa/internal/store"
)

// Store implements store.Store using PostgreSQL via the pgx stdlib driver.
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to Postgres and tunes the pool.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing connection pool. Used by tests with sqlmock.
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the pool for readiness pings.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Users() store.UserStore       { return &userStore{db: s.db} }
func (s *Store) Products() store.ProductStore { return &productStore{db: s.db} }
func (s *Store) Orders() store.OrderStore     { return &orderStore{db: s.db} }
func (s *Store) Reviews() store.ReviewStore   { return &reviewStore{db: s.db} }
func (s *Store) Coupons() store.CouponStore   { return &couponStore{db: s.db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *store.User) error {
	email := store.NormalizeEmail(u.Email)
	if email == "" {
		return store.ErrInvalidInput
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	u.Email = email
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, first_name, last_name, role)
		 values($1,$2,$3,$4,$5,$6)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Role,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, first_name, last_name, role, created_at, updated_at
		 from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, email, password_hash, first_name, last_name, role, created_at, updated_at
		 from users where email=$1`, store.NormalizeEmail(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (*store.User, error) {
	var u store.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Product store -------------------------------------------------------------

type productStore struct{ db *sql.DB }

func (s *productStore) Create(ctx context.Context, p *store.Product) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into products(id, name, description, category, price_cents, stock)
		 values($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Name, p.Description, p.Category, p.PriceCents, p.Stock,
	)
	return err
}

func (s *productStore) Find(ctx context.Context, id string) (*store.Product, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, description, category, price_cents, stock, created_at, updated_at
		 from products where id=$1`, id)
	var p store.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents,
		&p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *productStore) List(ctx context.Context) ([]*store.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description, category, price_cents, stock, created_at, updated_at
		 from products order by id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.Product
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents,
			&p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *productStore) Update(ctx context.Context, p *store.Product) error {
	res, err := s.db.ExecContext(ctx,
		`update products set name=$2, description=$3, category=$4, price_cents=$5,
		 stock=$6, updated_at=now() where id=$1`,
		p.ID, p.Name, p.Description, p.Category, p.PriceCents, p.Stock,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *productStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from products where id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Order store ---------------------------------------------------------------

type orderStore struct{ db *sql.DB }

func (s *orderStore) Create(ctx context.Context, o *store.Order) error {
	if o.ID == "" {
		o.ID = ids.New()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`insert into orders(id, user_id, status, total_cents, coupon_code)
		 values($1,$2,$3,$4,$5)`,
		o.ID, o.UserID, o.Status, o.TotalCents, nullable(o.CouponCode),
	); err != nil {
		return err
	}
	for _, item := range o.Items {
		if _, err := tx.ExecContext(ctx,
			`insert into order_items(order_id, product_id, quantity, unit_price_cents)
			 values($1,$2,$3,$4)`,
			o.ID, item.ProductID, item.Quantity, item.UnitPriceCents,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *orderStore) Find(ctx context.Context, id string) (*store.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, status, total_cents, coalesce(coupon_code, ''), created_at
		 from orders where id=$1`, id)
	var o store.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CouponCode, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := s.items(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (s *orderStore) ListByUser(ctx context.Context, userID string) ([]*store.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, user_id, status, total_cents, coalesce(coupon_code, ''), created_at
		 from orders where user_id=$1 order by created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.Order
	for rows.Next() {
		var o store.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CouponCode, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		items, err := s.items(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return out, nil
}

func (s *orderStore) items(ctx context.Context, orderID string) ([]store.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`select product_id, quantity, unit_price_cents from order_items where order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []store.OrderItem
	for rows.Next() {
		var it store.OrderItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Review store --------------------------------------------------------------

type reviewStore struct{ db *sql.DB }

func (s *reviewStore) Create(ctx context.Context, r *store.Review) error {
	if r.ID == "" {
		r.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into reviews(id, product_id, user_id, rating, comment)
		 values($1,$2,$3,$4,$5)`,
		r.ID, r.ProductID, r.UserID, r.Rating, r.Comment,
	)
	return err
}

func (s *reviewStore) ListByProduct(ctx context.Context, productID string) ([]*store.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, product_id, user_id, rating, comment, created_at
		 from reviews where product_id=$1 order by created_at`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*store.Review
	for rows.Next() {
		var r store.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// Coupon store --------------------------------------------------------------

type couponStore struct{ db *sql.DB }

func (s *couponStore) Create(ctx context.Context, c *store.Coupon) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into coupons(id, code, discount_type, value, expires_at, active)
		 values($1,$2,$3,$4,$5,$6)`,
		c.ID, c.Code, c.Type, c.Value, c.ExpiresAt, c.Active,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (s *couponStore) FindByCode(ctx context.Context, code string) (*store.Coupon, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, code, discount_type, value, expires_at, active, created_at
		 from coupons where code=$1`, code)
	var c store.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.ExpiresAt, &c.Active, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
