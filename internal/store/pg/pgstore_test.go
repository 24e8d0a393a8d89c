package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Kvnbbg/cfa/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestUserFindByEmailNormalizes(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at",
	}).AddRow("u-1", "a@b.com", "hash", "Ada", "B", store.RoleCustomer, now, now)
	mock.ExpectQuery("select id, email, password_hash.*from users where email=").
		WithArgs("a@b.com").
		WillReturnRows(rows)

	u, err := st.Users().FindByEmail(context.Background(), "  A@B.com ")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u.ID != "u-1" || u.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserFindByEmailNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("select id, email, password_hash.*from users where email=").
		WithArgs("nobody@b.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "first_name", "last_name", "role", "created_at", "updated_at",
		}))

	_, err := st.Users().FindByEmail(context.Background(), "nobody@b.com")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserFindByEmailPropagatesStoreFailure(t *testing.T) {
	st, mock := newMockStore(t)
	boom := errors.New("connection refused")

	mock.ExpectQuery("select id, email, password_hash.*from users where email=").
		WithArgs("a@b.com").
		WillReturnError(boom)

	_, err := st.Users().FindByEmail(context.Background(), "a@b.com")
	if errors.Is(err, store.ErrNotFound) {
		t.Fatal("store failure must not look like not-found")
	}
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("insert into users").
		WithArgs(sqlmock.AnyArg(), "a@b.com", "hash", "Ada", "B", store.RoleCustomer).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := st.Users().Create(context.Background(), &store.User{
		Email:        "A@B.com",
		PasswordHash: "hash",
		FirstName:    "Ada",
		LastName:     "B",
		Role:         store.RoleCustomer,
	})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestOrderCreateRunsInTransaction(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into orders").
		WithArgs(sqlmock.AnyArg(), "u-1", store.OrderPending, int64(2400), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into order_items").
		WithArgs(sqlmock.AnyArg(), "p-1", 2, int64(1200)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := st.Orders().Create(context.Background(), &store.Order{
		UserID:     "u-1",
		Status:     store.OrderPending,
		TotalCents: 2400,
		Items: []store.OrderItem{
			{ProductID: "p-1", Quantity: 2, UnitPriceCents: 1200},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrderCreateRollsBackOnItemFailure(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into orders").
		WithArgs(sqlmock.AnyArg(), "u-1", store.OrderPending, int64(1200), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into order_items").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err := st.Orders().Create(context.Background(), &store.Order{
		UserID:     "u-1",
		Status:     store.OrderPending,
		TotalCents: 1200,
		Items: []store.OrderItem{
			{ProductID: "p-1", Quantity: 1, UnitPriceCents: 1200},
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProductUpdateMissing(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("update products set").
		WithArgs("p-404", "Mug", "", "", int64(1200), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.Products().Update(context.Background(), &store.Product{
		ID: "p-404", Name: "Mug", PriceCents: 1200, Stock: 3,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCouponCreateDuplicateCode(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("insert into coupons").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := st.Coupons().Create(context.Background(), &store.Coupon{
		Code: "SAVE5", Type: store.DiscountFixed, Value: 500,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
