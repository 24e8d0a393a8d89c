package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kvnbbg/cfa/internal/auth"
	"github.com/Kvnbbg/cfa/internal/store"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "plain", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "padded", header: "  Bearer abc.def.ghi  ", want: "abc.def.ghi"},
		{name: "empty", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "scheme only", header: "Bearer ", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := extractBearerToken(tc.header)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRequireAuthRejectsUniformly(t *testing.T) {
	api, st, svc := newTestAPI(t)
	user := seedUser(t, st, "gate@example.com", "secret123", store.RoleCustomer)

	expired := issueExpired(t, st, user)
	valid, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tampered := valid[:len(valid)-2] + "xx"

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic abc"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-token"},
		{name: "tampered token", header: "Bearer " + tampered},
		{name: "expired token", header: "Bearer " + expired},
	}

	var firstBody string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			api.mux.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
			if got := rr.Header().Get("WWW-Authenticate"); got == "" {
				t.Fatal("expected WWW-Authenticate header")
			}
			if firstBody == "" {
				firstBody = rr.Body.String()
				return
			}
			if rr.Body.String() != firstBody {
				t.Fatalf("rejection bodies differ: %q vs %q", rr.Body.String(), firstBody)
			}
		})
	}
}

func TestRequireAuthRejectsTokenForDeletedUser(t *testing.T) {
	api, _, svc := newTestAPI(t)

	// Signed correctly, but the subject never existed in the store. The same
	// path covers a user deleted after issuance.
	token, _, err := svc.Issue(&store.User{ID: "ghost", Email: "gone@example.com", Role: store.RoleCustomer})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	api.mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deleted user, got %d", rr.Code)
	}
}

func TestRequireAuthAttachesUser(t *testing.T) {
	api, st, svc := newTestAPI(t)
	user := seedUser(t, st, "attach@example.com", "secret123", store.RoleCustomer)

	token, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen string
	handler := api.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.UserFromContext(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		seen = u.ID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if seen != user.ID {
		t.Fatalf("expected user %q in context, got %q", user.ID, seen)
	}
}

func TestRequireAuthStoreFailureIsNot401(t *testing.T) {
	_, _, svc := newTestAPI(t)
	user := &store.User{ID: "u-1", Email: "x@example.com", Role: store.RoleCustomer}
	token, _, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	broken, err := auth.NewService(failingUserStore{}, testSigningKey)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	api := New(store.NewInMemory(), broken, ReadyProbe{}, "test")

	handler := api.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run on store failure")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for store failure, got %d", rr.Code)
	}
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	handler := RequireRole(store.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), &store.User{ID: "u-1", Role: store.RoleAdmin}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRequireRoleRejectsMismatch(t *testing.T) {
	handler := RequireRole(store.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req = req.WithContext(auth.ContextWithUser(req.Context(), &store.User{ID: "u-1", Role: store.RoleCustomer}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") == "" {
		t.Fatal("expected WWW-Authenticate header")
	}
}

func TestRequireRoleRejectsMissingUser(t *testing.T) {
	handler := RequireRole(store.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

// issueExpired signs a token whose lifetime has already passed, using a
// service sharing the test signing key but with a clock set in the past.
func issueExpired(t *testing.T, st *store.InMemory, u *store.User) string {
	t.Helper()
	past := time.Now().Add(-48 * time.Hour)
	svc, err := auth.NewService(st.Users(), testSigningKey, auth.WithClock(func() time.Time { return past }))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	token, _, err := svc.Issue(u)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}
	return token
}

type failingUserStore struct{}

func (failingUserStore) Create(ctx context.Context, u *store.User) error {
	return errStoreDown
}

func (failingUserStore) Find(ctx context.Context, id string) (*store.User, error) {
	return nil, errStoreDown
}

func (failingUserStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	return nil, errStoreDown
}

var errStoreDown = errors.New("store unavailable")
