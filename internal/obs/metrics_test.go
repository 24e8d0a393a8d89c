package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                              "/",
		"/metrics":                      "/metrics",
		"/api/login":                    "/api/login",
		"/api/products":                 "/api/products",
		"/api/products/abc":             "/api/products/:id",
		"/api/products/abc/reviews":     "/api/products/:id/reviews",
		"/api/orders/abc":               "/api/orders/:id",
		"/api/orders?limit=10":          "/api/orders",
		"/api/coupons/validate":         "/api/coupons/validate",
		"/api/products/abc?fields=name": "/api/products/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
