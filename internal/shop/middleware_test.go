package shop

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func resolvedShop(t *testing.T, r *Resolver, target, host, header string) string {
	t.Helper()
	var got string
	handler := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, _ = FromContext(req.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if host != "" {
		req.Host = host
	}
	if header != "" {
		req.Header.Set("X-Shop-ID", header)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestResolverHeaderWins(t *testing.T) {
	r := NewResolver("", "clovershop.dev", "")
	got := resolvedShop(t, r, "http://acme.clovershop.dev/products", "acme.clovershop.dev", "bluesky")
	if got != "bluesky" {
		t.Fatalf("resolved %q, want header value", got)
	}
}

func TestResolverSubdomain(t *testing.T) {
	r := NewResolver("", "clovershop.dev", "")
	got := resolvedShop(t, r, "http://acme.clovershop.dev/products", "acme.clovershop.dev:8080", "")
	if got != "acme" {
		t.Fatalf("resolved %q, want acme", got)
	}
}

func TestResolverRootDomainHasNoShop(t *testing.T) {
	r := NewResolver("", "clovershop.dev", "")
	got := resolvedShop(t, r, "http://clovershop.dev/", "clovershop.dev", "")
	if got != "" {
		t.Fatalf("resolved %q, want empty", got)
	}
}

func TestResolverDefaultShop(t *testing.T) {
	r := NewResolver("", "clovershop.dev", "demo")
	got := resolvedShop(t, r, "http://clovershop.dev/", "clovershop.dev", "")
	if got != "demo" {
		t.Fatalf("resolved %q, want demo", got)
	}
}

func TestUUIDFromContextErrors(t *testing.T) {
	if _, err := UUIDFromContext(WithShop(nil, "not-a-uuid")); err != ErrShopInvalid {
		t.Fatalf("err = %v, want ErrShopInvalid", err)
	}
	if _, err := UUIDFromContext(WithShop(nil, "")); err != ErrShopMissing {
		t.Fatalf("err = %v, want ErrShopMissing", err)
	}
}
