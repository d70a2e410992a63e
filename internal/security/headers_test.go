package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveWith(h Headers, req *http.Request) *httptest.ResponseRecorder {
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHeadersAlwaysHardened(t *testing.T) {
	rr := serveWith(Headers{}, httptest.NewRequest(http.MethodGet, "http://example.com/pricing/quote", nil))
	hdr := rr.Result().Header
	if got := hdr.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := hdr.Get("X-Frame-Options"); got != "DENY" {
		t.Fatalf("X-Frame-Options = %q, want DENY", got)
	}
	if hdr.Get("Strict-Transport-Security") != "" {
		t.Fatal("hsts emitted without opt-in")
	}
}

func TestHeadersHSTSOnTLSOnly(t *testing.T) {
	h := Headers{EnableHSTS: true, HSTSIncludeSubdomains: true}

	plain := serveWith(h, httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	if plain.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("hsts emitted on plaintext request")
	}

	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	req.TLS = &tls.ConnectionState{}
	secure := serveWith(h, req)
	want := "max-age=31536000; includeSubDomains"
	if got := secure.Header().Get("Strict-Transport-Security"); got != want {
		t.Fatalf("Strict-Transport-Security = %q, want %q", got, want)
	}
}
