package shop

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Resolver resolves shop identifiers from HTTP requests using either headers or subdomains.
type Resolver struct {
	HeaderName  string
	RootDomain  string
	DefaultShop string
}

// NewResolver returns a resolver configured with the provided header name, root domain, and default shop.
// If headerName is empty, "X-Shop-ID" is used.
func NewResolver(headerName, rootDomain, defaultShop string) *Resolver {
	if headerName == "" {
		headerName = "X-Shop-ID"
	}
	return &Resolver{
		HeaderName:  headerName,
		RootDomain:  strings.ToLower(strings.TrimSpace(rootDomain)),
		DefaultShop: strings.TrimSpace(defaultShop),
	}
}

// Middleware resolves the shop from the request and injects it into the context passed downstream.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		shopID := r.Resolve(req)
		if shopID == "" {
			shopID = r.DefaultShop
		}
		if shopID != "" {
			ctx := WithShop(req.Context(), shopID)
			req = req.WithContext(ctx)
		}
		next.ServeHTTP(w, req)
	})
}

// Resolve attempts to find the shop identifier from the configured header or the request subdomain.
func (r *Resolver) Resolve(req *http.Request) string {
	if r == nil || req == nil {
		return ""
	}
	if shopID := strings.TrimSpace(req.Header.Get(r.HeaderName)); shopID != "" {
		return shopID
	}

	host := hostWithoutPort(req.Host)
	if host == "" {
		return ""
	}
	return strings.TrimSpace(r.subdomainFromHost(host))
}

func (r *Resolver) subdomainFromHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}

	if r.RootDomain != "" {
		if host == r.RootDomain {
			return ""
		}
		suffix := "." + r.RootDomain
		if strings.HasSuffix(host, suffix) {
			host = strings.TrimSuffix(host, suffix)
		} else {
			return ""
		}
	}

	parts := strings.Split(host, ".")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func hostWithoutPort(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if strings.HasPrefix(hostport, "[") {
		if idx := strings.Index(hostport, "]"); idx != -1 {
			host := hostport[1:idx]
			if host != "" {
				return host
			}
		}
	}
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	if idx := strings.Index(hostport, ":"); idx != -1 && strings.Count(hostport, ":") == 1 {
		return hostport[:idx]
	}
	return hostport
}

// RequireShop loads the shop referenced by the context and rebinds the
// context to its canonical UUID, so downstream repositories can rely on
// UUIDFromContext regardless of whether the request arrived with a header
// UUID or a subdomain slug. Requests without a resolvable shop get 404.
func RequireShop(repo Repo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sh, err := repo.Current(req.Context())
			if err != nil {
				status := http.StatusNotFound
				code := "SHOP_NOT_FOUND"
				if errors.Is(err, ErrShopMissing) {
					status = http.StatusBadRequest
					code = "SHOP_MISSING"
				} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrShopInvalid) {
					status = http.StatusInternalServerError
					code = "INTERNAL"
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"code": code, "message": "shop could not be resolved"},
				})
				return
			}
			ctx := WithShop(req.Context(), sh.ID.String())
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}
