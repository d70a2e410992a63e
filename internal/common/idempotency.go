package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem rejects replays of write requests that carry an Idempotency-Key
// header. The first request claims the key in Redis; any repeat within TTL
// gets a 409 instead of a second side effect.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
	// Scope prefixes the claim so identical keys from different callers do
	// not collide. The API scopes by shop; nil means a global namespace.
	Scope func(*http.Request) string
}

func (i Idem) claimKey(r *http.Request, header string) string {
	scope := ""
	if i.Scope != nil {
		scope = i.Scope(r)
	}
	sum := sha256.Sum256([]byte(scope + "\x00" + header))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces the idempotency contract. Requests without the header
// pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := i.claimKey(r, header)
		claimed, err := i.R.SetNX(r.Context(), key, "claimed", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// keep the claim alive even if the handler panics mid-request
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
