package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/Adithya-Monish-Kumar-K/scrappr/pkg/logger"
)

const (
	// OwnerHeader names the note collection a request acts on.
	OwnerHeader = "X-Owner-ID"
	// DefaultOwner is used when the header is absent.
	DefaultOwner = "default"
)

// Owners end up in Redis key patterns, so glob characters are excluded.
var validOwner = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,128}$`)

type ownerKey struct{}

// Owner resolves the owner from X-Owner-ID and rejects malformed values
// with 400.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get(OwnerHeader)
		if owner == "" {
			owner = DefaultOwner
		}
		if !validOwner.MatchString(owner) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid X-Owner-ID header"}`))
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		ctx = logger.WithOwner(ctx, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOwner returns the owner stored by Owner, or DefaultOwner.
func GetOwner(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey{}).(string); ok {
		return owner
	}
	return DefaultOwner
}
