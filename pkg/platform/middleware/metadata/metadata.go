// Package metadata lifts upstream identity and request ids from headers into
// the request context. Authentication happens upstream; these headers are
// trusted as-is.
package metadata

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	pkgstrings "sglgb/pkg/platform/strings"
	"sglgb/pkg/requestcontext"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
	// HeaderActorAreas is a comma-separated list of governance area codes.
	HeaderActorAreas = "X-Actor-Areas"
	HeaderRequestID  = "X-Request-ID"
)

// Actor copies the actor headers into the context.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := requestcontext.ActorInfo{
			ID:    strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Role:  strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))),
			Areas: pkgstrings.SplitList(r.Header.Get(HeaderActorAreas)),
		}
		ctx := requestcontext.WithActor(r.Context(), info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID propagates X-Request-ID, minting one when absent.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
