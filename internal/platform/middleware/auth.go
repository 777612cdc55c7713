package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"hl7bridge/pkg/domain"
	"hl7bridge/pkg/requestcontext"
)

// ActorResolver resolves a bearer credential into an authenticated actor.
// The core consumes the actor; it never inspects the credential itself.
type ActorResolver interface {
	Resolve(token string) (domain.Actor, error)
}

// RequireActor rejects requests without a resolvable actor and injects the
// actor into the request context for downstream services.
func RequireActor(resolver ActorResolver, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				log.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			actor, err := resolver.Resolve(token)
			if err != nil {
				log.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithActor(ctx, actor)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication_error","error_description":"` + description + `"}`))
}
