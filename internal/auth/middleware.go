package auth

import (
	"encoding/json"
	"net/http"

	"github.com/pesio-ai/be-wo-approvals/internal/errors"
)

// Middleware authenticates every request with authn and stores the actor in
// the request context. Failures are answered with 401.
func Middleware(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := authn.Authenticate(r.Context(), r.Header.Get)
			if err != nil {
				reason := ""
				if appErr, ok := errors.As(err); ok {
					reason = appErr.Reason
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="approvals"`)
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":  "unauthenticated",
					"code":   string(errors.ErrCodeUnauthorized),
					"reason": reason,
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}
