package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sakif/coursehub/internal/model"
)

// CookieName is the HttpOnly cookie holding the session JWT.
const CookieName = "token"

// contextKey is private so no other package can read or shadow the
// principal stored in a request context.
type contextKey string

const principalKey contextKey = "principal"

// RequireAuth rejects requests without a valid session cookie with 401 and
// stores the principal in the context otherwise.
//
// It is a chi middleware: a function from http.Handler to http.Handler that
// runs before the wrapped handler and may stop the chain. On the /api
// routes the order is
//
//	request → RequestID → RealIP → Logger → Recoverer → Timeout → CORS
//	        → OptionalAuth → RequireAuth (write routes only) → handler
//
// so a rejected request is still logged with its request id. The 401 body
// has the same shape as every other API error:
//
//	{"error":"unauthorized","message":"valid authentication required"}
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := principalFromRequest(r, tokens)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuth attaches the principal when a valid cookie is present and
// lets anonymous requests through untouched.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, err := principalFromRequest(r, tokens); err == nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p. Tests use it to fake an
// authenticated request without minting a token.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns (principal, true) for authenticated requests.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok && p.ID > 0
}

func principalFromRequest(r *http.Request, tokens *TokenService) (model.Principal, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return model.Principal{}, err
	}
	return tokens.Validate(cookie.Value)
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": "valid authentication required",
	})
}
