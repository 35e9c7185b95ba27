package middleware

import (
	"context"
	"net/http"
	"strings"

	"resolveit/pkg/apperror"
	"resolveit/pkg/response"
)

type principalKey struct{}

// Principal is the caller resolved from a bearer token.
type Principal struct {
	ID    string
	Admin bool
}

// Verifier resolves a raw bearer token into the identity it is bound to.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, error)
}

// AccessPolicy gates handlers by capability. Every lifecycle route is
// composed behind exactly one of these checks.
type AccessPolicy interface {
	RequireAuthenticated(next http.Handler) http.Handler
	RequireAdmin(next http.Handler) http.Handler
}

// TokenPolicy implements AccessPolicy on top of bearer tokens.
type TokenPolicy struct {
	verifier Verifier
}

func NewTokenPolicy(v Verifier) *TokenPolicy {
	return &TokenPolicy{verifier: v}
}

func (p *TokenPolicy) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := p.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (p *TokenPolicy) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := p.authenticate(w, r)
		if !ok {
			return
		}
		if !principal.Admin {
			LogWarn(r.Context(), "admin route denied", "identity_id", principal.ID, "path", r.URL.Path)
			response.Fail(w, apperror.New(apperror.KindForbidden, "Access denied. Admin role required."))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func (p *TokenPolicy) authenticate(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		response.Fail(w, apperror.New(apperror.KindUnauthorized, "Unauthorized"))
		return Principal{}, false
	}

	principal, err := p.verifier.Verify(r.Context(), token)
	if err != nil {
		if apperror.Is(err, apperror.KindInternal) {
			LogError(r.Context(), "token verification failed", err)
			response.Fail(w, err)
			return Principal{}, false
		}
		LogWarn(r.Context(), "unauthorized request", "path", r.URL.Path)
		response.Fail(w, apperror.New(apperror.KindUnauthorized, "Unauthorized"))
		return Principal{}, false
	}
	return principal, true
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
