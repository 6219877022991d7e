// Package auth implements the authentication gate for the API: it verifies a
// bearer credential taken from the Authorization header and attaches the
// resulting identity to the request context. Every failure is terminal for the
// request and reported with a distinguishable reason; nothing is retried.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/example/movie-platform/internal/platform/api"
)

// The four fail-fast outcomes of credential validation, in the order they are
// checked. Each maps to its own machine-readable code in the 401 response.
var (
	ErrNoCredential        = errors.New("no credential supplied")
	ErrMalformedCredential = errors.New("malformed credential")
	ErrInvalidCredential   = errors.New("invalid credential")
	ErrExpiredCredential   = errors.New("credential expired")
)

// Identity is the verified, request-scoped representation of the calling
// user. It is rebuilt from the credential on every call and never persisted.
type Identity struct {
	Email  string
	Claims jwt.MapClaims
}

type ctxKeyIdentity struct{}

// IdentityFromContext returns the identity attached by RequireUser.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return id, ok
}

// WithIdentity injects an identity into context. Useful for testing.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// Verifier checks HS256 bearer tokens against a shared secret.
type Verifier struct {
	Secret []byte
}

// Verify validates a raw token string: signature, expiry, then the presence
// of an email claim. The signing algorithm is pinned to HMAC.
func (v Verifier) Verify(raw string) (Identity, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredCredential
		}
		return Identity{}, ErrInvalidCredential
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrInvalidCredential
	}
	email, _ := claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return Identity{}, ErrMalformedCredential
	}
	return Identity{Email: email, Claims: claims}, nil
}

// FromHeader runs the full validation sequence against an Authorization
// header value of the form "Bearer <token>".
func (v Verifier) FromHeader(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, ErrNoCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return Identity{}, ErrMalformedCredential
	}
	return v.Verify(strings.TrimSpace(parts[1]))
}

// RequireUser validates the bearer credential and injects the identity into
// the request context. All failures answer 401 with a code naming the reason.
func RequireUser(verifier Verifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := verifier.FromHeader(r.Header.Get("Authorization"))
			if err != nil {
				api.Unauthorized(w, codeFor(err), err.Error(), "")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrNoCredential):
		return "UNAUTHENTICATED"
	case errors.Is(err, ErrMalformedCredential):
		return "MALFORMED_CREDENTIAL"
	case errors.Is(err, ErrExpiredCredential):
		return "EXPIRED_CREDENTIAL"
	default:
		return "INVALID_CREDENTIAL"
	}
}
