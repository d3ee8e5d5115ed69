package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

// UserClaimsKey is the context key for user claims.
const UserClaimsKey = contextKey("userClaims")

// Gate creates a middleware for protecting routes. A request passes only with
// a valid, unrevoked bearer token; the decoded claims are attached to its
// context. revocations may be nil.
func Gate(codec *Codec, revocations RevocationStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := Authenticate(r, codec, revocations)
			if err != nil {
				var authErr *Error
				if errors.As(err, &authErr) && authErr.Kind != KindUnauthenticated {
					log.Error().Err(err).Str("path", r.URL.Path).Msg("Authentication gate failed")
				}
				WriteError(w, err)
				return
			}

			log.Debug().Int64("user_id", claims.UserID).Str("username", claims.Username).Msg("Authenticated request")
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Authenticate evaluates the bearer token of r. Every failure is an *Error.
func Authenticate(r *http.Request, codec *Codec, revocations RevocationStore) (*Claims, error) {
	tokenStr, ok := BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, Unauthenticated(MsgUnauthorized, nil)
	}

	claims, err := codec.Verify(tokenStr)
	if err != nil {
		if errors.Is(err, ErrMissingSecret) {
			return nil, &Error{Kind: KindMisconfigured, Message: MsgMisconfigured, Err: err}
		}
		return nil, Unauthenticated(MsgInvalidToken, err)
	}

	if revocations != nil && claims.ID != "" {
		revoked, err := revocations.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			return nil, &Error{Kind: KindInternal, Message: MsgInternal, Err: err}
		}
		if revoked {
			return nil, Unauthenticated(MsgInvalidToken, nil)
		}
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// ClaimsFromContext returns the claims attached by Gate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok && claims != nil
}
