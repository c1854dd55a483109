/*
auth.go - Caller identity

PURPOSE:
  Resolves who is calling and stores the user id in the request context.
  There are no roles: any identified user may act on any request, except
  that deletion requests are restricted to the owner by the service.

RESOLUTION ORDER:
  1. Authorization: Bearer <jwt>
  2. access_token cookie
  3. Configured fallback user (local development)
  4. Otherwise 401

TOKENS:
  HMAC-signed JWT. The "sub" claim is the user id. An optional "name" claim
  creates or renames the user's directory entry, which is how display names
  reach the approval queue.

SEE ALSO:
  - server.go: Where the middleware is mounted
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/warp/vacation-tracker/vacation"
)

// LoginURL is returned to unauthenticated clients by the status endpoint.
const LoginURL = "/oauth2/authorization/google"

// TokenTTL is the lifetime of tokens issued by Token.
const TokenTTL = 12 * time.Hour

var (
	errNoIdentity   = errors.New("no credentials supplied")
	errInvalidToken = errors.New("invalid token")
)

// Claims is the token payload.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type actorKey struct{}

// WithActor returns a context carrying the acting user id.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user id placed by the identity middleware.
func ActorFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorKey{}).(string)
	return id, ok && id != ""
}

// =============================================================================
// AUTHENTICATOR
// =============================================================================

type Authenticator struct {
	secret   []byte
	fallback string
	users    vacation.UserStore
	logger   *zap.Logger
}

// NewAuthenticator verifies tokens with secret. An empty secret rejects every
// token; an empty fallback disables anonymous access.
func NewAuthenticator(secret, fallbackUserID string, users vacation.UserStore, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		fallback: fallbackUserID,
		users:    users,
		logger:   logger.Named("auth"),
	}
}

// Middleware rejects requests without an identity.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := a.resolve(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "Authentication required",
				Code:    "UNAUTHORIZED",
				Details: err.Error(),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user.ID)))
	})
}

// Status reports whether the caller is identified.
func (a *Authenticator) Status(w http.ResponseWriter, r *http.Request) {
	user, err := a.resolve(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, AuthStatusResponse{
			Authenticated: false,
			LoginURL:      LoginURL,
		})
		return
	}
	writeJSON(w, http.StatusOK, AuthStatusResponse{
		Authenticated: true,
		User:          &user,
	})
}

// Token issues a signed token for userID valid for TokenTTL. Used by tests and
// local tooling.
func (a *Authenticator) Token(userID, name string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("no jwt secret configured")
	}
	now := time.Now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) resolve(r *http.Request) (vacation.User, error) {
	raw := bearerToken(r)
	if raw == "" {
		if a.fallback == "" {
			return vacation.User{}, errNoIdentity
		}
		return a.lookup(r.Context(), a.fallback), nil
	}

	claims, err := a.parse(raw)
	if err != nil {
		a.logger.Debug("token rejected", zap.Error(err))
		return vacation.User{}, err
	}

	if claims.Name != "" {
		if err := a.upsert(r.Context(), vacation.User{ID: claims.Subject, Name: claims.Name}); err != nil {
			// identity is still valid; only the display name is stale
			a.logger.Warn("user upsert failed", zap.String("user_id", claims.Subject), zap.Error(err))
		}
		return vacation.User{ID: claims.Subject, Name: claims.Name}, nil
	}
	return a.lookup(r.Context(), claims.Subject), nil
}

func (a *Authenticator) parse(raw string) (*Claims, error) {
	if len(a.secret) == 0 {
		return nil, errInvalidToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", errInvalidToken)
	}
	return claims, nil
}

// upsert writes the user only when the stored name differs.
func (a *Authenticator) upsert(ctx context.Context, u vacation.User) error {
	if a.users == nil {
		return nil
	}
	current, err := a.users.FindUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if current != nil && current.Name == u.Name {
		return nil
	}
	return a.users.SaveUser(ctx, u)
}

func (a *Authenticator) lookup(ctx context.Context, id string) vacation.User {
	user := vacation.User{ID: id, Name: id}
	if a.users == nil {
		return user
	}
	if u, err := a.users.FindUser(ctx, id); err == nil && u != nil {
		user.Name = u.Name
	}
	return user
}

func bearerToken(r *http.Request) string {
	if token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
		return strings.TrimSpace(token)
	}
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}
