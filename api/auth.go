package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/cashier"
)

// RoleAdmin grants access to /v1/admin.
const RoleAdmin = "admin"

type contextKey string

const claimsKey contextKey = "cashier.claims"

// Claims is the bearer token payload. Subject carries the user id.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// Authenticator validates HS256 bearer tokens.
type Authenticator struct {
	secret   []byte
	issuer   string
	audience string
	parser   *jwt.Parser
}

// NewAuthenticator creates an Authenticator. Empty issuer or audience
// skips that check.
func NewAuthenticator(secret, issuer, audience string) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Authenticator{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		parser:   jwt.NewParser(opts...),
	}
}

// Issue signs a token for userID. Used by tooling and tests; production
// tokens normally come from the identity service sharing the secret.
func (a *Authenticator) Issue(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if a.audience != "" {
		claims.Audience = jwt.ClaimStrings{a.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates a raw token.
func (a *Authenticator) Parse(raw string) (*Claims, error) {
	var claims Claims
	token, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", cashier.ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", cashier.ErrUnauthorized)
	}
	return &claims, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// claims in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeError(w, r, fmt.Errorf("%w: bearer token required", cashier.ErrUnauthorized))
			return
		}

		claims, err := a.Parse(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects tokens without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok || !claims.IsAdmin() {
			writeError(w, r, cashier.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFrom returns the claims stored by Middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// userID returns the authenticated user. Routes behind Middleware always
// have one.
func userID(r *http.Request) string {
	if c, ok := ClaimsFrom(r.Context()); ok {
		return c.Subject
	}
	return ""
}
