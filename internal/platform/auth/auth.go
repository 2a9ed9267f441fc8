package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"medo-shield/internal/platform/apierr"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func (r Role) Valid() bool {
	return r == RolePatient || r == RoleDoctor
}

// Identity is the authenticated caller.
type Identity struct {
	UserID uuid.UUID
	Role   Role
}

type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

type Authenticator struct {
	secret []byte
	dev    bool
	now    func() time.Time
}

// NewAuthenticator validates HS256 bearer tokens signed with secret. In dev
// mode a request without a token may identify itself with the X-User-ID and
// X-User-Role headers.
func NewAuthenticator(secret string, dev bool) *Authenticator {
	return &Authenticator{secret: []byte(secret), dev: dev, now: time.Now}
}

// Issue signs a token for id. Used by tests and local tooling.
func (a *Authenticator) Issue(id Identity, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: id.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(raw string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("parse token: %w", err)
	}
	uid, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid subject: %w", err)
	}
	if !claims.Role.Valid() {
		return Identity{}, fmt.Errorf("invalid role %q", claims.Role)
	}
	return Identity{UserID: uid, Role: claims.Role}, nil
}

// Middleware rejects unauthenticated requests with 401.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			apierr.Write(w, apierr.New(http.StatusUnauthorized, "unauthorized", err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (a *Authenticator) identify(r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		return a.Parse(strings.TrimSpace(token))
	}
	if a.dev {
		uid, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			return Identity{}, errors.New("missing or invalid X-User-ID")
		}
		role := Role(strings.ToLower(r.Header.Get("X-User-Role")))
		if !role.Valid() {
			return Identity{}, errors.New("missing or invalid X-User-Role")
		}
		return Identity{UserID: uid, Role: role}, nil
	}
	return Identity{}, errors.New("missing bearer token")
}

// RequireRoles allows the request through only for the listed roles.
func RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				apierr.Write(w, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("not authenticated")))
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			apierr.Write(w, apierr.Forbidden("role not allowed"))
		})
	}
}
