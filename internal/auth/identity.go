package auth

import (
	"context"
	"net/http"
	"strings"
)

// Identity is the caller as established by the bearer token. The zero value is
// anonymous.
type Identity struct {
	UserID  int64
	IsStaff bool
}

func (id Identity) Authenticated() bool { return id.UserID > 0 }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// Authenticator resolves the Authorization header into an Identity.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Identify returns the anonymous Identity when no bearer token is present and
// ErrInvalidToken when one is present but does not verify.
func (a *Authenticator) Identify(r *http.Request) (Identity, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return Identity{}, nil
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return Identity{}, ErrInvalidToken
	}
	c, err := Parse(a.secret, strings.TrimSpace(token))
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: c.UserID, IsStaff: c.IsStaff}, nil
}
