// Package auth resolves the acting user of a request from its credentials.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pesio-ai/be-wo-approvals/internal/errors"
	"github.com/pesio-ai/be-wo-approvals/internal/workflow"
)

// Credential keys looked up on incoming requests. gRPC metadata keys are the
// lower-case forms.
const (
	HeaderAuthorization = "Authorization"
	HeaderActorID       = "X-Actor-Id"
	HeaderActorName     = "X-Actor-Name"
	HeaderActorRole     = "X-Actor-Role"
)

// Lookup returns the first value of a request header or metadata key.
type Lookup func(key string) string

// Authenticator turns request credentials into an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, lookup Lookup) (workflow.Actor, error)
}

// Claims are the token claims carried in an approval bearer token. The
// subject is the actor id.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

// JWTAuthenticator verifies HS256 bearer tokens.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator creates a verifier for tokens signed with secret. A
// non-empty issuer must match the token's iss claim.
func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

// Authenticate reads a "Bearer <token>" authorization value.
func (a *JWTAuthenticator) Authenticate(_ context.Context, lookup Lookup) (workflow.Actor, error) {
	header := lookup(HeaderAuthorization)
	if header == "" {
		return workflow.Actor{}, errors.New(errors.ErrCodeUnauthorized, "missing bearer token").WithReason("missing_token")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return workflow.Actor{}, errors.New(errors.ErrCodeUnauthorized, "malformed authorization header").WithReason("invalid_token")
	}
	return a.Verify(strings.TrimSpace(token))
}

// Verify parses and validates a raw token.
func (a *JWTAuthenticator) Verify(raw string) (workflow.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return workflow.Actor{}, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid bearer token").WithReason("invalid_token")
	}

	actor := workflow.Actor{ID: claims.Subject, Name: claims.Name, Role: workflow.Role(claims.Role).Normalize()}
	if err := RequireActor(actor); err != nil {
		return workflow.Actor{}, err
	}
	return actor, nil
}

// Issue signs a token for actor valid for ttl. Used by tooling and tests.
func (a *JWTAuthenticator) Issue(actor workflow.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: actor.Name,
		Role: string(actor.Role),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// HeaderAuthenticator trusts plain actor headers. Development only.
type HeaderAuthenticator struct{}

// Authenticate reads the X-Actor-* values.
func (HeaderAuthenticator) Authenticate(_ context.Context, lookup Lookup) (workflow.Actor, error) {
	actor := workflow.Actor{
		ID:   strings.TrimSpace(lookup(HeaderActorID)),
		Name: strings.TrimSpace(lookup(HeaderActorName)),
		Role: workflow.Role(lookup(HeaderActorRole)).Normalize(),
	}
	if err := RequireActor(actor); err != nil {
		return workflow.Actor{}, err
	}
	return actor, nil
}

// RequireActor fails with UNAUTHORIZED unless actor has an id and a role.
func RequireActor(actor workflow.Actor) error {
	if actor.ID == "" {
		return errors.New(errors.ErrCodeUnauthorized, "actor id is required").WithReason("missing_actor")
	}
	if actor.Role == "" {
		return errors.New(errors.ErrCodeUnauthorized, "actor role is required").WithReason("missing_actor")
	}
	return nil
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor workflow.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (workflow.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(workflow.Actor)
	return actor, ok
}
