// Package principal resolves a request's bearer credential into a
// (scopes, User) pair: session, personal-access-token, and OAuth
// access-token credentials, distinguished by literal prefix.
package principal

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

// Scope is a bit in the credential's scope bitset.
type Scope uint64

const (
	ScopeProjectRead Scope = 1 << iota
	ScopeProjectWrite
	ScopeVersionRead
	ScopeVersionWrite
	ScopeVersionDelete
	ScopeUserReadEmail
	ScopePayoutsRead
	ScopeSessionAccess
)

const AllScopes = ScopeProjectRead | ScopeProjectWrite | ScopeVersionRead | ScopeVersionWrite |
	ScopeVersionDelete | ScopeUserReadEmail | ScopePayoutsRead | ScopeSessionAccess

func (s Scope) Has(bit Scope) bool { return s&bit != 0 }

// CredentialKind is distinguished by the bearer token's prefix.
type CredentialKind string

const (
	KindSession CredentialKind = "session"
	KindPAT     CredentialKind = "pat"
	KindOAuth   CredentialKind = "oauth"
)

const (
	sessionPrefix = "mhp_"
	patPrefix     = "mha_"
	oauthPrefix   = "mho_"
)

// Principal is the resolved identity of an authenticated request.
type Principal struct {
	User       *user.User
	Scopes     Scope
	Credential CredentialKind
}

// HasScope reports whether the principal's credential carries the
// requested scope; callers decide between rejecting and degrading when it
// is absent.
func (p *Principal) HasScope(s Scope) bool { return p.Scopes.Has(s) }

var (
	ErrUnauthenticated = errors.New("principal: missing or invalid credential")
	ErrRevoked         = errors.New("principal: credential revoked")
	ErrExpired         = errors.New("principal: credential expired")
	ErrMalformed       = errors.New("principal: malformed bearer token")
)

// TokenClaims is the JWT payload shape shared by session tokens and OAuth
// access tokens: both are JWTs signed with the same access secret and carry
// a scope bitset.
type TokenClaims struct {
	UserID string `json:"user_id"`
	Scopes uint64 `json:"scopes"`
	jwt.RegisteredClaims
}

// RevocationChecker reports whether a credential's jti has been revoked
// (session logout, PAT deletion, OAuth token revocation).
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PATLookup resolves a personal access token's opaque secret to its owning
// user and scope bitset (PATs are stored hashed, not as JWTs).
type PATLookup interface {
	LookupPAT(ctx context.Context, token string) (idcodec.UserID, Scope, error)
}

// UserLookup resolves a UserID to a User entity.
type UserLookup interface {
	FindByID(ctx context.Context, id idcodec.UserID) (*user.User, error)
}

// Resolver resolves bearer credentials into Principals.
type Resolver struct {
	accessSecret string
	users        UserLookup
	revocations  RevocationChecker
	pats         PATLookup
}

func NewResolver(accessSecret string, users UserLookup, revocations RevocationChecker, pats PATLookup) *Resolver {
	return &Resolver{accessSecret: accessSecret, users: users, revocations: revocations, pats: pats}
}

// Resolve dispatches on the bearer token's prefix and returns the resolved
// Principal, or ErrUnauthenticated/ErrRevoked/ErrExpired/ErrMalformed.
func (r *Resolver) Resolve(ctx context.Context, authorizationHeader string) (*Principal, error) {
	if !strings.HasPrefix(authorizationHeader, "Bearer ") {
		return nil, ErrUnauthenticated
	}
	token := strings.TrimPrefix(authorizationHeader, "Bearer ")
	if token == "" {
		return nil, ErrUnauthenticated
	}

	switch {
	case strings.HasPrefix(token, sessionPrefix):
		return r.resolveJWT(ctx, strings.TrimPrefix(token, sessionPrefix), KindSession)
	case strings.HasPrefix(token, oauthPrefix):
		return r.resolveJWT(ctx, strings.TrimPrefix(token, oauthPrefix), KindOAuth)
	case strings.HasPrefix(token, patPrefix):
		return r.resolvePAT(ctx, token)
	default:
		return nil, ErrMalformed
	}
}

func (r *Resolver) resolveJWT(ctx context.Context, token string, kind CredentialKind) (*Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrMalformed
		}
		return []byte(r.accessSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrUnauthenticated
	}

	if r.revocations != nil {
		revoked, err := r.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevoked
		}
	}

	uid, err := idcodec.ParseUserID(claims.UserID)
	if err != nil {
		return nil, ErrMalformed
	}
	u, err := r.users.FindByID(ctx, uid)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return &Principal{User: u, Scopes: Scope(claims.Scopes), Credential: kind}, nil
}

func (r *Resolver) resolvePAT(ctx context.Context, token string) (*Principal, error) {
	uid, scopes, err := r.pats.LookupPAT(ctx, token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	u, err := r.users.FindByID(ctx, uid)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	return &Principal{User: u, Scopes: scopes, Credential: KindPAT}, nil
}

// IssueAccessToken mints a session or OAuth-shaped JWT for an already
// authenticated user, e.g. after TeamService accepts an invite and the
// caller's session is refreshed. The token carries the mho_ prefix for
// KindOAuth and the mhp_ session prefix for any other kind.
func (r *Resolver) IssueAccessToken(uid idcodec.UserID, scopes Scope, jti string, ttl time.Duration, kind CredentialKind) (string, error) {
	now := time.Now().UTC()
	claims := TokenClaims{
		UserID: uid.String(),
		Scopes: uint64(scopes),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(r.accessSecret))
	if err != nil {
		return "", err
	}
	if kind == KindOAuth {
		return oauthPrefix + signed, nil
	}
	return sessionPrefix + signed, nil
}
