package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/principal"
)

// PersonalAccessTokenStore persists personal access tokens. A token's
// secret is never stored in plaintext: Issue splits the bearer string into
// a uuid lookup key (indexed, stored as-is) and a random secret, bcrypt
// hashing only the secret before the row is written.
type PersonalAccessTokenStore struct{ store *Store }

func NewPersonalAccessTokenStore(s *Store) *PersonalAccessTokenStore {
	return &PersonalAccessTokenStore{store: s}
}

var _ principal.PATLookup = (*PersonalAccessTokenStore)(nil)

const (
	patTokenPrefix = "mha_"
	patSecretBytes = 32
)

// Issue mints a new PAT for userID and returns the bearer token the caller
// must show the user exactly once; only its bcrypt hash is persisted.
func (r *PersonalAccessTokenStore) Issue(ctx context.Context, userID idcodec.UserID, name string, scopes principal.Scope, expiresAt *time.Time) (string, error) {
	lookup := uuid.New()
	secret := make([]byte, patSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("store: generate pat secret: %w", err)
	}
	secretHex := hex.EncodeToString(secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(secretHex), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("store: hash pat secret: %w", err)
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO personal_access_tokens (lookup_id, user_id, name, scopes, secret_hash, expires_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		lookup, uint64(userID), name, uint64(scopes), string(hash), expiresAt, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("store: issue pat: %w", err)
	}
	return patTokenPrefix + lookup.String() + "." + secretHex, nil
}

// Revoke deletes a PAT row so its token stops resolving.
func (r *PersonalAccessTokenStore) Revoke(ctx context.Context, userID idcodec.UserID, lookup uuid.UUID) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `
		DELETE FROM personal_access_tokens WHERE lookup_id = $1 AND user_id = $2`, lookup, uint64(userID))
	if err != nil {
		return fmt.Errorf("store: revoke pat: %w", err)
	}
	return nil
}

// LookupPAT implements principal.PATLookup: it resolves the bearer token's
// lookup id to a row, then verifies the secret against that row's bcrypt
// hash, rejecting expired tokens without ever comparing a plaintext secret
// column.
func (r *PersonalAccessTokenStore) LookupPAT(ctx context.Context, token string) (idcodec.UserID, principal.Scope, error) {
	token = strings.TrimPrefix(token, patTokenPrefix)
	lookupStr, secret, ok := strings.Cut(token, ".")
	if !ok {
		return 0, 0, principal.ErrMalformed
	}
	lookup, err := uuid.Parse(lookupStr)
	if err != nil {
		return 0, 0, principal.ErrMalformed
	}

	var userID uint64
	var scopes uint64
	var hash string
	var expiresAt sql.NullTime
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT user_id, scopes, secret_hash, expires_at
		FROM personal_access_tokens WHERE lookup_id = $1`, lookup)
	if err := row.Scan(&userID, &scopes, &hash, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, principal.ErrUnauthenticated
		}
		return 0, 0, fmt.Errorf("store: lookup pat: %w", err)
	}
	if expiresAt.Valid && expiresAt.Time.Before(time.Now().UTC()) {
		return 0, 0, principal.ErrExpired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return 0, 0, principal.ErrUnauthenticated
	}
	return idcodec.UserID(userID), principal.Scope(scopes), nil
}
