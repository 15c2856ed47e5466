package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

// UserStore implements user.Repository over the shared Store connection.
type UserStore struct{ store *Store }

func NewUserStore(s *Store) *UserStore { return &UserStore{store: s} }

var _ user.Repository = (*UserStore)(nil)

func (r *UserStore) Create(ctx context.Context, u *user.User) error {
	avatar := u.Avatar()
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, email, bio, avatar_public_url,
			avatar_raw_url, role, badges, allow_friend_requests, created_at, retired_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		int64(u.ID()), u.Username(), u.DisplayName(), nullString(u.Email()), u.Bio(),
		nullString(avatar.Public), nullString(avatar.Raw), string(u.Role()), uint64(u.Badges()),
		u.AllowFriendRequests(), u.CreatedAt(), u.RetiredAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return user.ErrUsernameTaken
		}
		if isUniqueViolation(err, "users_email_key") {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	return nil
}

func (r *UserStore) Update(ctx context.Context, u *user.User) error {
	avatar := u.Avatar()
	_, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE users SET username=$2, display_name=$3, email=$4, bio=$5,
			avatar_public_url=$6, avatar_raw_url=$7, role=$8, badges=$9,
			allow_friend_requests=$10, retired_at=$11
		WHERE id=$1`,
		int64(u.ID()), u.Username(), u.DisplayName(), nullString(u.Email()), u.Bio(),
		nullString(avatar.Public), nullString(avatar.Raw), string(u.Role()), uint64(u.Badges()),
		u.AllowFriendRequests(), u.RetiredAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return user.ErrUsernameTaken
		}
		if isUniqueViolation(err, "users_email_key") {
			return user.ErrEmailTaken
		}
		return fmt.Errorf("store: update user: %w", err)
	}
	return nil
}

func (r *UserStore) FindByID(ctx context.Context, id idcodec.UserID) (*user.User, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, username, display_name, email, bio, avatar_public_url, avatar_raw_url,
			role, badges, allow_friend_requests, created_at, retired_at
		FROM users WHERE id=$1`, int64(id))
	return scanUser(row)
}

func (r *UserStore) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, username, display_name, email, bio, avatar_public_url, avatar_raw_url,
			role, badges, allow_friend_requests, created_at, retired_at
		FROM users WHERE lower(username)=lower($1)`, username)
	return scanUser(row)
}

func (r *UserStore) FindManyByID(ctx context.Context, ids []idcodec.UserID) ([]*user.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT id, username, display_name, email, bio, avatar_public_url, avatar_raw_url,
			role, badges, allow_friend_requests, created_at, retired_at
		FROM users WHERE id = ANY($1)`, pqInt64Array(raw))
	if err != nil {
		return nil, fmt.Errorf("store: find many users: %w", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username)=lower($1))`, username).Scan(&exists)
	return exists, err
}

func (r *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(email)=lower($1))`, email).Scan(&exists)
	return exists, err
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*user.User, error) {
	return scanUserGeneric(row)
}

func scanUserRows(rows *sql.Rows) (*user.User, error) {
	return scanUserGeneric(rows)
}

func scanUserGeneric(s rowScanner) (*user.User, error) {
	var (
		id                            int64
		username, displayName, bio    string
		email, avatarPublic, avatarRaw sql.NullString
		role                          string
		badges                        uint64
		allowFriendRequests           bool
		createdAt                     time.Time
		retiredAt                     sql.NullTime
	)
	err := s.Scan(&id, &username, &displayName, &email, &bio, &avatarPublic, &avatarRaw,
		&role, &badges, &allowFriendRequests, &createdAt, &retiredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan user: %w", err)
	}
	var retired *time.Time
	if retiredAt.Valid {
		retired = &retiredAt.Time
	}
	return user.Reconstruct(
		idcodec.UserID(id), username, displayName, email.String, bio,
		user.AvatarURLs{Public: avatarPublic.String, Raw: avatarRaw.String},
		user.SiteRole(role), user.Badge(badges), allowFriendRequests, createdAt, retired,
	), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
