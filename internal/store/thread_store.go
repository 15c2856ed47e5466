package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modhub/platform/internal/domain/thread"
	"github.com/modhub/platform/internal/idcodec"
)

// ThreadStore implements thread.Repository. Messages are
// stored as a JSON column, the same denormalization ProjectStore applies
// to its gallery — a thread's own row is cheap to cache whole under the
// `threads` namespace.
type ThreadStore struct{ store *Store }

func NewThreadStore(s *Store) *ThreadStore { return &ThreadStore{store: s} }

var _ thread.Repository = (*ThreadStore)(nil)

func (r *ThreadStore) Create(ctx context.Context, t *thread.Thread) error {
	messages, err := json.Marshal(t.Messages())
	if err != nil {
		return fmt.Errorf("store: marshal messages: %w", err)
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO threads (id, association_kind, project_id, version_id, messages)
		VALUES ($1,$2,$3,$4,$5)`,
		int64(t.ID()), string(t.AssociationKind()), nullProjectID(t.ProjectID()), nullVersionID(t.VersionID()), messages,
	)
	if err != nil {
		return fmt.Errorf("store: create thread: %w", err)
	}
	return nil
}

func (r *ThreadStore) Update(ctx context.Context, t *thread.Thread) error {
	messages, err := json.Marshal(t.Messages())
	if err != nil {
		return fmt.Errorf("store: marshal messages: %w", err)
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `UPDATE threads SET messages=$2 WHERE id=$1`, int64(t.ID()), messages)
	if err != nil {
		return fmt.Errorf("store: update thread: %w", err)
	}
	return nil
}

func (r *ThreadStore) FindByID(ctx context.Context, id idcodec.ThreadID) (*thread.Thread, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, selectThreadSQL+` WHERE id=$1`, int64(id))
	return scanThread(row)
}

func (r *ThreadStore) FindByProject(ctx context.Context, projectID idcodec.ProjectID) (*thread.Thread, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, selectThreadSQL+` WHERE project_id=$1`, int64(projectID))
	return scanThread(row)
}

func (r *ThreadStore) FindByVersion(ctx context.Context, versionID idcodec.VersionID) (*thread.Thread, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, selectThreadSQL+` WHERE version_id=$1`, int64(versionID))
	return scanThread(row)
}

const selectThreadSQL = `SELECT id, association_kind, project_id, version_id, messages FROM threads`

func scanThread(row *sql.Row) (*thread.Thread, error) {
	var (
		id                  int64
		kind                string
		projectID, versionID sql.NullInt64
		rawMessages         []byte
	)
	err := row.Scan(&id, &kind, &projectID, &versionID, &rawMessages)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, thread.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan thread: %w", err)
	}

	var messages []thread.Message
	if len(rawMessages) > 0 {
		if err := json.Unmarshal(rawMessages, &messages); err != nil {
			return nil, fmt.Errorf("store: unmarshal messages: %w", err)
		}
	}

	var pid *idcodec.ProjectID
	if projectID.Valid {
		v := idcodec.ProjectID(projectID.Int64)
		pid = &v
	}
	var vid *idcodec.VersionID
	if versionID.Valid {
		v := idcodec.VersionID(versionID.Int64)
		vid = &v
	}

	return thread.Reconstruct(idcodec.ThreadID(id), thread.AssociationKind(kind), pid, vid, messages), nil
}

func nullProjectID(id *idcodec.ProjectID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullVersionID(id *idcodec.VersionID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}
