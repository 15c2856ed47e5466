package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
)

// VersionStore implements version.Repository. Files/dependencies/loader
// fields are JSON columns, matching ProjectStore's denormalization; file
// hashes are additionally mirrored into a side table so
// ExistsByFileHash(algorithm, hex) stays an indexed lookup instead of a
// JSON containment scan.
type VersionStore struct{ store *Store }

func NewVersionStore(s *Store) *VersionStore { return &VersionStore{store: s} }

var _ version.Repository = (*VersionStore)(nil)

func (r *VersionStore) Create(ctx context.Context, v *version.Version) error {
	row, err := marshalVersion(v)
	if err != nil {
		return err
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO versions (id, project_id, author_id, version_number, name, changelog,
			version_type, status, files, dependencies, loaders, loader_fields, featured,
			downloads, ordering, publish_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		row.id, row.projectID, row.authorID, row.versionNumber, row.name, row.changelog,
		row.versionType, row.status, row.files, row.dependencies, row.loaders, row.loaderFields,
		row.featured, row.downloads, row.ordering, row.publishAt, row.createdAt, row.updatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "versions_project_id_version_number_key") {
			return version.ErrVersionNumberTaken
		}
		return fmt.Errorf("store: create version: %w", err)
	}
	return r.syncFileHashes(ctx, v)
}

func (r *VersionStore) Update(ctx context.Context, v *version.Version) error {
	row, err := marshalVersion(v)
	if err != nil {
		return err
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		UPDATE versions SET project_id=$2, author_id=$3, version_number=$4, name=$5,
			changelog=$6, version_type=$7, status=$8, files=$9, dependencies=$10, loaders=$11,
			loader_fields=$12, featured=$13, downloads=$14, ordering=$15, publish_at=$16,
			updated_at=$17
		WHERE id=$1`,
		row.id, row.projectID, row.authorID, row.versionNumber, row.name, row.changelog,
		row.versionType, row.status, row.files, row.dependencies, row.loaders, row.loaderFields,
		row.featured, row.downloads, row.ordering, row.publishAt, row.updatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "versions_project_id_version_number_key") {
			return version.ErrVersionNumberTaken
		}
		return fmt.Errorf("store: update version: %w", err)
	}
	return r.syncFileHashes(ctx, v)
}

// syncFileHashes rewrites the version_file_hashes side index so
// ExistsByFileHash stays accurate after AddFile/RemoveFile.
func (r *VersionStore) syncFileHashes(ctx context.Context, v *version.Version) error {
	q := r.store.q(ctx)
	if _, err := q.ExecContext(ctx, `DELETE FROM version_file_hashes WHERE version_id=$1`, int64(v.ID())); err != nil {
		return fmt.Errorf("store: clear file hashes: %w", err)
	}
	for _, f := range v.Files() {
		for _, h := range f.Hashes {
			if _, err := q.ExecContext(ctx, `
				INSERT INTO version_file_hashes (version_id, algorithm, hash) VALUES ($1,$2,$3)
				ON CONFLICT DO NOTHING`, int64(v.ID()), h.Algorithm, h.Hex); err != nil {
				return fmt.Errorf("store: insert file hash: %w", err)
			}
		}
	}
	return nil
}

func (r *VersionStore) Delete(ctx context.Context, id idcodec.VersionID) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM versions WHERE id=$1`, int64(id))
	if err != nil {
		return fmt.Errorf("store: delete version: %w", err)
	}
	return nil
}

func (r *VersionStore) FindByID(ctx context.Context, id idcodec.VersionID) (*version.Version, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, selectVersionSQL+` WHERE id=$1`, int64(id))
	return scanVersion(row)
}

func (r *VersionStore) FindManyByID(ctx context.Context, ids []idcodec.VersionID) ([]*version.Version, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, selectVersionSQL+` WHERE id = ANY($1)`, pqInt64Array(raw))
	if err != nil {
		return nil, fmt.Errorf("store: find many versions: %w", err)
	}
	defer rows.Close()
	return scanVersions(rows)
}

func (r *VersionStore) ListByProject(ctx context.Context, projectID idcodec.ProjectID) ([]*version.Version, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, selectVersionSQL+` WHERE project_id=$1 ORDER BY ordering, created_at`, int64(projectID))
	if err != nil {
		return nil, fmt.Errorf("store: list versions by project: %w", err)
	}
	defer rows.Close()
	return scanVersions(rows)
}

func (r *VersionStore) ExistsByVersionNumber(ctx context.Context, projectID idcodec.ProjectID, versionNumber string) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM versions WHERE project_id=$1 AND version_number=$2)`,
		int64(projectID), versionNumber).Scan(&exists)
	return exists, err
}

func (r *VersionStore) ExistsByFileHash(ctx context.Context, algorithm, hex string) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM version_file_hashes WHERE algorithm=$1 AND hash=$2)`,
		algorithm, hex).Scan(&exists)
	return exists, err
}

func (r *VersionStore) ExistsVersionID(ctx context.Context, id idcodec.VersionID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM versions WHERE id=$1)`, int64(id)).Scan(&exists)
	return exists, err
}

const selectVersionSQL = `
	SELECT id, project_id, author_id, version_number, name, changelog, version_type, status,
		files, dependencies, loaders, loader_fields, featured, downloads, ordering, publish_at,
		created_at, updated_at
	FROM versions`

type versionRow struct {
	id, projectID, authorID                               int64
	versionNumber, name, changelog, versionType, status    string
	files, dependencies, loaders, loaderFields              []byte
	featured                                                bool
	downloads                                                int64
	ordering                                                 int
	publishAt                                                *time.Time
	createdAt, updatedAt                                     time.Time
}

func marshalVersion(v *version.Version) (versionRow, error) {
	files, err := json.Marshal(v.Files())
	if err != nil {
		return versionRow{}, fmt.Errorf("store: marshal files: %w", err)
	}
	deps, err := json.Marshal(v.Dependencies())
	if err != nil {
		return versionRow{}, fmt.Errorf("store: marshal dependencies: %w", err)
	}
	loaders, err := json.Marshal(v.Loaders())
	if err != nil {
		return versionRow{}, fmt.Errorf("store: marshal loaders: %w", err)
	}
	loaderFields, err := json.Marshal(v.LoaderFields())
	if err != nil {
		return versionRow{}, fmt.Errorf("store: marshal loader fields: %w", err)
	}

	return versionRow{
		id: int64(v.ID()), projectID: int64(v.ProjectID()), authorID: int64(v.AuthorID()),
		versionNumber: v.VersionNumber(), name: v.Name(), changelog: v.Changelog(),
		versionType: string(v.VersionType()), status: string(v.Status()),
		files: files, dependencies: deps, loaders: loaders, loaderFields: loaderFields,
		featured: v.Featured(), downloads: v.Downloads(), ordering: v.Ordering(),
		publishAt: v.PublishAt(), createdAt: v.CreatedAt(), updatedAt: v.UpdatedAt(),
	}, nil
}

func scanVersion(row *sql.Row) (*version.Version, error) {
	return scanVersionGeneric(row)
}

func scanVersions(rows *sql.Rows) ([]*version.Version, error) {
	var out []*version.Version
	for rows.Next() {
		v, err := scanVersionGeneric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVersionGeneric(s rowScanner) (*version.Version, error) {
	var row versionRow
	err := s.Scan(&row.id, &row.projectID, &row.authorID, &row.versionNumber, &row.name,
		&row.changelog, &row.versionType, &row.status, &row.files, &row.dependencies,
		&row.loaders, &row.loaderFields, &row.featured, &row.downloads, &row.ordering,
		&row.publishAt, &row.createdAt, &row.updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, version.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan version: %w", err)
	}

	var files []version.File
	if err := json.Unmarshal(row.files, &files); err != nil {
		return nil, fmt.Errorf("store: unmarshal files: %w", err)
	}
	var deps []version.Dependency
	if err := json.Unmarshal(row.dependencies, &deps); err != nil {
		return nil, fmt.Errorf("store: unmarshal dependencies: %w", err)
	}
	var loaders []idcodec.LoaderID
	if err := json.Unmarshal(row.loaders, &loaders); err != nil {
		return nil, fmt.Errorf("store: unmarshal loaders: %w", err)
	}
	loaderFields := make(map[idcodec.LoaderFieldID]any)
	if len(row.loaderFields) > 0 {
		if err := json.Unmarshal(row.loaderFields, &loaderFields); err != nil {
			return nil, fmt.Errorf("store: unmarshal loader fields: %w", err)
		}
	}

	return version.Reconstruct(
		idcodec.VersionID(row.id), idcodec.ProjectID(row.projectID), idcodec.UserID(row.authorID),
		row.versionNumber, row.name, row.changelog, version.VersionType(row.versionType),
		version.Status(row.status), files, deps, loaders, loaderFields, row.featured,
		row.downloads, row.ordering, row.publishAt, row.createdAt, row.updatedAt,
	), nil
}
