package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/modhub/platform/internal/domain/organization"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

type OrganizationStore struct{ store *Store }

func NewOrganizationStore(s *Store) *OrganizationStore { return &OrganizationStore{store: s} }

var _ organization.Repository = (*OrganizationStore)(nil)

func (r *OrganizationStore) Create(ctx context.Context, o *organization.Organization) error {
	icon := o.Icon()
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO organizations (id, slug, name, description, team_id, icon_public_url,
			icon_raw_url, color, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		int64(o.ID()), o.Slug(), o.Name(), o.Description(), int64(o.TeamID()),
		nullString(icon.Public), nullString(icon.Raw), nullInt32(o.Color()), o.CreatedAt(), o.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "organizations_slug_key") {
			return organization.ErrSlugTaken
		}
		return fmt.Errorf("store: create organization: %w", err)
	}
	return nil
}

func (r *OrganizationStore) Update(ctx context.Context, o *organization.Organization) error {
	icon := o.Icon()
	_, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE organizations SET slug=$2, name=$3, description=$4, icon_public_url=$5,
			icon_raw_url=$6, color=$7, updated_at=$8
		WHERE id=$1`,
		int64(o.ID()), o.Slug(), o.Name(), o.Description(), nullString(icon.Public),
		nullString(icon.Raw), nullInt32(o.Color()), o.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "organizations_slug_key") {
			return organization.ErrSlugTaken
		}
		return fmt.Errorf("store: update organization: %w", err)
	}
	return nil
}

func (r *OrganizationStore) Delete(ctx context.Context, id idcodec.OrganizationID) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM organizations WHERE id=$1`, int64(id))
	if err != nil {
		return fmt.Errorf("store: delete organization: %w", err)
	}
	return nil
}

func (r *OrganizationStore) FindByID(ctx context.Context, id idcodec.OrganizationID) (*organization.Organization, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, slug, name, description, team_id, icon_public_url, icon_raw_url, color,
			created_at, updated_at
		FROM organizations WHERE id=$1`, int64(id))
	return scanOrganization(row)
}

func (r *OrganizationStore) FindBySlug(ctx context.Context, slug string) (*organization.Organization, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT id, slug, name, description, team_id, icon_public_url, icon_raw_url, color,
			created_at, updated_at
		FROM organizations WHERE lower(slug)=lower($1)`, slug)
	return scanOrganization(row)
}

func (r *OrganizationStore) FindManyByID(ctx context.Context, ids []idcodec.OrganizationID) ([]*organization.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT id, slug, name, description, team_id, icon_public_url, icon_raw_url, color,
			created_at, updated_at
		FROM organizations WHERE id = ANY($1)`, pqInt64Array(raw))
	if err != nil {
		return nil, fmt.Errorf("store: find many organizations: %w", err)
	}
	defer rows.Close()

	var out []*organization.Organization
	for rows.Next() {
		o, err := scanOrganizationRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrganizationStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE lower(slug)=lower($1))`, slug).Scan(&exists)
	return exists, err
}

func (r *OrganizationStore) ListProjectIDs(ctx context.Context, id idcodec.OrganizationID) ([]idcodec.ProjectID, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT id FROM projects WHERE organization_id=$1`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("store: list organization project ids: %w", err)
	}
	defer rows.Close()

	var out []idcodec.ProjectID
	for rows.Next() {
		var id64 int64
		if err := rows.Scan(&id64); err != nil {
			return nil, err
		}
		out = append(out, idcodec.ProjectID(id64))
	}
	return out, rows.Err()
}

func scanOrganization(row *sql.Row) (*organization.Organization, error) {
	return scanOrganizationGeneric(row)
}

func scanOrganizationRows(rows *sql.Rows) (*organization.Organization, error) {
	return scanOrganizationGeneric(rows)
}

func scanOrganizationGeneric(s rowScanner) (*organization.Organization, error) {
	var (
		id, teamID                  int64
		slug, name, description     string
		iconPublic, iconRaw         sql.NullString
		color                       sql.NullInt32
		createdAt, updatedAt        time.Time
	)
	err := s.Scan(&id, &slug, &name, &description, &teamID, &iconPublic, &iconRaw, &color, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, organization.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan organization: %w", err)
	}
	var colorPtr *int32
	if color.Valid {
		colorPtr = &color.Int32
	}
	return organization.Reconstruct(idcodec.OrganizationID(id), slug, name, description,
		idcodec.TeamID(teamID), user.AvatarURLs{Public: iconPublic.String, Raw: iconRaw.String},
		colorPtr, createdAt, updatedAt), nil
}

func nullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}
