package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/user"
	"github.com/modhub/platform/internal/idcodec"
)

// ProjectStore implements project.Repository. Categories, links, and the
// gallery are stored as JSON columns via json.Marshal.
type ProjectStore struct{ store *Store }

func NewProjectStore(s *Store) *ProjectStore { return &ProjectStore{store: s} }

var _ project.Repository = (*ProjectStore)(nil)

func (r *ProjectStore) Create(ctx context.Context, p *project.Project) error {
	row, err := marshalProject(p)
	if err != nil {
		return err
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO projects (id, slug, name, summary, description, team_id, organization_id,
			status, requested_status, primary_categories, additional_categories, license_id,
			license_url, links, gallery, icon_public_url, icon_raw_url, color, monetization,
			moderation_message, moderation_message_body, downloads, follows, published_at,
			updated_at, approved_at, queued_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
		row.id, row.slug, row.name, row.summary, row.description, row.teamID, row.orgID,
		row.status, row.requestedStatus, row.primaryCategories, row.additionalCategories,
		row.licenseID, row.licenseURL, row.links, row.gallery, row.iconPublic, row.iconRaw,
		row.color, row.monetization, row.moderationMessage, row.moderationMessageBody,
		row.downloads, row.follows, row.publishedAt, row.updatedAt, row.approvedAt, row.queuedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "projects_slug_key") {
			return project.ErrSlugTaken
		}
		return fmt.Errorf("store: create project: %w", err)
	}
	return nil
}

func (r *ProjectStore) Update(ctx context.Context, p *project.Project) error {
	row, err := marshalProject(p)
	if err != nil {
		return err
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		UPDATE projects SET slug=$2, name=$3, summary=$4, description=$5, team_id=$6,
			organization_id=$7, status=$8, requested_status=$9, primary_categories=$10,
			additional_categories=$11, license_id=$12, license_url=$13, links=$14, gallery=$15,
			icon_public_url=$16, icon_raw_url=$17, color=$18, monetization=$19,
			moderation_message=$20, moderation_message_body=$21, downloads=$22, follows=$23,
			published_at=$24, updated_at=$25, approved_at=$26, queued_at=$27
		WHERE id=$1`,
		row.id, row.slug, row.name, row.summary, row.description, row.teamID, row.orgID,
		row.status, row.requestedStatus, row.primaryCategories, row.additionalCategories,
		row.licenseID, row.licenseURL, row.links, row.gallery, row.iconPublic, row.iconRaw,
		row.color, row.monetization, row.moderationMessage, row.moderationMessageBody,
		row.downloads, row.follows, row.publishedAt, row.updatedAt, row.approvedAt, row.queuedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "projects_slug_key") {
			return project.ErrSlugTaken
		}
		return fmt.Errorf("store: update project: %w", err)
	}
	return nil
}

func (r *ProjectStore) Delete(ctx context.Context, id idcodec.ProjectID) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, int64(id))
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	return nil
}

func (r *ProjectStore) FindByID(ctx context.Context, id idcodec.ProjectID) (*project.Project, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, selectProjectSQL+` WHERE id=$1`, int64(id))
	return scanProject(row)
}

func (r *ProjectStore) FindBySlug(ctx context.Context, slug string) (*project.Project, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, selectProjectSQL+` WHERE lower(slug)=lower($1)`, slug)
	return scanProject(row)
}

func (r *ProjectStore) FindManyByID(ctx context.Context, ids []idcodec.ProjectID) ([]*project.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, selectProjectSQL+` WHERE id = ANY($1)`, pqInt64Array(raw))
	if err != nil {
		return nil, fmt.Errorf("store: find many projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func (r *ProjectStore) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE lower(slug)=lower($1))`, slug).Scan(&exists)
	return exists, err
}

func (r *ProjectStore) ExistsByID(ctx context.Context, id idcodec.ProjectID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM projects WHERE id=$1)`, int64(id)).Scan(&exists)
	return exists, err
}

func (r *ProjectStore) ListByOrganization(ctx context.Context, orgID idcodec.OrganizationID) ([]*project.Project, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, selectProjectSQL+` WHERE organization_id=$1`, int64(orgID))
	if err != nil {
		return nil, fmt.Errorf("store: list projects by organization: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

// LockForUpdate acquires the project row lock required before a mutation;
// two concurrent edits to the same project serialize here.
func (r *ProjectStore) LockForUpdate(ctx context.Context, id idcodec.ProjectID) error {
	tx, err := r.store.tx(ctx)
	if err != nil {
		return err
	}
	var discard int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE id=$1 FOR UPDATE`, int64(id)).Scan(&discard)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return project.ErrNotFound
		}
		return fmt.Errorf("store: lock project: %w", err)
	}
	return nil
}

const selectProjectSQL = `
	SELECT id, slug, name, summary, description, team_id, organization_id, status,
		requested_status, primary_categories, additional_categories, license_id, license_url,
		links, gallery, icon_public_url, icon_raw_url, color, monetization, moderation_message,
		moderation_message_body, downloads, follows, published_at, updated_at, approved_at, queued_at
	FROM projects`

type projectRow struct {
	id, teamID                                            int64
	orgID                                                  sql.NullInt64
	slug, name, summary, description                      string
	status                                                 string
	requestedStatus                                        sql.NullString
	primaryCategories, additionalCategories                []byte
	licenseID, licenseURL                                  string
	links, gallery                                         []byte
	iconPublic, iconRaw                                    sql.NullString
	color                                                   sql.NullInt32
	monetization                                           string
	moderationMessage, moderationMessageBody               string
	downloads, follows                                      int64
	publishedAt, approvedAt, queuedAt                      *time.Time
	updatedAt                                               time.Time
}

func marshalProject(p *project.Project) (projectRow, error) {
	primary, err := json.Marshal(p.PrimaryCategories())
	if err != nil {
		return projectRow{}, fmt.Errorf("store: marshal primary categories: %w", err)
	}
	additional, err := json.Marshal(p.AdditionalCategories())
	if err != nil {
		return projectRow{}, fmt.Errorf("store: marshal additional categories: %w", err)
	}
	links, err := json.Marshal(p.Links())
	if err != nil {
		return projectRow{}, fmt.Errorf("store: marshal links: %w", err)
	}
	gallery, err := json.Marshal(p.Gallery())
	if err != nil {
		return projectRow{}, fmt.Errorf("store: marshal gallery: %w", err)
	}

	var orgID sql.NullInt64
	if p.OrganizationID() != nil {
		orgID = sql.NullInt64{Int64: int64(*p.OrganizationID()), Valid: true}
	}
	var requestedStatus sql.NullString
	if p.RequestedStatus() != nil {
		requestedStatus = sql.NullString{String: string(*p.RequestedStatus()), Valid: true}
	}
	icon := p.Icon()

	return projectRow{
		id: int64(p.ID()), teamID: int64(p.TeamID()), orgID: orgID,
		slug: p.Slug(), name: p.Name(), summary: p.Summary(), description: p.Description(),
		status: string(p.Status()), requestedStatus: requestedStatus,
		primaryCategories: primary, additionalCategories: additional,
		licenseID: p.LicenseID(), licenseURL: p.LicenseURL(), links: links, gallery: gallery,
		iconPublic: nullString(icon.Public), iconRaw: nullString(icon.Raw), color: nullInt32(p.Color()),
		monetization: string(p.Monetization()), moderationMessage: "", moderationMessageBody: "",
		downloads: p.Downloads(), follows: p.Follows(),
		publishedAt: p.PublishedAt(), updatedAt: p.UpdatedAt(), approvedAt: p.ApprovedAt(), queuedAt: p.QueuedAt(),
	}, nil
}

func scanProject(row *sql.Row) (*project.Project, error) {
	return scanProjectGeneric(row)
}

func scanProjects(rows *sql.Rows) ([]*project.Project, error) {
	var out []*project.Project
	for rows.Next() {
		p, err := scanProjectGeneric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProjectGeneric(s rowScanner) (*project.Project, error) {
	var row projectRow
	err := s.Scan(&row.id, &row.slug, &row.name, &row.summary, &row.description, &row.teamID,
		&row.orgID, &row.status, &row.requestedStatus, &row.primaryCategories, &row.additionalCategories,
		&row.licenseID, &row.licenseURL, &row.links, &row.gallery, &row.iconPublic, &row.iconRaw,
		&row.color, &row.monetization, &row.moderationMessage, &row.moderationMessageBody,
		&row.downloads, &row.follows, &row.publishedAt, &row.updatedAt, &row.approvedAt, &row.queuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, project.ErrNotFound
		}
		return nil, fmt.Errorf("store: scan project: %w", err)
	}

	var primary, additional []idcodec.CategoryID
	if err := json.Unmarshal(row.primaryCategories, &primary); err != nil {
		return nil, fmt.Errorf("store: unmarshal primary categories: %w", err)
	}
	if err := json.Unmarshal(row.additionalCategories, &additional); err != nil {
		return nil, fmt.Errorf("store: unmarshal additional categories: %w", err)
	}
	links := make(map[idcodec.LinkPlatformID]string)
	if len(row.links) > 0 {
		if err := json.Unmarshal(row.links, &links); err != nil {
			return nil, fmt.Errorf("store: unmarshal links: %w", err)
		}
	}
	var gallery []project.GalleryItem
	if err := json.Unmarshal(row.gallery, &gallery); err != nil {
		return nil, fmt.Errorf("store: unmarshal gallery: %w", err)
	}

	var orgID *idcodec.OrganizationID
	if row.orgID.Valid {
		v := idcodec.OrganizationID(row.orgID.Int64)
		orgID = &v
	}
	var requestedStatus *project.Status
	if row.requestedStatus.Valid {
		v := project.Status(row.requestedStatus.String)
		requestedStatus = &v
	}
	var colorPtr *int32
	if row.color.Valid {
		colorPtr = &row.color.Int32
	}

	return project.Reconstruct(
		idcodec.ProjectID(row.id), row.slug, row.name, row.summary, row.description,
		idcodec.TeamID(row.teamID), orgID, project.Status(row.status), requestedStatus,
		primary, additional, row.licenseID, row.licenseURL, links, gallery,
		user.AvatarURLs{Public: row.iconPublic.String, Raw: row.iconRaw.String}, colorPtr,
		project.MonetizationStatus(row.monetization), row.moderationMessage, row.moderationMessageBody,
		row.downloads, row.follows, row.publishedAt, row.updatedAt, row.approvedAt, row.queuedAt,
	), nil
}

// ProjectFollowStore implements project.FollowRepository (
// supplement), a small edge table paralleling team_members.
type ProjectFollowStore struct{ store *Store }

func NewProjectFollowStore(s *Store) *ProjectFollowStore { return &ProjectFollowStore{store: s} }

var _ project.FollowRepository = (*ProjectFollowStore)(nil)

func (r *ProjectFollowStore) Follow(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error) {
	already, err := r.IsFollowing(ctx, projectID, userID)
	if err != nil {
		return false, err
	}
	_, err = r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO project_follows (project_id, user_id) VALUES ($1,$2)
		ON CONFLICT (project_id, user_id) DO NOTHING`, int64(projectID), int64(userID))
	if err != nil {
		return false, fmt.Errorf("store: follow project: %w", err)
	}
	return already, nil
}

func (r *ProjectFollowStore) Unfollow(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error) {
	was, err := r.IsFollowing(ctx, projectID, userID)
	if err != nil {
		return false, err
	}
	_, err = r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM project_follows WHERE project_id=$1 AND user_id=$2`, int64(projectID), int64(userID))
	if err != nil {
		return false, fmt.Errorf("store: unfollow project: %w", err)
	}
	return was, nil
}

func (r *ProjectFollowStore) IsFollowing(ctx context.Context, projectID idcodec.ProjectID, userID idcodec.UserID) (bool, error) {
	var exists bool
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM project_follows WHERE project_id=$1 AND user_id=$2)`,
		int64(projectID), int64(userID)).Scan(&exists)
	return exists, err
}
