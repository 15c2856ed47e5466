package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/modhub/platform/internal/domain/team"
	"github.com/modhub/platform/internal/idcodec"
)

// TeamStore implements team.Repository. A team's association is resolved
// at read time by checking which of projects/organizations
// references it, rather than a stored back-pointer.
type TeamStore struct{ store *Store }

func NewTeamStore(s *Store) *TeamStore { return &TeamStore{store: s} }

var _ team.Repository = (*TeamStore)(nil)

func (r *TeamStore) Create(ctx context.Context, id idcodec.TeamID) (*team.Team, error) {
	_, err := r.store.q(ctx).ExecContext(ctx, `INSERT INTO teams (id) VALUES ($1)`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("store: create team: %w", err)
	}
	return team.New(id), nil
}

func (r *TeamStore) Delete(ctx context.Context, id idcodec.TeamID) error {
	_, err := r.store.q(ctx).ExecContext(ctx, `DELETE FROM teams WHERE id=$1`, int64(id))
	if err != nil {
		return fmt.Errorf("store: delete team: %w", err)
	}
	return nil
}

func (r *TeamStore) Association(ctx context.Context, id idcodec.TeamID) (team.Association, error) {
	var projectID sql.NullInt64
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id FROM projects WHERE team_id=$1`, int64(id)).Scan(&projectID)
	if err == nil {
		return team.Association{Kind: team.AssociationProject, OwnerProjectID: idcodec.ProjectID(projectID.Int64)}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return team.Association{}, fmt.Errorf("store: team association (project): %w", err)
	}

	var orgID sql.NullInt64
	err = r.store.q(ctx).QueryRowContext(ctx,
		`SELECT id FROM organizations WHERE team_id=$1`, int64(id)).Scan(&orgID)
	if err == nil {
		return team.Association{Kind: team.AssociationOrganization, OwnerOrgID: idcodec.OrganizationID(orgID.Int64)}, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return team.Association{}, team.ErrDanglingAssociation
	}
	return team.Association{}, fmt.Errorf("store: team association (org): %w", err)
}

// LockForUpdate acquires SELECT ... FOR UPDATE on the team row, satisfying
// 's "two concurrent edits... serialize at the Store via
// row-level locking". Requires an ambient transaction from Store.WithTx.
func (r *TeamStore) LockForUpdate(ctx context.Context, id idcodec.TeamID) error {
	tx, err := r.store.tx(ctx)
	if err != nil {
		return err
	}
	var discard int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM teams WHERE id=$1 FOR UPDATE`, int64(id)).Scan(&discard)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return team.ErrNotFound
		}
		return fmt.Errorf("store: lock team: %w", err)
	}
	return nil
}

// TeamMemberStore implements team.MemberRepository.
type TeamMemberStore struct{ store *Store }

func NewTeamMemberStore(s *Store) *TeamMemberStore { return &TeamMemberStore{store: s} }

var _ team.MemberRepository = (*TeamMemberStore)(nil)

func (r *TeamMemberStore) Add(ctx context.Context, m *team.Member) error {
	orgBits, hasOrgBits := m.OrgBits()
	_, err := r.store.q(ctx).ExecContext(ctx, `
		INSERT INTO team_members (team_id, user_id, role, is_owner, project_bits, org_bits,
			has_org_bits, accepted, payouts_split, ordering)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		int64(m.TeamID()), int64(m.UserID()), string(m.Role()), m.IsOwner(), int64(m.ProjectBits()),
		int64(orgBits), hasOrgBits, m.Accepted(), m.PayoutsSplit(), m.Ordering(),
	)
	if err != nil {
		if isUniqueViolation(err, "team_members_team_id_user_id_key") {
			return team.ErrMemberAlreadyExists
		}
		return fmt.Errorf("store: add team member: %w", err)
	}
	return nil
}

func (r *TeamMemberStore) Update(ctx context.Context, m *team.Member) error {
	orgBits, hasOrgBits := m.OrgBits()
	_, err := r.store.q(ctx).ExecContext(ctx, `
		UPDATE team_members SET role=$3, is_owner=$4, project_bits=$5, org_bits=$6,
			has_org_bits=$7, accepted=$8, payouts_split=$9, ordering=$10
		WHERE team_id=$1 AND user_id=$2`,
		int64(m.TeamID()), int64(m.UserID()), string(m.Role()), m.IsOwner(), int64(m.ProjectBits()),
		int64(orgBits), hasOrgBits, m.Accepted(), m.PayoutsSplit(), m.Ordering(),
	)
	if err != nil {
		return fmt.Errorf("store: update team member: %w", err)
	}
	return nil
}

func (r *TeamMemberStore) Remove(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) error {
	_, err := r.store.q(ctx).ExecContext(ctx,
		`DELETE FROM team_members WHERE team_id=$1 AND user_id=$2`, int64(teamID), int64(userID))
	if err != nil {
		return fmt.Errorf("store: remove team member: %w", err)
	}
	return nil
}

func (r *TeamMemberStore) Find(ctx context.Context, teamID idcodec.TeamID, userID idcodec.UserID) (*team.Member, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT team_id, user_id, role, is_owner, project_bits, org_bits, has_org_bits,
			accepted, payouts_split, ordering
		FROM team_members WHERE team_id=$1 AND user_id=$2`, int64(teamID), int64(userID))
	return scanMember(row)
}

func (r *TeamMemberStore) FindOwner(ctx context.Context, teamID idcodec.TeamID) (*team.Member, error) {
	row := r.store.q(ctx).QueryRowContext(ctx, `
		SELECT team_id, user_id, role, is_owner, project_bits, org_bits, has_org_bits,
			accepted, payouts_split, ordering
		FROM team_members WHERE team_id=$1 AND is_owner=true`, int64(teamID))
	return scanMember(row)
}

func (r *TeamMemberStore) ListByTeam(ctx context.Context, teamID idcodec.TeamID) ([]*team.Member, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT team_id, user_id, role, is_owner, project_bits, org_bits, has_org_bits,
			accepted, payouts_split, ordering
		FROM team_members WHERE team_id=$1 ORDER BY ordering`, int64(teamID))
	if err != nil {
		return nil, fmt.Errorf("store: list team members: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *TeamMemberStore) ListByUser(ctx context.Context, userID idcodec.UserID) ([]*team.Member, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, `
		SELECT team_id, user_id, role, is_owner, project_bits, org_bits, has_org_bits,
			accepted, payouts_split, ordering
		FROM team_members WHERE user_id=$1`, int64(userID))
	if err != nil {
		return nil, fmt.Errorf("store: list teams by user: %w", err)
	}
	defer rows.Close()
	return scanMembers(rows)
}

func (r *TeamMemberStore) CountOwners(ctx context.Context, teamID idcodec.TeamID) (int, error) {
	var n int
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT count(*) FROM team_members WHERE team_id=$1 AND is_owner=true`, int64(teamID)).Scan(&n)
	return n, err
}

func scanMember(row *sql.Row) (*team.Member, error) {
	return scanMemberGeneric(row)
}

func scanMembers(rows *sql.Rows) ([]*team.Member, error) {
	var out []*team.Member
	for rows.Next() {
		m, err := scanMemberGeneric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMemberGeneric(s rowScanner) (*team.Member, error) {
	var (
		teamID, userID                   int64
		role                              string
		isOwner, hasOrgBits, accepted     bool
		projectBits, orgBits              int64
		payoutsSplit, ordering            int
	)
	err := s.Scan(&teamID, &userID, &role, &isOwner, &projectBits, &orgBits, &hasOrgBits,
		&accepted, &payoutsSplit, &ordering)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, team.ErrMemberNotFound
		}
		return nil, fmt.Errorf("store: scan team member: %w", err)
	}
	var orgBitsPtr *uint64
	if hasOrgBits {
		v := uint64(orgBits)
		orgBitsPtr = &v
	}
	return team.Reconstruct(idcodec.TeamID(teamID), idcodec.UserID(userID), team.MemberRole(role),
		isOwner, uint64(projectBits), orgBitsPtr, accepted, payoutsSplit, ordering), nil
}
