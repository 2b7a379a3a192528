package group

import (
	"context"
	"database/sql"
	"fmt"
)

const memberColumns = `id, group_id, account_id, name, phone, role, rotation_position, status,
	total_contributed, total_received, has_received_payout, pledge_amount, created_at`

const groupColumns = `id, name, kind, contribution_amount, currency, collection_frequency,
	collection_day, rotation_policy, total_cycles, current_cycle, current_rotation_index,
	status, total_collected, total_distributed, created_at`

// Repository handles group and member data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// MemberInsert is one roster entry for group creation
type MemberInsert struct {
	Req      *NewMemberRequest
	Role     MemberRole
	Position int
}

// Create inserts a group and its initial roster in one transaction, so a
// rejected member never leaves a partially created group behind.
func (r *Repository) Create(ctx context.Context, req *CreateGroupRequest, roster []MemberInsert) (*Group, []*Member, error) {
	currency := req.Currency
	if currency == "" {
		currency = "KES"
	}
	frequency := req.CollectionFrequency
	if frequency == "" {
		frequency = FrequencyMonthly
	}
	policy := req.RotationPolicy
	if policy == "" {
		policy = PolicySequential
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO groups (name, kind, contribution_amount, currency, collection_frequency,
			collection_day, rotation_policy, total_cycles)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + groupColumns

	group := &Group{}
	err = tx.QueryRowContext(ctx, query,
		req.Name, req.Kind, req.ContributionAmount, currency, frequency,
		req.CollectionDay, policy, req.TotalCycles,
	).Scan(groupFields(group)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create group: %w", err)
	}

	members := make([]*Member, 0, len(roster))
	for _, entry := range roster {
		member := &Member{}
		err := tx.QueryRowContext(ctx, insertMemberQuery,
			group.ID, entry.Req.AccountID, entry.Req.Name, entry.Req.Phone,
			entry.Role, entry.Position, entry.Req.PledgeAmount,
		).Scan(memberFields(member)...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to add member %s: %w", entry.Req.Phone, err)
		}
		members = append(members, member)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit group creation: %w", err)
	}

	return group, members, nil
}

// GetByID retrieves a group by its ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`

	group := &Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(groupFields(group)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// ListByAccountID retrieves all groups an account belongs to
func (r *Repository) ListByAccountID(ctx context.Context, accountID int64, limit, offset int) ([]*Group, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(DISTINCT g.id)
		FROM groups g
		JOIN members m ON g.id = m.group_id
		WHERE m.account_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, accountID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count groups: %w", err)
	}

	query := `
		SELECT DISTINCT g.id, g.name, g.kind, g.contribution_amount, g.currency,
			g.collection_frequency, g.collection_day, g.rotation_policy, g.total_cycles,
			g.current_cycle, g.current_rotation_index, g.status, g.total_collected,
			g.total_distributed, g.created_at
		FROM groups g
		JOIN members m ON g.id = m.group_id
		WHERE m.account_id = $1
		ORDER BY g.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		group := &Group{}
		if err := rows.Scan(groupFields(group)...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	return groups, total, nil
}

// UpdateStatus moves a group between lifecycle states. The update only
// applies when the group is still in the expected prior state; false means
// the row had already moved on.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to GroupStatus) (bool, error) {
	query := `UPDATE groups SET status = $3 WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update group status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

const insertMemberQuery = `
	INSERT INTO members (group_id, account_id, name, phone, role, rotation_position, pledge_amount)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + memberColumns

// AddMember adds a member to a group at the given rotation position
func (r *Repository) AddMember(ctx context.Context, groupID int64, req *NewMemberRequest, role MemberRole, position int) (*Member, error) {
	member := &Member{}
	err := r.db.QueryRowContext(ctx, insertMemberQuery,
		groupID, req.AccountID, req.Name, req.Phone, role, position, req.PledgeAmount,
	).Scan(memberFields(member)...)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	return member, nil
}

// GetMembers retrieves all members of a group in rotation order
func (r *Repository) GetMembers(ctx context.Context, groupID int64) ([]*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE group_id = $1 ORDER BY rotation_position`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		member := &Member{}
		if err := rows.Scan(memberFields(member)...); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	return members, nil
}

// GetMember retrieves a single member by ID
func (r *Repository) GetMember(ctx context.Context, memberID int64) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	member := &Member{}
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(memberFields(member)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// GetMemberByPhone retrieves a member of a group by phone number
func (r *Repository) GetMemberByPhone(ctx context.Context, groupID int64, phone string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE group_id = $1 AND phone = $2`

	member := &Member{}
	err := r.db.QueryRowContext(ctx, query, groupID, phone).Scan(memberFields(member)...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by phone: %w", err)
	}

	return member, nil
}

// CountMembers returns how many members a group has (any status)
func (r *Repository) CountMembers(ctx context.Context, groupID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE group_id = $1`, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

// UpdateMemberStatus moves a member between lifecycle states with an
// expected-prior-state guard.
func (r *Repository) UpdateMemberStatus(ctx context.Context, memberID int64, from, to MemberStatus) (bool, error) {
	query := `UPDATE members SET status = $3 WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, memberID, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update member status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// CreditPayout records a cycle payout against the recipient member
func (r *Repository) CreditPayout(ctx context.Context, memberID int64, amount int64) error {
	query := `
		UPDATE members
		SET total_received = total_received + $2,
		    has_received_payout = TRUE
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, memberID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit payout: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("member not found")
	}

	return nil
}

// AdvanceCycle moves the group to its next cycle after settlement. The
// update is guarded on current_cycle so racing settle calls apply at most
// once; false means another caller already advanced the group.
func (r *Repository) AdvanceCycle(ctx context.Context, groupID int64, fromCycle int, rotationIndex int, collected, distributed int64, complete bool) (bool, error) {
	status := GroupStatusActive
	if complete {
		status = GroupStatusCompleted
	}

	query := `
		UPDATE groups
		SET current_cycle = current_cycle + 1,
		    current_rotation_index = $3,
		    total_collected = total_collected + $4,
		    total_distributed = total_distributed + $5,
		    status = CASE WHEN status = 'active' THEN $6 ELSE status END
		WHERE id = $1 AND current_cycle = $2
	`

	result, err := r.db.ExecContext(ctx, query, groupID, fromCycle, rotationIndex, collected, distributed, string(status))
	if err != nil {
		return false, fmt.Errorf("failed to advance group cycle: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func groupFields(g *Group) []interface{} {
	return []interface{}{
		&g.ID, &g.Name, &g.Kind, &g.ContributionAmount, &g.Currency,
		&g.CollectionFrequency, &g.CollectionDay, &g.RotationPolicy, &g.TotalCycles,
		&g.CurrentCycle, &g.CurrentRotationIndex, &g.Status, &g.TotalCollected,
		&g.TotalDistributed, &g.CreatedAt,
	}
}

func memberFields(m *Member) []interface{} {
	return []interface{}{
		&m.ID, &m.GroupID, &m.AccountID, &m.Name, &m.Phone, &m.Role,
		&m.RotationPosition, &m.Status, &m.TotalContributed, &m.TotalReceived,
		&m.HasReceivedPayout, &m.PledgeAmount, &m.CreatedAt,
	}
}
