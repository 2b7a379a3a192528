package group

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
)

// Common errors
var (
	ErrGroupNotFound        = errors.New("group not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrDuplicateMemberPhone = errors.New("phone number already belongs to a group member")
	ErrGroupNotActive       = errors.New("group is not active")
	ErrInvalidStatusChange  = errors.New("invalid status change")
	ErrPledgeRequired       = errors.New("pledge_amount is required for pledge_fundraising members")
	ErrContributionRequired = errors.New("contribution_amount is required for this group kind")
)

// Notifier records in-app notifications. Implementations must not fail the
// calling operation; notification write errors are logged, not returned.
type Notifier interface {
	Notify(ctx context.Context, recipientAccountID int64, message string, entityType string, entityID int64)
}

// Service handles group business logic
type Service struct {
	repo     *Repository
	notifier Notifier
}

// NewService creates a new group service. notifier may be nil.
func NewService(repo *Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Create creates a new group. The founder becomes the first member with
// role=admin; any initial members are added in the same call. For
// random_once groups the rotation positions are shuffled here, exactly
// once — they are never re-randomized later.
func (s *Service) Create(ctx context.Context, founderAccountID int64, req *CreateGroupRequest) (*Group, []*Member, error) {
	if req.Kind != KindPledgeFundraising && req.ContributionAmount <= 0 {
		return nil, nil, ErrContributionRequired
	}

	roster := append([]NewMemberRequest{req.Founder}, req.Members...)
	seen := make(map[string]bool, len(roster))
	for _, m := range roster {
		if seen[m.Phone] {
			return nil, nil, ErrDuplicateMemberPhone
		}
		seen[m.Phone] = true
		if req.Kind == KindPledgeFundraising && (m.PledgeAmount == nil || *m.PledgeAmount <= 0) {
			return nil, nil, ErrPledgeRequired
		}
	}

	positions := make([]int, len(roster))
	for i := range positions {
		positions[i] = i + 1
	}
	if req.RotationPolicy == PolicyRandomOnce {
		positions = shufflePositions(len(roster))
	}

	inserts := make([]MemberInsert, len(roster))
	for i := range roster {
		m := roster[i]
		role := MemberRoleMember
		if i == 0 {
			role = MemberRoleAdmin
			if m.AccountID == nil {
				m.AccountID = &founderAccountID
			}
		}
		inserts[i] = MemberInsert{Req: &m, Role: role, Position: positions[i]}
	}

	return s.repo.Create(ctx, req, inserts)
}

// shufflePositions returns a uniformly random permutation of 1..n, assigned
// as rotation positions when a random_once group is created.
func shufflePositions(n int) []int {
	positions := rand.Perm(n)
	for i := range positions {
		positions[i]++
	}
	return positions
}

// GetByID retrieves a group by its ID
func (s *Service) GetByID(ctx context.Context, id int64) (*Group, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}
	return group, nil
}

// GetByIDWithMembers retrieves a group with all its members
func (s *Service) GetByIDWithMembers(ctx context.Context, id int64) (*Group, []*Member, error) {
	group, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	members, err := s.repo.GetMembers(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return group, members, nil
}

// ListByAccountID retrieves all groups an account belongs to
func (s *Service) ListByAccountID(ctx context.Context, accountID int64, page, perPage int) ([]*Group, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByAccountID(ctx, accountID, perPage, offset)
}

// AddMember adds a member to an existing group at the end of the rotation.
// Later joiners are appended regardless of rotation policy; the random_once
// permutation only covers the creation-time roster.
func (s *Service) AddMember(ctx context.Context, groupID int64, req *NewMemberRequest) (*Member, error) {
	group, err := s.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status == GroupStatusDissolved || group.Status == GroupStatusCompleted {
		return nil, ErrGroupNotActive
	}
	if group.Kind == KindPledgeFundraising && (req.PledgeAmount == nil || *req.PledgeAmount <= 0) {
		return nil, ErrPledgeRequired
	}

	existing, err := s.repo.GetMemberByPhone(ctx, groupID, req.Phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateMemberPhone
	}

	count, err := s.repo.CountMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	return s.repo.AddMember(ctx, groupID, req, MemberRoleMember, count+1)
}

// BulkAddMembers imports several members at once. Entries are independent:
// one rejected phone never blocks the rest.
func (s *Service) BulkAddMembers(ctx context.Context, groupID int64, req *BulkAddMembersRequest) ([]*BulkAddResult, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	results := make([]*BulkAddResult, 0, len(req.Members))
	for i := range req.Members {
		m := req.Members[i]
		result := &BulkAddResult{Phone: m.Phone}
		member, err := s.AddMember(ctx, groupID, &m)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Member = member.ToResponse()
		}
		results = append(results, result)
	}

	return results, nil
}

// RequestExit marks a member as wanting to leave the group. The member
// keeps being billed until an admin approves the exit.
func (s *Service) RequestExit(ctx context.Context, groupID, memberID int64) (*Member, error) {
	member, err := s.getGroupMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.UpdateMemberStatus(ctx, memberID, MemberStatusActive, MemberStatusExitRequested)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidStatusChange
	}

	s.notifyAdmin(ctx, groupID, fmt.Sprintf("%s has requested to exit the group", member.Name), memberID)

	return s.repo.GetMember(ctx, memberID)
}

// ApproveExit finalizes a member's exit. Admin approval only; the member's
// rotation_position is kept for audit and the rotation simply skips them.
func (s *Service) ApproveExit(ctx context.Context, groupID, memberID int64) (*Member, error) {
	if _, err := s.getGroupMember(ctx, groupID, memberID); err != nil {
		return nil, err
	}

	applied, err := s.repo.UpdateMemberStatus(ctx, memberID, MemberStatusExitRequested, MemberStatusExited)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidStatusChange
	}

	return s.repo.GetMember(ctx, memberID)
}

// Pause suspends collections for an active group
func (s *Service) Pause(ctx context.Context, groupID int64) (*Group, error) {
	return s.transition(ctx, groupID, GroupStatusActive, GroupStatusPaused)
}

// Activate resumes a paused group
func (s *Service) Activate(ctx context.Context, groupID int64) (*Group, error) {
	return s.transition(ctx, groupID, GroupStatusPaused, GroupStatusActive)
}

// Dissolve soft-retires a group. Rows are never deleted so the financial
// history stays auditable.
func (s *Service) Dissolve(ctx context.Context, groupID int64) (*Group, error) {
	group, err := s.transition(ctx, groupID, GroupStatusActive, GroupStatusDissolved)
	if err == nil {
		return group, nil
	}
	if !errors.Is(err, ErrInvalidStatusChange) {
		return nil, err
	}
	return s.transition(ctx, groupID, GroupStatusPaused, GroupStatusDissolved)
}

func (s *Service) transition(ctx context.Context, groupID int64, from, to GroupStatus) (*Group, error) {
	if _, err := s.GetByID(ctx, groupID); err != nil {
		return nil, err
	}

	applied, err := s.repo.UpdateStatus(ctx, groupID, from, to)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidStatusChange
	}

	return s.repo.GetByID(ctx, groupID)
}

func (s *Service) getGroupMember(ctx context.Context, groupID, memberID int64) (*Member, error) {
	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.GroupID != groupID {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

// notifyAdmin writes an in-app notification to the group admin's linked
// account, if one exists.
func (s *Service) notifyAdmin(ctx context.Context, groupID int64, message string, entityID int64) {
	if s.notifier == nil {
		return
	}
	members, err := s.repo.GetMembers(ctx, groupID)
	if err != nil {
		return
	}
	for _, m := range members {
		if m.Role == MemberRoleAdmin && m.AccountID != nil {
			s.notifier.Notify(ctx, *m.AccountID, message, "MEMBER", entityID)
			return
		}
	}
}
