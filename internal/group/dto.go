package group

// NewMemberRequest describes one member to add to a group
type NewMemberRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Phone        string `json:"phone" validate:"required,e164"`
	AccountID    *int64 `json:"account_id,omitempty"`
	PledgeAmount *int64 `json:"pledge_amount,omitempty" validate:"omitempty,gt=0"`
}

// CreateGroupRequest represents the request to create a new group. The
// founder becomes the first member with role=admin; initial members may be
// supplied inline (bulk import at creation).
type CreateGroupRequest struct {
	Name                string              `json:"name" validate:"required,min=1,max=100"`
	Kind                GroupKind           `json:"kind" validate:"required,oneof=rotating_savings fixed_collection pledge_fundraising"`
	ContributionAmount  int64               `json:"contribution_amount" validate:"gte=0"`
	Currency            string              `json:"currency" validate:"omitempty,len=3"`
	CollectionFrequency CollectionFrequency `json:"collection_frequency" validate:"omitempty,oneof=daily weekly biweekly monthly"`
	CollectionDay       int                 `json:"collection_day" validate:"gte=0,lte=31"`
	RotationPolicy      RotationPolicy      `json:"rotation_policy" validate:"omitempty,oneof=sequential random_once"`
	TotalCycles         *int                `json:"total_cycles,omitempty" validate:"omitempty,gt=0"`
	Founder             NewMemberRequest    `json:"founder" validate:"required"`
	Members             []NewMemberRequest  `json:"members,omitempty" validate:"dive"`
}

// BulkAddMembersRequest adds several members to an existing group at once
type BulkAddMembersRequest struct {
	Members []NewMemberRequest `json:"members" validate:"required,min=1,dive"`
}

// BulkAddResult reports the outcome of one entry in a bulk import. One bad
// entry never blocks the rest.
type BulkAddResult struct {
	Phone  string          `json:"phone"`
	Member *MemberResponse `json:"member,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// GroupResponse represents the response for a group
type GroupResponse struct {
	ID                   int64               `json:"id"`
	Name                 string              `json:"name"`
	Kind                 GroupKind           `json:"kind"`
	ContributionAmount   int64               `json:"contribution_amount"`
	Currency             string              `json:"currency"`
	CollectionFrequency  CollectionFrequency `json:"collection_frequency"`
	CollectionDay        int                 `json:"collection_day"`
	RotationPolicy       RotationPolicy      `json:"rotation_policy"`
	TotalCycles          *int                `json:"total_cycles,omitempty"`
	CurrentCycle         int                 `json:"current_cycle"`
	CurrentRotationIndex int                 `json:"current_rotation_index"`
	Status               GroupStatus         `json:"status"`
	TotalCollected       int64               `json:"total_collected"`
	TotalDistributed     int64               `json:"total_distributed"`
	CreatedAt            string              `json:"created_at"`
	Members              []*MemberResponse   `json:"members,omitempty"`
}

// MemberResponse represents a member in a group response
type MemberResponse struct {
	ID                int64        `json:"id"`
	AccountID         *int64       `json:"account_id,omitempty"`
	Name              string       `json:"name"`
	Phone             string       `json:"phone"`
	Role              MemberRole   `json:"role"`
	RotationPosition  int          `json:"rotation_position"`
	Status            MemberStatus `json:"status"`
	TotalContributed  int64        `json:"total_contributed"`
	TotalReceived     int64        `json:"total_received"`
	HasReceivedPayout bool         `json:"has_received_payout"`
	PledgeAmount      *int64       `json:"pledge_amount,omitempty"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:                   g.ID,
		Name:                 g.Name,
		Kind:                 g.Kind,
		ContributionAmount:   g.ContributionAmount,
		Currency:             g.Currency,
		CollectionFrequency:  g.CollectionFrequency,
		CollectionDay:        g.CollectionDay,
		RotationPolicy:       g.RotationPolicy,
		TotalCycles:          g.TotalCycles,
		CurrentCycle:         g.CurrentCycle,
		CurrentRotationIndex: g.CurrentRotationIndex,
		Status:               g.Status,
		TotalCollected:       g.TotalCollected,
		TotalDistributed:     g.TotalDistributed,
		CreatedAt:            g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Member model to a MemberResponse DTO
func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:                m.ID,
		AccountID:         m.AccountID,
		Name:              m.Name,
		Phone:             m.Phone,
		Role:              m.Role,
		RotationPosition:  m.RotationPosition,
		Status:            m.Status,
		TotalContributed:  m.TotalContributed,
		TotalReceived:     m.TotalReceived,
		HasReceivedPayout: m.HasReceivedPayout,
		PledgeAmount:      m.PledgeAmount,
	}
}
