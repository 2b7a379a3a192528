package group

import "time"

// GroupKind determines how contributions are collected and paid out
type GroupKind string

const (
	// KindRotatingSavings pools each cycle's contributions and pays them
	// out to one rotating member (a ROSCA).
	KindRotatingSavings GroupKind = "rotating_savings"
	// KindFixedCollection collects a fixed amount per member per cycle
	// toward the group's purpose; no individual payout.
	KindFixedCollection GroupKind = "fixed_collection"
	// KindPledgeFundraising collects each member's pledged amount once per
	// cycle toward the group's purpose.
	KindPledgeFundraising GroupKind = "pledge_fundraising"
)

// CollectionFrequency is how often a collection cycle runs
type CollectionFrequency string

const (
	FrequencyDaily    CollectionFrequency = "daily"
	FrequencyWeekly   CollectionFrequency = "weekly"
	FrequencyBiweekly CollectionFrequency = "biweekly"
	FrequencyMonthly  CollectionFrequency = "monthly"
)

// RotationPolicy determines how the next payout recipient is chosen
type RotationPolicy string

const (
	// PolicySequential pays out in rotation_position order.
	PolicySequential RotationPolicy = "sequential"
	// PolicyRandomOnce assigns a random permutation of positions at group
	// creation, then behaves as sequential. Positions are never
	// re-randomized afterwards.
	PolicyRandomOnce RotationPolicy = "random_once"
)

// GroupStatus represents the lifecycle state of a group
type GroupStatus string

const (
	GroupStatusActive    GroupStatus = "active"
	GroupStatusPaused    GroupStatus = "paused"
	GroupStatusCompleted GroupStatus = "completed"
	// GroupStatusDissolved is a soft retirement; rows are kept for audit.
	GroupStatusDissolved GroupStatus = "dissolved"
)

// MemberRole represents the role of a group member
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// MemberStatus represents the lifecycle state of a member
type MemberStatus string

const (
	MemberStatusActive MemberStatus = "active"
	// MemberStatusExitRequested members are still billed until the admin
	// approves the exit.
	MemberStatusExitRequested MemberStatus = "exit_requested"
	// MemberStatusExited members keep their rotation_position for audit
	// but are skipped by billing and rotation.
	MemberStatusExited MemberStatus = "exited"
)

// Group represents a contribution circle (chama). All money amounts are
// whole currency units.
type Group struct {
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
	// CurrentRotationIndex is the rotation_position of the last member who
	// received a payout; 0 means nobody has been paid yet.
	CurrentRotationIndex int                 `json:"current_rotation_index"`
	Status               GroupStatus         `json:"status"`
	TotalCollected       int64               `json:"total_collected"`
	TotalDistributed     int64               `json:"total_distributed"`
	CreatedAt            time.Time           `json:"created_at"`
}

// Member represents a participant in exactly one group
type Member struct {
	ID                int64        `json:"id"`
	GroupID           int64        `json:"group_id"`
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
	CreatedAt         time.Time    `json:"created_at"`
}

// Billable reports whether the member should be included in a cycle
// fan-out. Members who requested an exit are still billed until the admin
// approves it.
func (m *Member) Billable() bool {
	return m.Status == MemberStatusActive || m.Status == MemberStatusExitRequested
}
