// Package rotation selects the next payout recipient for a group's cycle.
package rotation

import (
	"errors"
	"fmt"

	"github.com/jumapesa/chamapay/internal/group"
)

var (
	// ErrNoEligibleMember means the group kind has no rotation recipient
	// (fixed_collection, pledge_fundraising): settlement credits the group
	// aggregate only.
	ErrNoEligibleMember = errors.New("no eligible rotation recipient")
	// ErrInsufficientMembers means fewer than 2 active members remain.
	ErrInsufficientMembers = errors.New("fewer than 2 active members remain")
)

// Strategy picks the next payout recipient from a group's member roster.
// Implementations must be deterministic given (group.CurrentRotationIndex,
// roster) so the outcome is reproducible.
type Strategy interface {
	// NextRecipient returns the member who receives the next payout.
	NextRecipient(g *group.Group, members []*group.Member) (*group.Member, error)

	// Policy returns the policy identifier for this strategy
	Policy() group.RotationPolicy
}

// Factory creates rotation strategies based on the group's policy
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy implementation for the given policy
func (f *Factory) Create(policy group.RotationPolicy) (Strategy, error) {
	switch policy {
	case group.PolicySequential:
		return &SequentialStrategy{}, nil
	case group.PolicyRandomOnce:
		return &RandomOnceStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown rotation policy: %s", policy)
	}
}

// ForGroup returns the strategy configured on the group
func (f *Factory) ForGroup(g *group.Group) (Strategy, error) {
	return f.Create(g.RotationPolicy)
}

// nextByPosition is the shared selection: the active member with the
// smallest rotation_position strictly greater than the last recipient's
// position, wrapping to the smallest active position when none is found.
// Exited and exit-requested members are skipped by continuing forward.
func nextByPosition(g *group.Group, members []*group.Member) (*group.Member, error) {
	if g.Kind != group.KindRotatingSavings {
		return nil, ErrNoEligibleMember
	}

	var active []*group.Member
	for _, m := range members {
		if m.Status == group.MemberStatusActive {
			active = append(active, m)
		}
	}
	if len(active) < 2 {
		return nil, ErrInsufficientMembers
	}

	var next, first *group.Member
	for _, m := range active {
		if first == nil || m.RotationPosition < first.RotationPosition {
			first = m
		}
		if m.RotationPosition > g.CurrentRotationIndex {
			if next == nil || m.RotationPosition < next.RotationPosition {
				next = m
			}
		}
	}
	if next == nil {
		// Past the last position: wrap to the start of the rotation.
		next = first
	}

	return next, nil
}
