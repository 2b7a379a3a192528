package rotation

import "github.com/jumapesa/chamapay/internal/group"

// SequentialStrategy pays out in rotation_position order (join order).
type SequentialStrategy struct{}

// Policy returns the policy identifier
func (s *SequentialStrategy) Policy() group.RotationPolicy {
	return group.PolicySequential
}

// NextRecipient returns the active member whose rotation_position follows
// the last payout recipient's, wrapping to the first position.
func (s *SequentialStrategy) NextRecipient(g *group.Group, members []*group.Member) (*group.Member, error) {
	return nextByPosition(g, members)
}
