package rotation

import "github.com/jumapesa/chamapay/internal/group"

// RandomOnceStrategy behaves exactly as sequential: the randomness happened
// once, when the permutation of rotation positions was assigned at group
// creation. The policy never re-randomizes, so fairness holds for the
// group's whole lifetime without re-deriving it per cycle.
type RandomOnceStrategy struct{}

// Policy returns the policy identifier
func (s *RandomOnceStrategy) Policy() group.RotationPolicy {
	return group.PolicyRandomOnce
}

// NextRecipient returns the active member at the next assigned position.
func (s *RandomOnceStrategy) NextRecipient(g *group.Group, members []*group.Member) (*group.Member, error) {
	return nextByPosition(g, members)
}
