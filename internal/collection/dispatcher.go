package collection

import (
	"context"
	"log/slog"

	"github.com/jumapesa/chamapay/internal/group"
)

// StartCollection launches a collection cycle for a group: one DebitRequest
// per billable member, with the STK pushes issued concurrently. Partial
// success is the expected common case; a member whose push fails is
// recorded as failed while everyone else proceeds.
//
// At most one collection may be in progress per group; a second call while
// a cycle is collecting fails with ErrCollectionInProgress.
func (s *Service) StartCollection(ctx context.Context, groupID int64) (*Cycle, []*DebitRequest, error) {
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, group.ErrGroupNotFound
	}
	if g.Status != group.GroupStatusActive {
		return nil, nil, ErrGroupNotActive
	}

	members, err := s.groups.GetMembers(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	// Exit-requested members are still billed until the exit is approved;
	// exited members are excluded. The admin contributes like everyone
	// else.
	var billable []*group.Member
	for _, m := range members {
		if m.Billable() {
			billable = append(billable, m)
		}
	}
	if len(billable) == 0 {
		return nil, nil, ErrNoBillableMembers
	}

	// Designate the payout recipient up front so the cycle row records who
	// this round is for. Non-rotating kinds have no single recipient.
	var recipientID *int64
	if g.Kind == group.KindRotatingSavings {
		strategy, err := s.rotation.ForGroup(g)
		if err != nil {
			return nil, nil, err
		}
		recipient, err := strategy.NextRecipient(g, members)
		if err != nil {
			return nil, nil, err
		}
		recipientID = &recipient.ID
	}

	var expected int64
	for _, m := range billable {
		expected += amountFor(g, m)
	}

	cycle := &Cycle{
		GroupID:           groupID,
		CycleNumber:       g.CurrentCycle,
		ExpectedAmount:    expected,
		RecipientMemberID: recipientID,
		Status:            CycleStatusCollecting,
	}
	if err := s.store.CreateCollectingCycle(ctx, cycle); err != nil {
		return nil, nil, err
	}

	requests := make([]*DebitRequest, 0, len(billable))
	for _, m := range billable {
		req := &DebitRequest{
			CycleID:      cycle.ID,
			MemberID:     m.ID,
			Phone:        m.Phone,
			Amount:       amountFor(g, m),
			Status:       StatusPending,
			AttemptCount: 1,
			MaxAttempts:  3,
		}
		if err := s.store.CreateRequest(ctx, req); err != nil {
			// The cycle row exists; surviving requests are still dispatched
			// and the missing member shows up in the aggregates.
			slog.Error("failed to create debit request", "cycle_id", cycle.ID, "member_id", m.ID, "error", err)
			continue
		}
		requests = append(requests, req)
	}

	s.fanOut(ctx, requests)

	// Reload so callers see the post-dispatch statuses.
	requests, err = s.store.GetCycleRequests(ctx, cycle.ID)
	if err != nil {
		return nil, nil, err
	}

	slog.Info("collection started",
		"group_id", groupID,
		"cycle_id", cycle.ID,
		"cycle_number", cycle.CycleNumber,
		"requests", len(requests),
		"expected_amount", expected,
	)

	return cycle, requests, nil
}
