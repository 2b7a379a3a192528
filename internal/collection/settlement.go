package collection

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jumapesa/chamapay/internal/group"
)

// Settle finalizes a cycle once every request has reached a terminal
// state. For rotating_savings the pooled amount is credited to the cycle's
// designated recipient and the rotation advances; other kinds credit the
// group aggregate only. The group's current_cycle increments, completing
// the group when total_cycles is reached.
//
// Settling an already-settled cycle is a no-op: settlement may be
// triggered by multiple poll ticks racing, and the cycle's terminal status
// is the idempotency gate.
func (s *Service) Settle(ctx context.Context, cycleID int64) (*Cycle, error) {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	if cycle.Status.Terminal() {
		return cycle, nil
	}

	// Re-check live request state rather than trusting a cached counter:
	// settlement must run strictly after the last request went terminal.
	requests, err := s.store.GetCycleRequests(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	summary := summarize(cycleID, requests)
	if summary.Open() {
		return nil, ErrCycleStillCollecting
	}

	// Recompute from the source of truth, not the incrementally maintained
	// cycle counter, to guard against double-counting bugs.
	var collected int64
	for _, req := range requests {
		if req.Status == StatusCompleted {
			collected += req.Amount
		}
	}

	g, err := s.groups.GetByID(ctx, cycle.GroupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, group.ErrGroupNotFound
	}

	cycleStatus := CycleStatusFailedPartial
	if summary.AllCompleted() {
		cycleStatus = CycleStatusCompleted
	}

	// The cycle row is the idempotency gate: whoever wins this
	// compare-and-set applies the group and member effects exactly once.
	applied, err := s.store.SettleCycle(ctx, cycleID, cycleStatus, collected)
	if err != nil {
		return nil, err
	}
	if !applied {
		return s.store.GetCycle(ctx, cycleID)
	}

	var distributed int64
	rotationIndex := g.CurrentRotationIndex
	var recipient *group.Member

	if g.Kind == group.KindRotatingSavings && cycle.RecipientMemberID != nil && collected > 0 {
		recipient, err = s.groups.GetMember(ctx, *cycle.RecipientMemberID)
		if err != nil {
			return nil, err
		}
		if recipient == nil {
			return nil, fmt.Errorf("cycle recipient %d not found", *cycle.RecipientMemberID)
		}

		if err := s.groups.CreditPayout(ctx, recipient.ID, collected); err != nil {
			return nil, err
		}
		distributed = collected
		rotationIndex = recipient.RotationPosition
	}

	complete := g.TotalCycles != nil && cycle.CycleNumber >= *g.TotalCycles
	advanced, err := s.groups.AdvanceCycle(ctx, g.ID, cycle.CycleNumber, rotationIndex, collected, distributed, complete)
	if err != nil {
		return nil, err
	}
	if !advanced {
		// Another settle already moved the group on; the cycle effects
		// above were still applied exactly once.
		slog.Warn("group already advanced past cycle", "group_id", g.ID, "cycle_number", cycle.CycleNumber)
	}

	if recipient != nil && s.notifier != nil && recipient.AccountID != nil {
		s.notifier.Notify(ctx, *recipient.AccountID,
			fmt.Sprintf("You received a payout of %d %s from %s", collected, g.Currency, g.Name),
			"CYCLE", cycleID)
	}

	slog.Info("cycle settled",
		"cycle_id", cycleID,
		"group_id", g.ID,
		"status", cycleStatus,
		"collected", collected,
		"distributed", distributed,
	)

	return s.store.GetCycle(ctx, cycleID)
}
