package collection

import (
	"context"
	"log/slog"

	"github.com/jumapesa/chamapay/internal/gateway"
)

// ReconcileCycle queries the gateway for every non-terminal request of the
// cycle, applies the resulting state transitions, and returns the live
// aggregates. It owns no timer: an external scheduler (cmd/poller, or the
// UI's manual refresh) decides the cadence.
//
// Reconciliation is idempotent. Completion applies a request's amount to
// collected_amount through a compare-and-set, so re-reconciling an already
// completed request changes nothing. A cycle with zero requests to
// reconcile is a no-op, not an error.
func (s *Service) ReconcileCycle(ctx context.Context, cycleID int64) (*CycleSummary, error) {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}

	requests, err := s.store.GetCycleRequests(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	for _, req := range requests {
		if req.Status.Terminal() {
			continue
		}
		if req.TrackingRef == nil {
			// Never reached the provider; nothing to query. The request
			// stays pending until a retry re-issues it.
			continue
		}

		result, err := s.gateway.Query(ctx, *req.TrackingRef)
		if err != nil {
			// Transient: leave the last-observed status untouched and let a
			// later poll pick it up.
			slog.Warn("gateway query failed", "request_id", req.ID, "tracking_ref", *req.TrackingRef, "error", err)
			continue
		}

		s.applyGatewayStatus(ctx, req, result)
	}

	// Recount from the store after the transitions.
	requests, err = s.store.GetCycleRequests(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	return summarize(cycleID, requests), nil
}

// applyGatewayStatus maps a provider status onto the request state machine.
// All transitions are compare-and-set; a false result means another caller
// already advanced the row, which is fine.
func (s *Service) applyGatewayStatus(ctx context.Context, req *DebitRequest, result *gateway.QueryResult) {
	var err error

	switch result.Status {
	case gateway.StatusSuccess:
		_, err = s.store.MarkCompleted(ctx, req.ID, result.ReceiptID)
	case gateway.StatusCancelled:
		_, err = s.store.MarkFailed(ctx, req.ID, StatusCancelled, messageOr(result, "member cancelled the prompt"))
	case gateway.StatusExpired:
		_, err = s.store.MarkFailed(ctx, req.ID, StatusExpired, messageOr(result, "prompt timed out with no PIN entered"))
	case gateway.StatusDeclined:
		_, err = s.store.MarkFailed(ctx, req.ID, StatusFailed, messageOr(result, "debit declined by provider"))
	case gateway.StatusProcessing:
		if req.Status == StatusSent {
			_, err = s.store.MarkProcessing(ctx, req.ID)
		}
	default:
		slog.Warn("unknown gateway status", "request_id", req.ID, "status", result.Status)
	}

	if err != nil {
		slog.Error("failed to apply gateway status", "request_id", req.ID, "status", result.Status, "error", err)
	}
}

// ReconcileAll runs one reconciliation pass over every collecting cycle and
// settles the ones that have no open requests left. One cycle failing does
// not stop the pass.
func (s *Service) ReconcileAll(ctx context.Context) error {
	cycles, err := s.store.ListCollectingCycles(ctx)
	if err != nil {
		return err
	}

	for _, cycle := range cycles {
		summary, err := s.ReconcileCycle(ctx, cycle.ID)
		if err != nil {
			slog.Error("failed to reconcile cycle", "cycle_id", cycle.ID, "error", err)
			continue
		}
		if summary.Open() {
			continue
		}
		if _, err := s.Settle(ctx, cycle.ID); err != nil {
			slog.Error("failed to settle cycle", "cycle_id", cycle.ID, "error", err)
		}
	}

	return nil
}

func messageOr(result *gateway.QueryResult, fallback string) string {
	if result.ErrorMessage != "" {
		return result.ErrorMessage
	}
	return fallback
}
