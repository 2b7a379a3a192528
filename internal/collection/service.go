package collection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jumapesa/chamapay/internal/gateway"
	"github.com/jumapesa/chamapay/internal/group"
	"github.com/jumapesa/chamapay/internal/group/rotation"
)

const defaultFanOutLimit = 8

// Service orchestrates collection cycles: fan-out dispatch, status
// reconciliation, retries, and settlement.
type Service struct {
	store    Store
	groups   GroupStore
	gateway  gateway.Client
	rotation *rotation.Factory
	notifier Notifier

	// fanOutLimit caps concurrent gateway calls during fan-out and bulk
	// retry so a large group cannot overwhelm the provider.
	fanOutLimit int
}

// NewService creates a new collection service. notifier may be nil.
func NewService(store Store, groups GroupStore, gw gateway.Client, notifier Notifier, fanOutLimit int) *Service {
	if fanOutLimit <= 0 {
		fanOutLimit = defaultFanOutLimit
	}
	return &Service{
		store:       store,
		groups:      groups,
		gateway:     gw,
		rotation:    rotation.NewFactory(),
		notifier:    notifier,
		fanOutLimit: fanOutLimit,
	}
}

// issueDebit sends the STK push for one request and records the outcome.
// Each request is independent: a gateway failure here never affects any
// other member's request.
func (s *Service) issueDebit(ctx context.Context, req *DebitRequest) {
	result, err := s.gateway.Initiate(ctx, req.Phone, req.Amount, uuid.New().String())
	switch {
	case err == nil:
		if _, err := s.store.MarkSent(ctx, req.ID, result.TrackingRef); err != nil {
			slog.Error("failed to record sent status", "request_id", req.ID, "error", err)
		}
	case errors.Is(err, gateway.ErrUnreachable):
		// The call never reached the provider. Keep the prior status so a
		// caller-driven retry does not burn an attempt for a network blip.
		slog.Warn("gateway unreachable during initiate", "request_id", req.ID, "error", err)
	default:
		msg := err.Error()
		var rejected *gateway.RejectedError
		if errors.As(err, &rejected) {
			msg = rejected.Message
		}
		if _, err := s.store.MarkFailed(ctx, req.ID, StatusFailed, msg); err != nil {
			slog.Error("failed to record failed status", "request_id", req.ID, "error", err)
		}
	}
}

// fanOut issues the debits concurrently with a bounded number in flight
func (s *Service) fanOut(ctx context.Context, requests []*DebitRequest) {
	sem := make(chan struct{}, s.fanOutLimit)
	var wg sync.WaitGroup
	for _, req := range requests {
		wg.Add(1)
		sem <- struct{}{}
		go func(req *DebitRequest) {
			defer wg.Done()
			defer func() { <-sem }()
			s.issueDebit(ctx, req)
		}(req)
	}
	wg.Wait()
}

// amountFor returns what one member owes for a cycle
func amountFor(g *group.Group, m *group.Member) int64 {
	if g.Kind == group.KindPledgeFundraising {
		if m.PledgeAmount != nil {
			return *m.PledgeAmount
		}
		return 0
	}
	return g.ContributionAmount
}
