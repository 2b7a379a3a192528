package collection

import (
	"context"

	"github.com/jumapesa/chamapay/internal/group"
)

// Store persists cycles and debit requests. Status transitions use
// compare-and-set semantics: the update applies only when the row is still
// in the expected prior state, so concurrent poller and retry calls on the
// same request are safe without a global lock. The bool result is false
// when the row had already moved on.
type Store interface {
	// CreateCollectingCycle inserts a new cycle in status=collecting.
	// Returns ErrCollectionInProgress when the group already has one.
	CreateCollectingCycle(ctx context.Context, cycle *Cycle) error

	// GetCycle retrieves a cycle by ID; nil when absent.
	GetCycle(ctx context.Context, id int64) (*Cycle, error)

	// ListCollectingCycles returns every cycle still in status=collecting.
	ListCollectingCycles(ctx context.Context) ([]*Cycle, error)

	// CreateRequest inserts a new debit request.
	CreateRequest(ctx context.Context, req *DebitRequest) error

	// GetRequest retrieves a request by ID; nil when absent.
	GetRequest(ctx context.Context, id int64) (*DebitRequest, error)

	// GetCycleRequests returns all requests of a cycle.
	GetCycleRequests(ctx context.Context, cycleID int64) ([]*DebitRequest, error)

	// MarkSent records the provider's tracking reference: pending -> sent.
	MarkSent(ctx context.Context, id int64, trackingRef string) (bool, error)

	// MarkProcessing records PIN-prompt delivery: sent -> processing.
	MarkProcessing(ctx context.Context, id int64) (bool, error)

	// MarkCompleted finalizes a successful debit: sent/processing ->
	// completed. In the same transaction it adds the request amount to the
	// cycle's collected_amount and the member's total_contributed, so a
	// request is never applied to the aggregates twice.
	MarkCompleted(ctx context.Context, id int64, receiptID string) (bool, error)

	// MarkFailed moves a non-terminal request to a failed-class terminal
	// state with an error message.
	MarkFailed(ctx context.Context, id int64, to RequestStatus, errorMessage string) (bool, error)

	// RearmRequest resets a failed-class request to pending for a fresh
	// attempt, incrementing attempt_count. Guarded on attempt_count <
	// max_attempts.
	RearmRequest(ctx context.Context, id int64, from RequestStatus) (bool, error)

	// SettleCycle finalizes a cycle: collecting -> completed/failed_partial
	// with the recomputed collected amount. False when the cycle was
	// already settled by another caller.
	SettleCycle(ctx context.Context, cycleID int64, to CycleStatus, collected int64) (bool, error)
}

// GroupStore is the slice of the group repository the engine needs.
// Implemented by *group.Repository.
type GroupStore interface {
	GetByID(ctx context.Context, id int64) (*group.Group, error)
	GetMembers(ctx context.Context, groupID int64) ([]*group.Member, error)
	GetMember(ctx context.Context, memberID int64) (*group.Member, error)
	CreditPayout(ctx context.Context, memberID int64, amount int64) error
	AdvanceCycle(ctx context.Context, groupID int64, fromCycle int, rotationIndex int, collected, distributed int64, complete bool) (bool, error)
}

// Notifier records in-app notifications; write failures are logged by the
// implementation, never returned.
type Notifier interface {
	Notify(ctx context.Context, recipientAccountID int64, message string, entityType string, entityID int64)
}
