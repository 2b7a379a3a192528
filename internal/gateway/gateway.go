// Package gateway wraps the mobile-money provider's STK push API. The
// provider prompts the member's phone for a PIN; the debit completes (or
// not) asynchronously, so callers initiate with a tracking reference and
// poll for the outcome.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Status is the provider-reported state of an STK push.
type Status string

const (
	StatusProcessing Status = "PROCESSING" // prompt delivered, awaiting PIN entry
	StatusSuccess    Status = "SUCCESS"    // debit completed
	StatusCancelled  Status = "CANCELLED"  // member rejected the prompt
	StatusExpired    Status = "EXPIRED"    // prompt timed out with no PIN entered
	StatusDeclined   Status = "DECLINED"   // insufficient funds or declined by provider
)

// ErrUnreachable indicates the call never reached the provider (network
// failure, timeout before a response). Callers must not treat the debit as
// attempted: the request keeps its prior status and no retry attempt is
// consumed.
var ErrUnreachable = errors.New("gateway unreachable")

// RejectedError is a synchronous rejection from the provider (invalid phone,
// bad credentials). The call reached the provider, so the debit counts as an
// attempt and is recorded as failed.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("gateway rejected request: %s", e.Message)
}

// InitiateResult is the provisional acknowledgement of an STK push.
type InitiateResult struct {
	TrackingRef string `json:"tracking_ref"`
}

// QueryResult is the provider's current view of a previously initiated debit.
type QueryResult struct {
	Status       Status `json:"status"`
	ReceiptID    string `json:"receipt_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Client is the contract consumed by the collection engine. Implementations
// must bound every call with the context deadline.
type Client interface {
	// Initiate sends an STK push to the given phone number. idempotencyRef
	// deduplicates retried calls on the provider side.
	Initiate(ctx context.Context, phone string, amount int64, idempotencyRef string) (*InitiateResult, error)

	// Query returns the current status of a previously initiated debit.
	Query(ctx context.Context, trackingRef string) (*QueryResult, error)
}
