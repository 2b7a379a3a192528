package collection

import (
	"context"
	"sync"
)

// RetryOne re-issues the debit for a single request. Valid when the
// request is in a failed-class terminal state with attempts remaining, or
// still pending because the original dispatch never reached the provider
// (that case consumes no attempt). The retry re-arms the request as a
// fresh attempt with the same amount and phone number; history is never
// mutated silently. Requests of a settled cycle are never retried: the
// settlement already distributed what was collected.
func (s *Service) RetryOne(ctx context.Context, requestID int64) (*DebitRequest, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	cycle, err := s.store.GetCycle(ctx, req.CycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	if cycle.Status.Terminal() {
		return nil, ErrCycleSettled
	}

	switch {
	case req.Status == StatusPending && req.TrackingRef == nil:
		// The push was never attempted on the provider; re-issue without
		// consuming an attempt.
		s.issueDebit(ctx, req)
		return s.store.GetRequest(ctx, requestID)

	case req.Status.FailedClass():
		if req.AttemptCount >= req.MaxAttempts {
			return nil, ErrMaxAttemptsExceeded
		}
		applied, err := s.store.RearmRequest(ctx, requestID, req.Status)
		if err != nil {
			return nil, err
		}
		if !applied {
			return nil, ErrStaleState
		}

		rearmed, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return nil, err
		}
		s.issueDebit(ctx, rearmed)
		return s.store.GetRequest(ctx, requestID)

	default:
		return nil, ErrNotRetryable
	}
}

// RetryOutcome reports one request's result in a bulk retry
type RetryOutcome struct {
	RequestID int64         `json:"request_id"`
	Status    RequestStatus `json:"status,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// RetryAllFailed retries every failed-class request in the cycle. Requests
// are independent: a failure retrying one member never aborts the rest.
func (s *Service) RetryAllFailed(ctx context.Context, cycleID int64) ([]*RetryOutcome, error) {
	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, ErrCycleNotFound
	}
	if cycle.Status.Terminal() {
		return nil, ErrCycleSettled
	}

	requests, err := s.store.GetCycleRequests(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	var retryable []*DebitRequest
	for _, req := range requests {
		if req.Status.FailedClass() {
			retryable = append(retryable, req)
		}
	}

	outcomes := make([]*RetryOutcome, len(retryable))
	sem := make(chan struct{}, s.fanOutLimit)
	var wg sync.WaitGroup
	for i, req := range retryable {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, requestID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := &RetryOutcome{RequestID: requestID}
			retried, err := s.RetryOne(ctx, requestID)
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Status = retried.Status
			}
			outcomes[i] = outcome
		}(i, req.ID)
	}
	wg.Wait()

	return outcomes, nil
}
