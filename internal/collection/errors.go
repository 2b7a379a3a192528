package collection

import "errors"

// Common errors
var (
	ErrCycleNotFound   = errors.New("cycle not found")
	ErrRequestNotFound = errors.New("debit request not found")
	ErrGroupNotActive  = errors.New("group is not active")

	// ErrCollectionInProgress enforces the at-most-one-concurrent-collection
	// invariant: a group cannot start a new cycle while one is collecting.
	ErrCollectionInProgress = errors.New("a collection is already in progress for this group")

	// ErrNoBillableMembers means every member of the group has exited.
	ErrNoBillableMembers = errors.New("group has no billable members")

	// ErrMaxAttemptsExceeded means the request has used all its attempts.
	// Callers must surface this, not silently drop the request.
	ErrMaxAttemptsExceeded = errors.New("request has exhausted its retry attempts")

	// ErrNotRetryable means the request is not in a failed terminal state.
	ErrNotRetryable = errors.New("request is not in a retryable state")

	// ErrCycleStillCollecting rejects settlement while any request still
	// awaits a terminal state.
	ErrCycleStillCollecting = errors.New("cycle still has requests awaiting a terminal state")

	// ErrCycleSettled rejects retries against a cycle that already reached
	// a terminal status. Settled aggregates are immutable; a late debit
	// would collect money the settlement can never distribute.
	ErrCycleSettled = errors.New("cycle has already been settled")

	// ErrStaleState means a conditional update found the row already
	// advanced by another caller.
	ErrStaleState = errors.New("row was modified by another caller")
)
