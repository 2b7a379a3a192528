package collection

import (
	"context"
	"errors"
	"testing"

	"github.com/jumapesa/chamapay/internal/gateway"
	"github.com/jumapesa/chamapay/internal/group"
)

func seedRequest(t *testing.T, store *fakeStore, status RequestStatus, attempts int) *DebitRequest {
	t.Helper()

	cycle, err := store.GetCycle(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetCycle() error: %v", err)
	}
	if cycle == nil {
		cycle = &Cycle{GroupID: 1, CycleNumber: 1, ExpectedAmount: 5000}
		if err := store.CreateCollectingCycle(context.Background(), cycle); err != nil {
			t.Fatalf("CreateCollectingCycle() error: %v", err)
		}
	}

	req := &DebitRequest{
		CycleID:      cycle.ID,
		MemberID:     1,
		Phone:        "254700000001",
		Amount:       5000,
		Status:       status,
		AttemptCount: attempts,
		MaxAttempts:  3,
	}
	if err := store.CreateRequest(context.Background(), req); err != nil {
		t.Fatalf("CreateRequest() error: %v", err)
	}
	return req
}

func retryService(store *fakeStore, gw *fakeGateway) *Service {
	g := testGroup(group.KindRotatingSavings)
	groups := newFakeGroups(g, testMember(1, 1, group.MemberStatusActive))
	return NewService(store, groups, gw, nil, 4)
}

func TestRetryOneReissuesUnreachedPendingWithoutBurningAttempt(t *testing.T) {
	store := newFakeStore()
	gw := newFakeGateway()
	svc := retryService(store, gw)
	req := seedRequest(t, store, StatusPending, 1)

	retried, err := svc.RetryOne(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("RetryOne() error: %v", err)
	}

	if retried.Status != StatusSent {
		t.Errorf("status = %s, want sent", retried.Status)
	}
	if retried.AttemptCount != 1 {
		t.Errorf("attempt_count = %d, want 1 (re-issue consumes no attempt)", retried.AttemptCount)
	}
	if retried.TrackingRef == nil {
		t.Error("tracking ref not recorded")
	}
}

func TestRetryOneRearmsFailedRequest(t *testing.T) {
	for _, from := range []RequestStatus{StatusFailed, StatusExpired, StatusCancelled} {
		t.Run(string(from), func(t *testing.T) {
			store := newFakeStore()
			gw := newFakeGateway()
			svc := retryService(store, gw)
			req := seedRequest(t, store, from, 1)

			retried, err := svc.RetryOne(context.Background(), req.ID)
			if err != nil {
				t.Fatalf("RetryOne() error: %v", err)
			}

			if retried.Status != StatusSent {
				t.Errorf("status = %s, want sent", retried.Status)
			}
			if retried.AttemptCount != 2 {
				t.Errorf("attempt_count = %d, want 2", retried.AttemptCount)
			}
		})
	}
}

func TestRetryOneAtMaxAttempts(t *testing.T) {
	store := newFakeStore()
	gw := newFakeGateway()
	svc := retryService(store, gw)
	req := seedRequest(t, store, StatusFailed, 3)

	_, err := svc.RetryOne(context.Background(), req.ID)
	if !errors.Is(err, ErrMaxAttemptsExceeded) {
		t.Fatalf("error = %v, want ErrMaxAttemptsExceeded", err)
	}

	// The request must be exactly as it was: no extra attempt, no status
	// change, no gateway call.
	fresh, _ := store.GetRequest(context.Background(), req.ID)
	if fresh.Status != StatusFailed || fresh.AttemptCount != 3 {
		t.Errorf("request mutated: status=%s attempts=%d", fresh.Status, fresh.AttemptCount)
	}
	if len(gw.initiateCalls) != 0 {
		t.Errorf("gateway called %d times, want 0", len(gw.initiateCalls))
	}
}

func TestRetryOneNotRetryable(t *testing.T) {
	tests := []struct {
		name   string
		status RequestStatus
		ref    bool
	}{
		{"completed", StatusCompleted, true},
		{"sent", StatusSent, true},
		{"processing", StatusProcessing, true},
		{"pending with tracking ref", StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := retryService(store, newFakeGateway())
			req := seedRequest(t, store, tt.status, 1)
			if tt.ref {
				store.mu.Lock()
				ref := "ref-254700000001"
				store.requests[req.ID].TrackingRef = &ref
				store.mu.Unlock()
			}

			if _, err := svc.RetryOne(context.Background(), req.ID); !errors.Is(err, ErrNotRetryable) {
				t.Errorf("error = %v, want ErrNotRetryable", err)
			}
		})
	}
}

func TestRetryOneNotFound(t *testing.T) {
	svc := retryService(newFakeStore(), newFakeGateway())
	if _, err := svc.RetryOne(context.Background(), 99); !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("error = %v, want ErrRequestNotFound", err)
	}
}

func TestRetryOneFailedAgainRecordsOutcome(t *testing.T) {
	store := newFakeStore()
	gw := newFakeGateway()
	gw.initiateErr["254700000001"] = &gateway.RejectedError{Message: "subscriber unreachable"}
	svc := retryService(store, gw)
	req := seedRequest(t, store, StatusFailed, 1)

	retried, err := svc.RetryOne(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("RetryOne() error: %v", err)
	}

	// The retry itself succeeded; the fresh attempt failed at the provider.
	if retried.Status != StatusFailed {
		t.Errorf("status = %s, want failed", retried.Status)
	}
	if retried.AttemptCount != 2 {
		t.Errorf("attempt_count = %d, want 2", retried.AttemptCount)
	}
}

func TestRetryAllFailedRetriesOnlyFailedClass(t *testing.T) {
	g := testGroup(group.KindRotatingSavings)
	members := []*group.Member{
		testMember(1, 1, group.MemberStatusActive),
		testMember(2, 2, group.MemberStatusActive),
		testMember(3, 3, group.MemberStatusActive),
		testMember(4, 4, group.MemberStatusActive),
	}
	groups := newFakeGroups(g, members...)
	store := newFakeStore()
	gw := newFakeGateway()
	gw.initiateErr[members[1].Phone] = &gateway.RejectedError{Message: "declined"}
	gw.initiateErr[members[2].Phone] = &gateway.RejectedError{Message: "declined"}
	svc := NewService(store, groups, gw, nil, 4)

	cycle, _, err := svc.StartCollection(context.Background(), 1)
	if err != nil {
		t.Fatalf("StartCollection() error: %v", err)
	}

	// Second attempt succeeds for member 2 but not member 3.
	gw.mu.Lock()
	delete(gw.initiateErr, members[1].Phone)
	gw.mu.Unlock()

	outcomes, err := svc.RetryAllFailed(context.Background(), cycle.ID)
	if err != nil {
		t.Fatalf("RetryAllFailed() error: %v", err)
	}

	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2 (only the failed requests)", len(outcomes))
	}

	requests, _ := store.GetCycleRequests(context.Background(), cycle.ID)
	byMember := make(map[int64]*DebitRequest)
	for _, req := range requests {
		byMember[req.MemberID] = req
	}

	if byMember[2].Status != StatusSent || byMember[2].AttemptCount != 2 {
		t.Errorf("member 2: status=%s attempts=%d, want sent/2", byMember[2].Status, byMember[2].AttemptCount)
	}
	if byMember[3].Status != StatusFailed || byMember[3].AttemptCount != 2 {
		t.Errorf("member 3: status=%s attempts=%d, want failed/2", byMember[3].Status, byMember[3].AttemptCount)
	}
	// Healthy requests untouched.
	if byMember[1].AttemptCount != 1 || byMember[4].AttemptCount != 1 {
		t.Errorf("untouched members gained attempts: m1=%d m4=%d", byMember[1].AttemptCount, byMember[4].AttemptCount)
	}
}

func TestRetryRejectedAfterSettlement(t *testing.T) {
	// Once a cycle settles, its aggregates are final: the payout was
	// computed from what had been collected. A late retry would debit a
	// member for money the settlement can never distribute.
	g := testGroup(group.KindRotatingSavings)
	members := []*group.Member{
		testMember(1, 1, group.MemberStatusActive),
		testMember(2, 2, group.MemberStatusActive),
		testMember(3, 3, group.MemberStatusActive),
	}
	groups := newFakeGroups(g, members...)
	store := newFakeStore()
	gw := newFakeGateway()
	gw.initiateErr[members[2].Phone] = &gateway.RejectedError{Message: "declined"}
	svc := NewService(store, groups, gw, nil, 4)
	ctx := context.Background()

	cycle, _, err := svc.StartCollection(ctx, 1)
	if err != nil {
		t.Fatalf("StartCollection() error: %v", err)
	}
	gw.scriptSuccess(members[0].Phone, "RCP001")
	gw.scriptSuccess(members[1].Phone, "RCP002")
	if _, err := svc.ReconcileCycle(ctx, cycle.ID); err != nil {
		t.Fatalf("ReconcileCycle() error: %v", err)
	}
	settled, err := svc.Settle(ctx, cycle.ID)
	if err != nil {
		t.Fatalf("Settle() error: %v", err)
	}
	if settled.Status != CycleStatusFailedPartial || settled.CollectedAmount != 10000 {
		t.Fatalf("settled cycle = %s/%d, want failed_partial/10000", settled.Status, settled.CollectedAmount)
	}

	requests, _ := store.GetCycleRequests(ctx, cycle.ID)
	var failed *DebitRequest
	for _, req := range requests {
		if req.Status == StatusFailed {
			failed = req
		}
	}
	if failed == nil {
		t.Fatal("no failed request to retry")
	}

	gw.mu.Lock()
	delete(gw.initiateErr, members[2].Phone)
	calls := len(gw.initiateCalls)
	gw.mu.Unlock()

	if _, err := svc.RetryOne(ctx, failed.ID); !errors.Is(err, ErrCycleSettled) {
		t.Fatalf("RetryOne() error = %v, want ErrCycleSettled", err)
	}
	if _, err := svc.RetryAllFailed(ctx, cycle.ID); !errors.Is(err, ErrCycleSettled) {
		t.Fatalf("RetryAllFailed() error = %v, want ErrCycleSettled", err)
	}

	fresh, _ := store.GetRequest(ctx, failed.ID)
	if fresh.Status != StatusFailed || fresh.AttemptCount != failed.AttemptCount {
		t.Errorf("request mutated: status=%s attempts=%d", fresh.Status, fresh.AttemptCount)
	}
	after, _ := store.GetCycle(ctx, cycle.ID)
	if after.CollectedAmount != 10000 {
		t.Errorf("collected = %d, want 10000 (settled aggregates are immutable)", after.CollectedAmount)
	}
	gw.mu.Lock()
	if len(gw.initiateCalls) != calls {
		t.Errorf("gateway called %d more times, want 0", len(gw.initiateCalls)-calls)
	}
	gw.mu.Unlock()
}

func TestRetryAllFailedCycleNotFound(t *testing.T) {
	svc := retryService(newFakeStore(), newFakeGateway())
	if _, err := svc.RetryAllFailed(context.Background(), 7); !errors.Is(err, ErrCycleNotFound) {
		t.Errorf("error = %v, want ErrCycleNotFound", err)
	}
}
