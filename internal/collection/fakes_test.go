package collection

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jumapesa/chamapay/internal/gateway"
	"github.com/jumapesa/chamapay/internal/group"
)

// fakeStore is an in-memory Store with the same compare-and-set semantics
// as the SQL repository.
type fakeStore struct {
	mu          sync.Mutex
	cycles      map[int64]*Cycle
	requests    map[int64]*DebitRequest
	nextCycle   int64
	nextRequest int64
}

var _ Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		cycles:   make(map[int64]*Cycle),
		requests: make(map[int64]*DebitRequest),
	}
}

func copyCycle(c *Cycle) *Cycle {
	out := *c
	if c.RecipientMemberID != nil {
		v := *c.RecipientMemberID
		out.RecipientMemberID = &v
	}
	if c.SettledAt != nil {
		v := *c.SettledAt
		out.SettledAt = &v
	}
	return &out
}

func copyRequest(r *DebitRequest) *DebitRequest {
	out := *r
	if r.TrackingRef != nil {
		v := *r.TrackingRef
		out.TrackingRef = &v
	}
	if r.ReceiptID != nil {
		v := *r.ReceiptID
		out.ReceiptID = &v
	}
	if r.ErrorMessage != nil {
		v := *r.ErrorMessage
		out.ErrorMessage = &v
	}
	return &out
}

func (s *fakeStore) CreateCollectingCycle(ctx context.Context, cycle *Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.cycles {
		if existing.GroupID == cycle.GroupID && existing.Status == CycleStatusCollecting {
			return ErrCollectionInProgress
		}
	}

	s.nextCycle++
	cycle.ID = s.nextCycle
	cycle.Status = CycleStatusCollecting
	cycle.CreatedAt = time.Now()
	s.cycles[cycle.ID] = copyCycle(cycle)
	return nil
}

func (s *fakeStore) GetCycle(ctx context.Context, id int64) (*Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle, ok := s.cycles[id]
	if !ok {
		return nil, nil
	}
	return copyCycle(cycle), nil
}

func (s *fakeStore) ListCollectingCycles(ctx context.Context) ([]*Cycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cycles []*Cycle
	for _, cycle := range s.cycles {
		if cycle.Status == CycleStatusCollecting {
			cycles = append(cycles, copyCycle(cycle))
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i].ID < cycles[j].ID })
	return cycles, nil
}

func (s *fakeStore) CreateRequest(ctx context.Context, req *DebitRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextRequest++
	req.ID = s.nextRequest
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func (s *fakeStore) GetRequest(ctx context.Context, id int64) (*DebitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return copyRequest(req), nil
}

func (s *fakeStore) GetCycleRequests(ctx context.Context, cycleID int64) ([]*DebitRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var requests []*DebitRequest
	for _, req := range s.requests {
		if req.CycleID == cycleID {
			requests = append(requests, copyRequest(req))
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].ID < requests[j].ID })
	return requests, nil
}

func (s *fakeStore) MarkSent(ctx context.Context, id int64, trackingRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != StatusPending {
		return false, nil
	}
	req.Status = StatusSent
	req.TrackingRef = &trackingRef
	req.ErrorMessage = nil
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != StatusSent {
		return false, nil
	}
	req.Status = StatusProcessing
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) MarkCompleted(ctx context.Context, id int64, receiptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || (req.Status != StatusSent && req.Status != StatusProcessing) {
		return false, nil
	}
	req.Status = StatusCompleted
	req.ReceiptID = &receiptID
	req.ErrorMessage = nil
	req.UpdatedAt = time.Now()

	if cycle, ok := s.cycles[req.CycleID]; ok && cycle.Status == CycleStatusCollecting {
		cycle.CollectedAmount += req.Amount
	}
	return true, nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, to RequestStatus, errorMessage string) (bool, error) {
	if !to.FailedClass() {
		return false, fmt.Errorf("invalid failed-class status: %s", to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status.Terminal() {
		return false, nil
	}
	req.Status = to
	req.ErrorMessage = &errorMessage
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) RearmRequest(ctx context.Context, id int64, from RequestStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok || req.Status != from || req.AttemptCount >= req.MaxAttempts {
		return false, nil
	}
	req.Status = StatusPending
	req.TrackingRef = nil
	req.ReceiptID = nil
	req.AttemptCount++
	req.UpdatedAt = time.Now()
	return true, nil
}

func (s *fakeStore) SettleCycle(ctx context.Context, cycleID int64, to CycleStatus, collected int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycle, ok := s.cycles[cycleID]
	if !ok || cycle.Status != CycleStatusCollecting {
		return false, nil
	}
	now := time.Now()
	cycle.Status = to
	cycle.CollectedAmount = collected
	cycle.SettledAt = &now
	return true, nil
}

// fakeGroups is an in-memory GroupStore
type fakeGroups struct {
	mu      sync.Mutex
	groups  map[int64]*group.Group
	members map[int64]*group.Member
}

var _ GroupStore = (*fakeGroups)(nil)

func newFakeGroups(g *group.Group, members ...*group.Member) *fakeGroups {
	f := &fakeGroups{
		groups:  map[int64]*group.Group{g.ID: g},
		members: make(map[int64]*group.Member),
	}
	for _, m := range members {
		f.members[m.ID] = m
	}
	return f
}

func (f *fakeGroups) GetByID(ctx context.Context, id int64) (*group.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.groups[id]
	if !ok {
		return nil, nil
	}
	out := *g
	return &out, nil
}

func (f *fakeGroups) GetMembers(ctx context.Context, groupID int64) ([]*group.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var members []*group.Member
	for _, m := range f.members {
		if m.GroupID == groupID {
			out := *m
			members = append(members, &out)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].RotationPosition < members[j].RotationPosition })
	return members, nil
}

func (f *fakeGroups) GetMember(ctx context.Context, memberID int64) (*group.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.members[memberID]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

func (f *fakeGroups) CreditPayout(ctx context.Context, memberID int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.members[memberID]
	if !ok {
		return fmt.Errorf("member not found")
	}
	m.TotalReceived += amount
	m.HasReceivedPayout = true
	return nil
}

func (f *fakeGroups) AdvanceCycle(ctx context.Context, groupID int64, fromCycle int, rotationIndex int, collected, distributed int64, complete bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	g, ok := f.groups[groupID]
	if !ok || g.CurrentCycle != fromCycle {
		return false, nil
	}
	g.CurrentCycle++
	g.CurrentRotationIndex = rotationIndex
	g.TotalCollected += collected
	g.TotalDistributed += distributed
	if g.Status == group.GroupStatusActive && complete {
		g.Status = group.GroupStatusCompleted
	}
	return true, nil
}

// fakeGateway scripts provider behavior per phone number. Tracking refs are
// derived from the phone so Query can be scripted the same way.
type fakeGateway struct {
	mu sync.Mutex

	// initiateErr makes Initiate fail for a phone.
	initiateErr map[string]error
	// queryResults is the status Query reports for a phone's tracking ref.
	// Unscripted phones report PROCESSING.
	queryResults map[string]*gateway.QueryResult
	// queryErr makes Query fail for a phone.
	queryErr map[string]error

	initiateCalls []string
	queryCalls    int
}

var _ gateway.Client = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		initiateErr:  make(map[string]error),
		queryResults: make(map[string]*gateway.QueryResult),
		queryErr:     make(map[string]error),
	}
}

func (f *fakeGateway) Initiate(ctx context.Context, phone string, amount int64, idempotencyRef string) (*gateway.InitiateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.initiateCalls = append(f.initiateCalls, phone)
	if err := f.initiateErr[phone]; err != nil {
		return nil, err
	}
	return &gateway.InitiateResult{TrackingRef: "ref-" + phone}, nil
}

func (f *fakeGateway) Query(ctx context.Context, trackingRef string) (*gateway.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queryCalls++
	phone := strings.TrimPrefix(trackingRef, "ref-")
	if err := f.queryErr[phone]; err != nil {
		return nil, err
	}
	if result, ok := f.queryResults[phone]; ok {
		out := *result
		return &out, nil
	}
	return &gateway.QueryResult{Status: gateway.StatusProcessing}, nil
}

func (f *fakeGateway) scriptSuccess(phone, receiptID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryResults[phone] = &gateway.QueryResult{Status: gateway.StatusSuccess, ReceiptID: receiptID}
}

func (f *fakeGateway) scriptOutcome(phone string, status gateway.Status, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryResults[phone] = &gateway.QueryResult{Status: status, ErrorMessage: message}
}

// fakeNotifier records Notify calls
type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeNotifier) Notify(ctx context.Context, recipientAccountID int64, message string, entityType string, entityID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, message)
}
