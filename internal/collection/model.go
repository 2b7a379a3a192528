package collection

import "time"

// CycleStatus represents the lifecycle state of a collection cycle
type CycleStatus string

const (
	// CycleStatusCollecting means debit requests are still being resolved.
	CycleStatusCollecting CycleStatus = "collecting"
	// CycleStatusCompleted means every member paid and the cycle settled.
	CycleStatusCompleted CycleStatus = "completed"
	// CycleStatusFailedPartial means the cycle settled with at least one
	// member not paying. This is a first-class valid end state, not an
	// error: a group can complete a cycle with fewer than all members
	// paying.
	CycleStatusFailedPartial CycleStatus = "failed_partial"
)

// Terminal reports whether the cycle can no longer change
func (s CycleStatus) Terminal() bool {
	return s == CycleStatusCompleted || s == CycleStatusFailedPartial
}

// RequestStatus represents the lifecycle state of a debit request
type RequestStatus string

const (
	// StatusPending means the request exists but no STK push has reached
	// the provider yet.
	StatusPending RequestStatus = "pending"
	// StatusSent means the provider acknowledged the push with a tracking
	// reference.
	StatusSent RequestStatus = "sent"
	// StatusProcessing means the prompt reached the member's phone and is
	// awaiting PIN entry.
	StatusProcessing RequestStatus = "processing"
	StatusCompleted  RequestStatus = "completed"
	StatusFailed     RequestStatus = "failed"
	StatusExpired    RequestStatus = "expired"
	StatusCancelled  RequestStatus = "cancelled"
)

// Terminal reports whether no further automatic transition occurs. Terminal
// requests only move again through an explicit retry, which re-arms them as
// a fresh attempt.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// FailedClass reports whether the request ended without collecting money
// and is therefore eligible for retry.
func (s RequestStatus) FailedClass() bool {
	switch s {
	case StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Cycle is one scheduled collection round for a group
type Cycle struct {
	ID                int64       `json:"id"`
	GroupID           int64       `json:"group_id"`
	CycleNumber       int         `json:"cycle_number"`
	ExpectedAmount    int64       `json:"expected_amount"`
	CollectedAmount   int64       `json:"collected_amount"`
	RecipientMemberID *int64      `json:"recipient_member_id,omitempty"`
	Status            CycleStatus `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	SettledAt         *time.Time  `json:"settled_at,omitempty"`
}

// DebitRequest is one attempted debit against one member for one cycle.
// Terminal rows are retained permanently for financial audit.
type DebitRequest struct {
	ID           int64         `json:"id"`
	CycleID      int64         `json:"cycle_id"`
	MemberID     int64         `json:"member_id"`
	Phone        string        `json:"phone"`
	Amount       int64         `json:"amount"`
	Status       RequestStatus `json:"status"`
	TrackingRef  *string       `json:"tracking_ref,omitempty"`
	AttemptCount int           `json:"attempt_count"`
	MaxAttempts  int           `json:"max_attempts"`
	ReceiptID    *string       `json:"receipt_id,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CycleSummary aggregates the live request states of one cycle
type CycleSummary struct {
	CycleID         int64 `json:"cycle_id"`
	Pending         int   `json:"pending"`
	Sent            int   `json:"sent"`
	Processing      int   `json:"processing"`
	Completed       int   `json:"completed"`
	Failed          int   `json:"failed"`
	Expired         int   `json:"expired"`
	Cancelled       int   `json:"cancelled"`
	CollectedAmount int64 `json:"collected_amount"`
}

// Total returns the number of requests in the cycle
func (s *CycleSummary) Total() int {
	return s.Pending + s.Sent + s.Processing + s.Completed + s.Failed + s.Expired + s.Cancelled
}

// Open reports whether any request still awaits a terminal state
func (s *CycleSummary) Open() bool {
	return s.Pending+s.Sent+s.Processing > 0
}

// AllCompleted is true iff every request completed
func (s *CycleSummary) AllCompleted() bool {
	return s.Total() > 0 && s.Completed == s.Total()
}

// AllFailed is true iff every request failed and none completed
func (s *CycleSummary) AllFailed() bool {
	return s.Total() > 0 && s.Completed == 0 && !s.Open()
}

func summarize(cycleID int64, requests []*DebitRequest) *CycleSummary {
	summary := &CycleSummary{CycleID: cycleID}
	for _, req := range requests {
		switch req.Status {
		case StatusPending:
			summary.Pending++
		case StatusSent:
			summary.Sent++
		case StatusProcessing:
			summary.Processing++
		case StatusCompleted:
			summary.Completed++
			summary.CollectedAmount += req.Amount
		case StatusFailed:
			summary.Failed++
		case StatusExpired:
			summary.Expired++
		case StatusCancelled:
			summary.Cancelled++
		}
	}
	return summary
}
