package collection

// StartCollectionRequest launches a cycle for a group
type StartCollectionRequest struct {
	GroupID int64 `json:"group_id" validate:"required,gt=0"`
}

// DebitRequestResponse represents a debit request in API responses
type DebitRequestResponse struct {
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
	UpdatedAt    string        `json:"updated_at"`
}

// CycleResponse represents a cycle with its requests and live aggregates
type CycleResponse struct {
	ID                int64                   `json:"id"`
	GroupID           int64                   `json:"group_id"`
	CycleNumber       int                     `json:"cycle_number"`
	ExpectedAmount    int64                   `json:"expected_amount"`
	CollectedAmount   int64                   `json:"collected_amount"`
	RecipientMemberID *int64                  `json:"recipient_member_id,omitempty"`
	Status            CycleStatus             `json:"status"`
	CreatedAt         string                  `json:"created_at"`
	SettledAt         *string                 `json:"settled_at,omitempty"`
	Requests          []*DebitRequestResponse `json:"requests,omitempty"`
	Summary           *CycleSummary           `json:"summary,omitempty"`
}

// ToResponse converts a DebitRequest model to a response DTO
func (d *DebitRequest) ToResponse() *DebitRequestResponse {
	return &DebitRequestResponse{
		ID:           d.ID,
		CycleID:      d.CycleID,
		MemberID:     d.MemberID,
		Phone:        d.Phone,
		Amount:       d.Amount,
		Status:       d.Status,
		TrackingRef:  d.TrackingRef,
		AttemptCount: d.AttemptCount,
		MaxAttempts:  d.MaxAttempts,
		ReceiptID:    d.ReceiptID,
		ErrorMessage: d.ErrorMessage,
		UpdatedAt:    d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Cycle model to a response DTO
func (c *Cycle) ToResponse() *CycleResponse {
	resp := &CycleResponse{
		ID:                c.ID,
		GroupID:           c.GroupID,
		CycleNumber:       c.CycleNumber,
		ExpectedAmount:    c.ExpectedAmount,
		CollectedAmount:   c.CollectedAmount,
		RecipientMemberID: c.RecipientMemberID,
		Status:            c.Status,
		CreatedAt:         c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if c.SettledAt != nil {
		settled := c.SettledAt.Format("2006-01-02T15:04:05Z")
		resp.SettledAt = &settled
	}
	return resp
}

// WithRequests attaches the cycle's requests and their aggregates
func (c *Cycle) WithRequests(requests []*DebitRequest) *CycleResponse {
	resp := c.ToResponse()
	resp.Requests = make([]*DebitRequestResponse, len(requests))
	for i, req := range requests {
		resp.Requests[i] = req.ToResponse()
	}
	resp.Summary = summarize(c.ID, requests)
	return resp
}
