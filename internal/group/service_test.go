package group

import (
	"context"
	"errors"
	"testing"
)

func TestShufflePositions(t *testing.T) {
	for _, n := range []int{1, 2, 5, 12} {
		positions := shufflePositions(n)
		if len(positions) != n {
			t.Fatalf("shufflePositions(%d) returned %d positions", n, len(positions))
		}

		seen := make(map[int]bool, n)
		for _, p := range positions {
			if p < 1 || p > n {
				t.Fatalf("shufflePositions(%d) produced out-of-range position %d", n, p)
			}
			if seen[p] {
				t.Fatalf("shufflePositions(%d) produced duplicate position %d", n, p)
			}
			seen[p] = true
		}
	}
}

func TestCreateRejectsBadRostersBeforeInserting(t *testing.T) {
	// A nil repository proves these requests are rejected before any row
	// is written.
	svc := NewService(nil, nil)

	tests := []struct {
		name    string
		req     *CreateGroupRequest
		wantErr error
	}{
		{
			name: "missing contribution amount",
			req: &CreateGroupRequest{
				Name:    "Office Savings",
				Kind:    KindRotatingSavings,
				Founder: NewMemberRequest{Name: "Asha", Phone: "+254700000001"},
			},
			wantErr: ErrContributionRequired,
		},
		{
			name: "duplicate phone in roster",
			req: &CreateGroupRequest{
				Name:               "Office Savings",
				Kind:               KindRotatingSavings,
				ContributionAmount: 5000,
				Founder:            NewMemberRequest{Name: "Asha", Phone: "+254700000001"},
				Members: []NewMemberRequest{
					{Name: "Brian", Phone: "+254700000001"},
				},
			},
			wantErr: ErrDuplicateMemberPhone,
		},
		{
			name: "pledge kind without pledges",
			req: &CreateGroupRequest{
				Name:    "Harambee Fund",
				Kind:    KindPledgeFundraising,
				Founder: NewMemberRequest{Name: "Asha", Phone: "+254700000001"},
			},
			wantErr: ErrPledgeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(context.Background(), 1, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
