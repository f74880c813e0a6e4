// internal/membership/service.go
package membership

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the membership service.
type Service interface {
	CreateMembership(ctx context.Context, code string) (*Membership, error)
	GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error)
	Admit(ctx context.Context, membershipID, memberID uuid.UUID, startDate time.Time) (*MembershipLink, error)
	Roster(ctx context.Context, membershipID uuid.UUID) ([]MembershipLink, error)
	Reactivate(ctx context.Context, membershipID uuid.UUID) (*ReactivationResult, error)
}
