// internal/changerequest/service.go
package changerequest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service orchestrates the change-request state machine:
// PENDING → APPROVED | REJECTED, both terminal.
type Service interface {
	SubmitSuspension(ctx context.Context, membershipID uuid.UUID, memberReason string, changeStartDate time.Time, changeEndDate *time.Time) (*ChangeRequest, error)
	SubmitDisaffiliation(ctx context.Context, membershipID uuid.UUID, memberReason string, changeStartDate time.Time) (*ChangeRequest, error)
	// CreateAndApprove is the manager fast path: the request is created
	// already approved and its effect, when due, runs in the same call.
	CreateAndApprove(ctx context.Context, membershipID uuid.UUID, reqType Type, managerNotes string, changeStartDate time.Time, changeEndDate *time.Time) (*ChangeRequest, error)
	Approve(ctx context.Context, id uuid.UUID, managerNotes string) (*ChangeRequest, error)
	Reject(ctx context.Context, id uuid.UUID, managerNotes string) (*ChangeRequest, error)
	List(ctx context.Context, filter Filter) ([]ChangeRequest, error)
	// SweepDue re-evaluates approved requests whose effective date has
	// arrived since approval and applies each one in its own transaction.
	SweepDue(ctx context.Context) (int, error)
}
