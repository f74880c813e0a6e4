// internal/changerequest/domain.go
package changerequest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"clubhouse/internal/membership"
)

var (
	ErrValidation        = errors.New("invalid change request")
	ErrRequestNotFound   = errors.New("change request not found")
	ErrRequestNotPending = errors.New("change request is not pending")
)

// Type distinguishes a temporary suspension from a permanent
// disaffiliation.
type Type string

const (
	TypeSuspension     Type = "SUSPENSION"
	TypeDisaffiliation Type = "DISAFFILIATION"
)

// EndReason maps the request type to the ledger closure reason it causes.
func (t Type) EndReason() membership.EndReason {
	if t == TypeDisaffiliation {
		return membership.ReasonDisaffiliation
	}
	return membership.ReasonSuspension
}

// RequestState is the request's resolution state. PENDING is the only
// non-terminal state.
type RequestState string

const (
	StatePending  RequestState = "PENDING"
	StateApproved RequestState = "APPROVED"
	StateRejected RequestState = "REJECTED"
)

// ChangeRequest is one suspension or disaffiliation ask. Created PENDING,
// resolved exactly once, never deleted. EffectAppliedAt marks that the
// approved request's side effects (ledger closure + membership ENDED) have
// run; it is set at most once, in the same transaction as those writes.
type ChangeRequest struct {
	ID              uuid.UUID    `json:"id"`
	MembershipID    uuid.UUID    `json:"membership_id"`
	Type            Type         `json:"type"`
	RequestState    RequestState `json:"request_state"`
	MadeByAMember   bool         `json:"made_by_a_member"`
	MemberReason    string       `json:"member_reason,omitempty"`
	ManagerNotes    string       `json:"manager_notes,omitempty"`
	SubmissionDate  time.Time    `json:"submission_date"`
	ResolutionDate  *time.Time   `json:"resolution_date,omitempty"`
	ChangeStartDate time.Time    `json:"change_start_date"`
	ChangeEndDate   *time.Time   `json:"change_end_date,omitempty"`
	EffectAppliedAt *time.Time   `json:"effect_applied_at,omitempty"`
}

// Validate checks the fields required for the request's type before any
// write happens.
func (r *ChangeRequest) Validate() error {
	if r.MembershipID == uuid.Nil {
		return fmt.Errorf("%w: membership reference is required", ErrValidation)
	}
	if r.ChangeStartDate.IsZero() {
		return fmt.Errorf("%w: change start date is required", ErrValidation)
	}

	switch r.Type {
	case TypeSuspension:
		if r.ChangeEndDate != nil && !r.ChangeEndDate.After(r.ChangeStartDate) {
			return fmt.Errorf("%w: suspension end date must be after its start date", ErrValidation)
		}
	case TypeDisaffiliation:
		if r.ChangeEndDate != nil {
			return fmt.Errorf("%w: a disaffiliation must not carry a change end date", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown request type %q", ErrValidation, r.Type)
	}

	return nil
}

// Due reports whether the request's effect must be applied at the given
// instant.
func (r *ChangeRequest) Due(now time.Time) bool {
	return !r.ChangeStartDate.After(now)
}

// Filter narrows a change-request listing.
type Filter struct {
	MembershipID *uuid.UUID
	State        *RequestState
	Type         *Type
}
