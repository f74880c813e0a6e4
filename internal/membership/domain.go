// internal/membership/domain.go
package membership

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMembershipNotFound = errors.New("membership not found")
	ErrInvalidState       = errors.New("membership is not in the required state")
)

// State is the membership's aggregate lifecycle state. It is a cached
// projection of the ledger and change-request history; only the effect
// applier and the reactivation engine write it.
type State string

const (
	StatePreAdmitted State = "PRE_ADMITTED"
	StateOnRevision  State = "ON_REVISION"
	StateActive      State = "ACTIVE"
	StateEnded       State = "ENDED"
)

// EndReason records why a ledger link was closed.
type EndReason string

const (
	ReasonSuspension     EndReason = "SUSPENSION"
	ReasonDisaffiliation EndReason = "DISAFFILIATION"
	ReasonExpulsion      EndReason = "EXPULSION"
)

// Membership is one membership contract.
type Membership struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MembershipLink is one interval during which a member was part of a
// membership. Rows are append-only: a link is closed by backfilling
// EndDate and ReasonToEnd, never rewritten or deleted.
type MembershipLink struct {
	ID           uuid.UUID  `json:"id"`
	MembershipID uuid.UUID  `json:"membership_id"`
	MemberID     uuid.UUID  `json:"member_id"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	ReasonToEnd  *EndReason `json:"reason_to_end,omitempty"`
}

// Open reports whether the link is currently active.
func (l *MembershipLink) Open() bool {
	return l.EndDate == nil
}

// ReactivationResult is what the reactivation engine returns to the caller.
type ReactivationResult struct {
	Membership         *Membership `json:"membership"`
	ReactivatedMembers int         `json:"reactivated_member_count"`
}
