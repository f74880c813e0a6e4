// internal/changerequest/applier.go
package changerequest

import (
	"context"
	"fmt"
	"time"

	"clubhouse/internal/membership"
)

// EffectApplier applies an approved request's irreversible effect: close
// every open ledger link of the membership and flip its state to ENDED.
// Both writes, and the applied marker, happen inside the transaction
// carried by ctx; a partially applied effect is never observable.
type EffectApplier struct {
	requests    Store
	ledger      membership.LedgerStore
	memberships membership.Store
}

func NewEffectApplier(requests Store, ledger membership.LedgerStore, memberships membership.Store) *EffectApplier {
	return &EffectApplier{
		requests:    requests,
		ledger:      ledger,
		memberships: memberships,
	}
}

// Apply runs the effect if it is due at now. It returns false without side
// effects when the effective date is still in the future (the request stays
// approved and is picked up by a later sweep) or when another transaction
// already applied it.
func (a *EffectApplier) Apply(ctx context.Context, req *ChangeRequest, now time.Time) (bool, error) {
	if req.RequestState != StateApproved {
		return false, fmt.Errorf("apply request %s in state %s: %w", req.ID, req.RequestState, ErrRequestNotPending)
	}
	if !req.Due(now) {
		return false, nil
	}

	claimed, err := a.requests.MarkApplied(ctx, req.ID, now)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	if _, err := a.ledger.CloseOpenLinks(ctx, req.MembershipID, req.ChangeStartDate, req.Type.EndReason()); err != nil {
		return false, err
	}
	if err := a.memberships.SetState(ctx, req.MembershipID, membership.StateEnded); err != nil {
		return false, err
	}

	applied := now
	req.EffectAppliedAt = &applied
	return true, nil
}
