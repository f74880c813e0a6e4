// internal/membership/implementation.go
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clubhouse/internal/audit"
	"clubhouse/pkg/txn"
)

// service implements the Service interface.
type service struct {
	memberships Store
	ledger      LedgerStore
	tx          txn.Manager
	auditor     audit.Notifier
	log         *logrus.Entry
}

// NewService creates a new membership service instance.
func NewService(memberships Store, ledger LedgerStore, tx txn.Manager, auditor audit.Notifier, log *logrus.Entry) Service {
	return &service{
		memberships: memberships,
		ledger:      ledger,
		tx:          tx,
		auditor:     auditor,
		log:         log,
	}
}

// CreateMembership registers a new membership contract in PRE_ADMITTED.
func (s *service) CreateMembership(ctx context.Context, code string) (*Membership, error) {
	m, err := s.memberships.Create(ctx, code, StatePreAdmitted)
	if err != nil {
		return nil, fmt.Errorf("create membership: %w", err)
	}
	return m, nil
}

// GetMembership retrieves a membership by ID. Billing reads State from the
// result to decide whether fees accrue.
func (s *service) GetMembership(ctx context.Context, id uuid.UUID) (*Membership, error) {
	return s.memberships.GetByID(ctx, id)
}

// Admit opens a ledger link for a member under an ACTIVE membership. A
// PRE_ADMITTED or ON_REVISION membership is activated by its first
// admission.
func (s *service) Admit(ctx context.Context, membershipID, memberID uuid.UUID, startDate time.Time) (*MembershipLink, error) {
	var link *MembershipLink
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		m, err := s.memberships.GetByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if m.State == StateEnded {
			return fmt.Errorf("admit to membership %s: %w", membershipID, ErrInvalidState)
		}

		link, err = s.ledger.OpenLink(ctx, membershipID, memberID, startDate)
		if err != nil {
			return err
		}

		if m.State != StateActive {
			if err := s.memberships.SetState(ctx, membershipID, StateActive); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditor.Notify(ctx, audit.Event{
		Action:       "MEMBER_ADMITTED",
		MembershipID: membershipID,
		TargetID:     &memberID,
		OccurredAt:   time.Now().UTC(),
	})
	return link, nil
}

// Roster returns the open links of a membership.
func (s *service) Roster(ctx context.Context, membershipID uuid.UUID) ([]MembershipLink, error) {
	if _, err := s.memberships.GetByID(ctx, membershipID); err != nil {
		return nil, err
	}
	return s.ledger.FindOpenByMembership(ctx, membershipID)
}

// Reactivate reverses a suspension-caused closure. It reopens a link for
// every member whose latest closure was a SUSPENSION not superseded by a
// later closure of any reason; the new link starts exactly where the
// suspension ended, keeping the history gapless.
func (s *service) Reactivate(ctx context.Context, membershipID uuid.UUID) (*ReactivationResult, error) {
	var result *ReactivationResult

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		m, err := s.memberships.GetByID(ctx, membershipID)
		if err != nil {
			return err
		}
		if m.State != StateEnded {
			return fmt.Errorf("reactivate membership %s in state %s: %w", membershipID, m.State, ErrInvalidState)
		}

		if err := s.memberships.SetState(ctx, membershipID, StateActive); err != nil {
			return err
		}
		m.State = StateActive

		suspended, err := s.ledger.FindLatestClosedByReason(ctx, membershipID, ReasonSuspension)
		if err != nil {
			return err
		}

		for _, closed := range suspended {
			if _, err := s.ledger.OpenLink(ctx, membershipID, closed.MemberID, *closed.EndDate); err != nil {
				return fmt.Errorf("reopen link for member %s: %w", closed.MemberID, err)
			}
		}

		result = &ReactivationResult{
			Membership:         m,
			ReactivatedMembers: len(suspended),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"membership_id": membershipID,
		"reactivated":   result.ReactivatedMembers,
	}).Info("membership reactivated")

	s.auditor.Notify(ctx, audit.Event{
		Action:       "MEMBERSHIP_REACTIVATED",
		MembershipID: membershipID,
		Metadata: map[string]interface{}{
			"reactivated_member_count": result.ReactivatedMembers,
		},
		OccurredAt: time.Now().UTC(),
	})

	return result, nil
}
