// internal/changerequest/implementation.go
package changerequest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"clubhouse/internal/audit"
	"clubhouse/internal/membership"
	"clubhouse/pkg/txn"
)

// service implements the Service interface.
type service struct {
	requests    Store
	memberships membership.Store
	applier     *EffectApplier
	tx          txn.Manager
	auditor     audit.Notifier
	log         *logrus.Entry
	rateLimiter *rate.Limiter
	now         func() time.Time
}

// NewService creates a new change-request service instance.
func NewService(requests Store, memberships membership.Store, applier *EffectApplier, tx txn.Manager, auditor audit.Notifier, log *logrus.Entry) Service {
	return &service{
		requests:    requests,
		memberships: memberships,
		applier:     applier,
		tx:          tx,
		auditor:     auditor,
		log:         log,
		rateLimiter: rate.NewLimiter(rate.Every(1*time.Minute), 10), // 10 member submissions per minute
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitSuspension records a member-initiated suspension ask as PENDING.
func (s *service) SubmitSuspension(ctx context.Context, membershipID uuid.UUID, memberReason string, changeStartDate time.Time, changeEndDate *time.Time) (*ChangeRequest, error) {
	return s.submit(ctx, membershipID, TypeSuspension, memberReason, changeStartDate, changeEndDate)
}

// SubmitDisaffiliation records a member-initiated disaffiliation ask as
// PENDING. A disaffiliation ends the membership outright, so it carries no
// change end date.
func (s *service) SubmitDisaffiliation(ctx context.Context, membershipID uuid.UUID, memberReason string, changeStartDate time.Time) (*ChangeRequest, error) {
	return s.submit(ctx, membershipID, TypeDisaffiliation, memberReason, changeStartDate, nil)
}

func (s *service) submit(ctx context.Context, membershipID uuid.UUID, reqType Type, memberReason string, changeStartDate time.Time, changeEndDate *time.Time) (*ChangeRequest, error) {
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	req := &ChangeRequest{
		ID:              uuid.New(),
		MembershipID:    membershipID,
		Type:            reqType,
		RequestState:    StatePending,
		MadeByAMember:   true,
		MemberReason:    memberReason,
		SubmissionDate:  s.now(),
		ChangeStartDate: changeStartDate,
		ChangeEndDate:   changeEndDate,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.memberships.GetByID(ctx, membershipID); err != nil {
			return err
		}
		return s.requests.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "CHANGE_REQUEST_SUBMITTED", req)
	return req, nil
}

// CreateAndApprove creates a request already resolved as APPROVED and runs
// the effect applier in the same transaction.
func (s *service) CreateAndApprove(ctx context.Context, membershipID uuid.UUID, reqType Type, managerNotes string, changeStartDate time.Time, changeEndDate *time.Time) (*ChangeRequest, error) {
	now := s.now()
	req := &ChangeRequest{
		ID:              uuid.New(),
		MembershipID:    membershipID,
		Type:            reqType,
		RequestState:    StateApproved,
		MadeByAMember:   false,
		ManagerNotes:    managerNotes,
		SubmissionDate:  now,
		ResolutionDate:  &now,
		ChangeStartDate: changeStartDate,
		ChangeEndDate:   changeEndDate,
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.memberships.GetByID(ctx, membershipID); err != nil {
			return err
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}
		_, err := s.applier.Apply(ctx, req, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "CHANGE_REQUEST_CREATED_AND_APPROVED", req)
	return req, nil
}

// Approve resolves a PENDING request as APPROVED and applies its effect if
// already due, all inside one transaction.
func (s *service) Approve(ctx context.Context, id uuid.UUID, managerNotes string) (*ChangeRequest, error) {
	var resolved *ChangeRequest

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.Resolve(ctx, id, StateApproved, managerNotes, s.now())
		if err != nil {
			return err
		}
		if _, err := s.applier.Apply(ctx, req, s.now()); err != nil {
			return err
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "CHANGE_REQUEST_APPROVED", resolved)
	return resolved, nil
}

// Reject resolves a PENDING request as REJECTED. No ledger or state change
// happens.
func (s *service) Reject(ctx context.Context, id uuid.UUID, managerNotes string) (*ChangeRequest, error) {
	var resolved *ChangeRequest

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.Resolve(ctx, id, StateRejected, managerNotes, s.now())
		if err != nil {
			return err
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "CHANGE_REQUEST_REJECTED", resolved)
	return resolved, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]ChangeRequest, error) {
	return s.requests.List(ctx, filter)
}

// SweepDue applies approved requests whose effective date has passed since
// approval. Each request gets its own transaction so one failure does not
// roll back the rest; the applied marker keeps a concurrent sweep or
// approval from double-applying.
func (s *service) SweepDue(ctx context.Context) (int, error) {
	due, err := s.requests.ListDue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	applied := 0
	for i := range due {
		req := due[i]
		var ok bool
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			var err error
			ok, err = s.applier.Apply(ctx, &req, s.now())
			return err
		})
		if err != nil {
			s.log.WithError(err).WithField("request_id", req.ID).Error("failed to apply due change request")
			return applied, fmt.Errorf("apply request %s: %w", req.ID, err)
		}
		if ok {
			applied++
			s.notify(ctx, "CHANGE_REQUEST_EFFECT_APPLIED", &req)
		}
	}

	return applied, nil
}

func (s *service) notify(ctx context.Context, action string, req *ChangeRequest) {
	id := req.ID
	s.auditor.Notify(ctx, audit.Event{
		Action:       action,
		MembershipID: req.MembershipID,
		TargetID:     &id,
		Metadata: map[string]interface{}{
			"type":          string(req.Type),
			"request_state": string(req.RequestState),
		},
		OccurredAt: s.now(),
	})
}
