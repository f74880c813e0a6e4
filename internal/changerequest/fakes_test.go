// internal/changerequest/fakes_test.go
package changerequest

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"clubhouse/internal/membership"
)

type fakeRequestStore struct {
	requests map[uuid.UUID]*ChangeRequest
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[uuid.UUID]*ChangeRequest)}
}

func (s *fakeRequestStore) Create(_ context.Context, req *ChangeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	copied := *req
	s.requests[req.ID] = &copied
	return nil
}

func (s *fakeRequestStore) GetByID(_ context.Context, id uuid.UUID) (*ChangeRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	copied := *req
	return &copied, nil
}

func (s *fakeRequestStore) Resolve(_ context.Context, id uuid.UUID, state RequestState, notes string, resolvedAt time.Time) (*ChangeRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	if req.RequestState != StatePending {
		return nil, ErrRequestNotPending
	}
	req.RequestState = state
	req.ManagerNotes = notes
	t := resolvedAt
	req.ResolutionDate = &t
	copied := *req
	return &copied, nil
}

func (s *fakeRequestStore) MarkApplied(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	req, ok := s.requests[id]
	if !ok {
		return false, ErrRequestNotFound
	}
	if req.EffectAppliedAt != nil {
		return false, nil
	}
	t := at
	req.EffectAppliedAt = &t
	return true, nil
}

func (s *fakeRequestStore) List(_ context.Context, filter Filter) ([]ChangeRequest, error) {
	var result []ChangeRequest
	for _, req := range s.requests {
		if filter.MembershipID != nil && req.MembershipID != *filter.MembershipID {
			continue
		}
		if filter.State != nil && req.RequestState != *filter.State {
			continue
		}
		if filter.Type != nil && req.Type != *filter.Type {
			continue
		}
		result = append(result, *req)
	}
	return result, nil
}

func (s *fakeRequestStore) ListDue(_ context.Context, now time.Time) ([]ChangeRequest, error) {
	var result []ChangeRequest
	for _, req := range s.requests {
		if req.RequestState == StateApproved && req.EffectAppliedAt == nil && req.Due(now) {
			result = append(result, *req)
		}
	}
	return result, nil
}

type fakeMembershipStore struct {
	memberships map[uuid.UUID]*membership.Membership
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{memberships: make(map[uuid.UUID]*membership.Membership)}
}

func (s *fakeMembershipStore) Create(_ context.Context, code string, state membership.State) (*membership.Membership, error) {
	m := &membership.Membership{
		ID:    uuid.New(),
		Code:  code,
		State: state,
	}
	s.memberships[m.ID] = m
	return m, nil
}

func (s *fakeMembershipStore) GetByID(_ context.Context, id uuid.UUID) (*membership.Membership, error) {
	m, ok := s.memberships[id]
	if !ok {
		return nil, membership.ErrMembershipNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *fakeMembershipStore) GetByCode(_ context.Context, code string) (*membership.Membership, error) {
	for _, m := range s.memberships {
		if m.Code == code {
			copied := *m
			return &copied, nil
		}
	}
	return nil, membership.ErrMembershipNotFound
}

func (s *fakeMembershipStore) SetState(_ context.Context, id uuid.UUID, state membership.State) error {
	m, ok := s.memberships[id]
	if !ok {
		return membership.ErrMembershipNotFound
	}
	m.State = state
	return nil
}

// errDuplicateOpenLink mirrors the partial unique index on open rows.
var errDuplicateOpenLink = errors.New("duplicate open link")

type fakeLedger struct {
	links []*membership.MembershipLink
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{}
}

func (l *fakeLedger) OpenLink(_ context.Context, membershipID, memberID uuid.UUID, startDate time.Time) (*membership.MembershipLink, error) {
	for _, existing := range l.links {
		if existing.MembershipID == membershipID && existing.MemberID == memberID && existing.Open() {
			return nil, errDuplicateOpenLink
		}
	}
	link := &membership.MembershipLink{
		ID:           uuid.New(),
		MembershipID: membershipID,
		MemberID:     memberID,
		StartDate:    startDate,
	}
	l.links = append(l.links, link)
	return link, nil
}

func (l *fakeLedger) CloseOpenLinks(_ context.Context, membershipID uuid.UUID, effectiveDate time.Time, reason membership.EndReason) (int64, error) {
	var closed int64
	for _, link := range l.links {
		if link.MembershipID == membershipID && link.Open() {
			d := effectiveDate
			r := reason
			link.EndDate = &d
			link.ReasonToEnd = &r
			closed++
		}
	}
	return closed, nil
}

func (l *fakeLedger) FindLatestClosedByReason(_ context.Context, membershipID uuid.UUID, reason membership.EndReason) ([]membership.MembershipLink, error) {
	latest := make(map[uuid.UUID]*membership.MembershipLink)
	open := make(map[uuid.UUID]bool)

	for _, link := range l.links {
		if link.MembershipID != membershipID {
			continue
		}
		if link.Open() {
			open[link.MemberID] = true
			continue
		}
		current, ok := latest[link.MemberID]
		if !ok || link.EndDate.After(*current.EndDate) {
			latest[link.MemberID] = link
		}
	}

	var result []membership.MembershipLink
	for memberID, link := range latest {
		if open[memberID] || *link.ReasonToEnd != reason {
			continue
		}
		result = append(result, *link)
	}
	return result, nil
}

func (l *fakeLedger) FindOpenByMembership(_ context.Context, membershipID uuid.UUID) ([]membership.MembershipLink, error) {
	var result []membership.MembershipLink
	for _, link := range l.links {
		if link.MembershipID == membershipID && link.Open() {
			result = append(result, *link)
		}
	}
	return result, nil
}

func (l *fakeLedger) openCount(membershipID, memberID uuid.UUID) int {
	count := 0
	for _, link := range l.links {
		if link.MembershipID == membershipID && link.MemberID == memberID && link.Open() {
			count++
		}
	}
	return count
}

type nopTxManager struct{}

func (nopTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
