// internal/membership/fakes_test.go
package membership

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// In-memory stand-ins for the postgres stores, matching the SQL semantics
// closely enough to exercise the engine logic without a database.

type fakeStore struct {
	memberships map[uuid.UUID]*Membership
}

func newFakeStore() *fakeStore {
	return &fakeStore{memberships: make(map[uuid.UUID]*Membership)}
}

func (s *fakeStore) Create(_ context.Context, code string, state State) (*Membership, error) {
	m := &Membership{
		ID:        uuid.New(),
		Code:      code,
		State:     state,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.memberships[m.ID] = m
	return m, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Membership, error) {
	m, ok := s.memberships[id]
	if !ok {
		return nil, ErrMembershipNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *fakeStore) GetByCode(_ context.Context, code string) (*Membership, error) {
	for _, m := range s.memberships {
		if m.Code == code {
			copied := *m
			return &copied, nil
		}
	}
	return nil, ErrMembershipNotFound
}

func (s *fakeStore) SetState(_ context.Context, id uuid.UUID, state State) error {
	m, ok := s.memberships[id]
	if !ok {
		return ErrMembershipNotFound
	}
	m.State = state
	m.UpdatedAt = time.Now().UTC()
	return nil
}

type fakeLedger struct {
	links []*MembershipLink
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{}
}

func (l *fakeLedger) OpenLink(_ context.Context, membershipID, memberID uuid.UUID, startDate time.Time) (*MembershipLink, error) {
	for _, existing := range l.links {
		if existing.MembershipID == membershipID && existing.MemberID == memberID && existing.Open() {
			return nil, errors.New("duplicate open link")
		}
	}
	link := &MembershipLink{
		ID:           uuid.New(),
		MembershipID: membershipID,
		MemberID:     memberID,
		StartDate:    startDate,
	}
	l.links = append(l.links, link)
	return link, nil
}

func (l *fakeLedger) CloseOpenLinks(_ context.Context, membershipID uuid.UUID, effectiveDate time.Time, reason EndReason) (int64, error) {
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

func (l *fakeLedger) FindLatestClosedByReason(_ context.Context, membershipID uuid.UUID, reason EndReason) ([]MembershipLink, error) {
	latest := make(map[uuid.UUID]*MembershipLink)
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

	var result []MembershipLink
	for memberID, link := range latest {
		if open[memberID] {
			continue
		}
		if *link.ReasonToEnd != reason {
			continue
		}
		result = append(result, *link)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MemberID.String() < result[j].MemberID.String()
	})
	return result, nil
}

func (l *fakeLedger) FindOpenByMembership(_ context.Context, membershipID uuid.UUID) ([]MembershipLink, error) {
	var result []MembershipLink
	for _, link := range l.links {
		if link.MembershipID == membershipID && link.Open() {
			result = append(result, *link)
		}
	}
	return result, nil
}

// nopTxManager runs the function directly; the fakes have no transactions.
type nopTxManager struct{}

func (nopTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
