// internal/sweep/sweeper_test.go
package sweep

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhouse/internal/changerequest"
)

type stubService struct {
	applied int
	err     error
	calls   int
}

func (s *stubService) SweepDue(context.Context) (int, error) {
	s.calls++
	return s.applied, s.err
}

func (s *stubService) SubmitSuspension(context.Context, uuid.UUID, string, time.Time, *time.Time) (*changerequest.ChangeRequest, error) {
	return nil, nil
}

func (s *stubService) SubmitDisaffiliation(context.Context, uuid.UUID, string, time.Time) (*changerequest.ChangeRequest, error) {
	return nil, nil
}

func (s *stubService) CreateAndApprove(context.Context, uuid.UUID, changerequest.Type, string, time.Time, *time.Time) (*changerequest.ChangeRequest, error) {
	return nil, nil
}

func (s *stubService) Approve(context.Context, uuid.UUID, string) (*changerequest.ChangeRequest, error) {
	return nil, nil
}

func (s *stubService) Reject(context.Context, uuid.UUID, string) (*changerequest.ChangeRequest, error) {
	return nil, nil
}

func (s *stubService) List(context.Context, changerequest.Filter) ([]changerequest.ChangeRequest, error) {
	return nil, nil
}

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestRunOnceReportsApplied(t *testing.T) {
	stub := &stubService{applied: 3}
	sweeper := New(stub, time.Hour, testLog())

	applied, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 1, stub.calls)
}

func TestRunOnceSurfacesError(t *testing.T) {
	stub := &stubService{err: errors.New("db down")}
	sweeper := New(stub, time.Hour, testLog())

	_, err := sweeper.RunOnce(context.Background())
	require.Error(t, err)
}

func TestRegisterMetrics(t *testing.T) {
	require.NoError(t, RegisterMetrics(prometheus.NewRegistry()))
}
