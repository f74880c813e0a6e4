// internal/sweep/sweeper.go
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"clubhouse/internal/changerequest"
)

// Sweeper periodically re-evaluates approved change requests whose
// effective date has arrived since approval. It is the explicit
// re-evaluation entry point for deferred effects: without it an approved,
// future-dated request would never be applied.
type Sweeper struct {
	service  changerequest.Service
	schedule cron.Schedule
	log      *logrus.Entry

	cron        *cron.Cron
	runningJobs sync.WaitGroup
}

func New(service changerequest.Service, every time.Duration, log *logrus.Entry) *Sweeper {
	return &Sweeper{
		service:  service,
		schedule: cron.Every(every),
		log:      log,
		cron:     cron.NewWithLocation(time.UTC),
	}
}

// Start schedules the sweep and returns immediately.
func (s *Sweeper) Start() {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		s.runningJobs.Add(1)
		defer s.runningJobs.Done()

		s.RunOnce(context.Background())
	}))
	s.cron.Start()
	s.log.Info("deferred-effect sweeper started")
}

// RunOnce executes a single sweep and reports its metrics.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	started := time.Now().UTC()
	reportSweepStarted()

	applied, err := s.service.SweepDue(ctx)
	reportSweepCompleted(time.Since(started), applied, err)
	if err != nil {
		s.log.WithError(err).Error("sweep failed")
		return applied, err
	}

	if applied > 0 {
		s.log.WithField("applied", applied).Info("sweep applied deferred change-request effects")
	}
	return applied, nil
}

// Stop terminates the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.cron.Stop()
	s.runningJobs.Wait()
	s.log.Info("deferred-effect sweeper stopped")
}
