package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jonboulle/clockwork"

	"github.com/surflog/surf-forecast-service/internal/report"
	"github.com/surflog/surf-forecast-service/internal/store"
)

// ReportFetcher is the slice of the report service the scheduler needs.
type ReportFetcher interface {
	GetSurfReport(ctx context.Context, sessionStart, spotName string) (*report.SurfReport, error)
}

// Scheduler periodically prefetches surf reports for the configured home
// spots into the report store, so the latest-forecast endpoint answers
// without a provider round trip.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   ReportFetcher
	reports   *store.MemoryReports
	spots     []string
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
}

// New creates a prefetch scheduler for the given spots.
func New(spots []string, interval time.Duration, service ReportFetcher, reports *store.MemoryReports, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		reports:   reports,
		spots:     spots,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
	}
}

// Start schedules the periodic prefetch job and starts the scheduler.
func (s *Scheduler) Start() error {
	if len(s.spots) == 0 {
		s.logger.Info("no home spots configured; prefetch disabled")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 60
	}

	if _, err := s.scheduler.Every(minutes).Minutes().Do(s.runOnce); err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// runOnce prefetches the report for the next top-of-hour for every home
// spot. Failures are logged and skipped; a bad spot never blocks the rest.
func (s *Scheduler) runOnce() {
	sessionStart := report.FormatSessionStart(s.nextHour())
	s.logger.Info("prefetching home spot forecasts", "session_start", sessionStart, "spots", len(s.spots))

	var wg sync.WaitGroup
	for _, spot := range s.spots {
		wg.Add(1)
		go func(spot string) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			rep, err := s.service.GetSurfReport(ctx, sessionStart, spot)
			if err != nil {
				s.logger.Warn("prefetch failed", "spot", spot, "error", err)
				return
			}
			s.reports.SaveReport(spot, *rep)
		}(spot)
	}
	wg.Wait()
}

func (s *Scheduler) nextHour() time.Time {
	return s.clock.Now().UTC().Truncate(time.Hour).Add(time.Hour)
}
