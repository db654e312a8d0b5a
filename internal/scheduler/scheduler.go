package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nitesh/news_service/pkg/models"
)

var (
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrSweepRunning   = errors.New("a sweep is already running")
)

// Sweeper refreshes all registered sources once.
type Sweeper interface {
	Sweep(ctx context.Context, workers int) models.SweepReport
}

// Status is a snapshot of the scheduler settings.
type Status struct {
	Interval   string              `json:"interval"`
	Workers    int                 `json:"workers"`
	Started    bool                `json:"started"`
	Running    bool                `json:"running"`
	LastReport *models.SweepReport `json:"lastReport,omitempty"`
}

// Scheduler triggers a sweep every interval. At most one sweep runs at a
// time; a tick that lands while a sweep is still running is skipped.
type Scheduler struct {
	sweeper Sweeper
	logger  *slog.Logger

	mu       sync.Mutex
	interval time.Duration
	workers  int
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
	resetCh  chan struct{}
	done     chan struct{}
	last     *models.SweepReport

	sweeping sync.Mutex
	running  bool
}

func New(sweeper Sweeper, interval time.Duration, workers int, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, workers: workers, logger: logger}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.resetCh = make(chan struct{}, 1)
	s.done = make(chan struct{})
	s.started = true
	go s.loop(s.ctx, s.done)
	s.logger.Info("scheduler started", "interval", s.interval.String(), "workers", s.workers)
	return nil
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

// Stop cancels the loop and any sweep in flight, then waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return errors.New("interval must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	if s.started {
		select {
		case s.resetCh <- struct{}{}:
		default:
		}
	}
	s.logger.Info("sweep interval changed", "interval", d.String())
	return nil
}

// SetWorkers changes the concurrency of the next sweep.
func (s *Scheduler) SetWorkers(n int) error {
	if n <= 0 {
		return errors.New("workers must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = n
	s.logger.Info("sweep workers changed", "workers", n)
	return nil
}

func (s *Scheduler) CurrentInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) CurrentWorkers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workers
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Interval:   s.interval.String(),
		Workers:    s.workers,
		Started:    s.started,
		Running:    s.running,
		LastReport: s.last,
	}
}

// RunNow runs a sweep immediately and returns its report, or ErrSweepRunning
// when another sweep is in progress.
func (s *Scheduler) RunNow(ctx context.Context) (models.SweepReport, error) {
	if !s.sweeping.TryLock() {
		return models.SweepReport{}, ErrSweepRunning
	}
	defer s.sweeping.Unlock()
	return s.sweep(ctx), nil
}

func (s *Scheduler) sweep(ctx context.Context) models.SweepReport {
	s.mu.Lock()
	workers := s.workers
	s.running = true
	s.mu.Unlock()

	report := s.sweeper.Sweep(ctx, workers)

	s.mu.Lock()
	s.running = false
	s.last = &report
	s.mu.Unlock()
	return report
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		s.mu.Lock()
		interval := s.interval
		reset := s.resetCh
		s.mu.Unlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-reset:
			timer.Stop()
			continue
		case <-timer.C:
		}

		if !s.sweeping.TryLock() {
			s.logger.Warn("previous sweep still running, skipping tick")
			continue
		}
		s.sweep(ctx)
		s.sweeping.Unlock()
	}
}
