// Package scheduler runs the gym's daily batch jobs in-process.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gymflow/internal/calendar"
	"gymflow/internal/config"
)

// Job is a task that runs once per local date at Hour:Minute.
type Job struct {
	Name   string
	Hour   int
	Minute int
	Run    func(ctx context.Context) error
}

// Scheduler checks its jobs every CheckInterval. A job fires on the first
// check that falls within Window of its start time, at most once per date
// in the gym timezone. A process started after the window misses that day.
type Scheduler struct {
	jobs     []Job
	interval time.Duration
	window   time.Duration
	clock    calendar.Clock
	loc      *time.Location
	logger   *zap.Logger

	mu      sync.Mutex
	lastRun map[string]string
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler. Nil clock and location default to the system
// clock and UTC.
func New(cfg config.SchedulerConfig, clock calendar.Clock, loc *time.Location, logger *zap.Logger, jobs ...Job) *Scheduler {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	window := cfg.Window
	if window < interval {
		window = interval
	}
	return &Scheduler{
		jobs:     jobs,
		interval: interval,
		window:   window,
		clock:    clock,
		loc:      loc,
		logger:   logger,
		lastRun:  make(map[string]string),
	}
}

// DailyJobs returns the payment reminder, birthday and auto-expire jobs at
// the configured times.
func DailyJobs(cfg config.SchedulerConfig, paymentReminders, birthdayWishes, autoExpire func(ctx context.Context) error) []Job {
	return []Job{
		{Name: "payment reminders", Hour: cfg.ReminderHour, Minute: cfg.ReminderMinute, Run: paymentReminders},
		{Name: "birthday wishes", Hour: cfg.ReminderHour, Minute: cfg.ReminderMinute, Run: birthdayWishes},
		{Name: "auto-expire", Hour: cfg.ExpireHour, Minute: cfg.ExpireMinute, Run: autoExpire},
	}
}

// Start launches the check loop. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	for _, j := range s.jobs {
		s.logger.Info("Scheduled daily job",
			zap.String("job", j.Name),
			zap.String("at", fmt.Sprintf("%02d:%02d", j.Hour, j.Minute)),
			zap.String("timezone", s.loc.String()),
		)
	}
}

// Stop cancels the loop and waits for a running job to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs every job that is due now and has not run today.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now().In(s.loc)
	date := calendar.Format(now)

	for _, j := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		if !s.due(j, now, date) {
			continue
		}
		s.run(ctx, j)
	}
}

func (s *Scheduler) due(j Job, now time.Time, date string) bool {
	start := time.Date(now.Year(), now.Month(), now.Day(), j.Hour, j.Minute, 0, 0, s.loc)
	if now.Before(start) || !now.Before(start.Add(s.window)) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun[j.Name] == date {
		return false
	}
	s.lastRun[j.Name] = date
	return true
}

func (s *Scheduler) run(ctx context.Context, j Job) {
	log := s.logger.With(zap.String("job", j.Name))
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			log.Error("Scheduled job panicked", zap.Any("panic", p))
		}
	}()

	log.Info("Running scheduled job")
	if err := j.Run(ctx); err != nil {
		log.Error("Scheduled job failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	log.Info("Scheduled job finished", zap.Duration("elapsed", time.Since(start)))
}
