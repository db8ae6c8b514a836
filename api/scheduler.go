/*
scheduler.go - Cron-driven background jobs

PURPOSE:
  Runs the ledger's housekeeping on cron schedules in the configured time
  zone:
  - Payday reminder: logs when today is payday and which bills are due
  - Bill rollover: advances satisfied, past-due bills to their next cycle
  - Rate refresh: pulls the reference rate feed into the converter

DESIGN:
  - robfig/cron owns the goroutines and the schedule parsing
  - Each job gets its own timeout context and a latency observation
  - A failing job logs and waits for its next tick; nothing is retried
  - Rollover also runs once on Start so a restart catches up

CONFIGURATION:
  - ReminderSpec / RolloverSpec / RateSpec: standard 5-field cron specs,
    empty disables the job
  - RateSpec is ignored when the handler has no rate client

USAGE:
  scheduler := NewScheduler(handler, cfg)
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RolloverBills and RefreshRates (manual triggers)
  - config/config.go: cron spec validation
*/
package api

import (
	"context"
	"fmt"
	stdlog "log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/warp/payday-engine/bills"
	"github.com/warp/payday-engine/metrics"
)

const jobTimeout = 30 * time.Second

// SchedulerConfig selects which jobs run and when.
type SchedulerConfig struct {
	Location     *time.Location // nil means time.Local
	ReminderSpec string
	RolloverSpec string
	RateSpec     string
}

// Scheduler runs the background jobs against a Handler's services.
type Scheduler struct {
	Handler *Handler
	Config  SchedulerConfig
	Log     zerolog.Logger

	cron *cron.Cron
	mu   sync.Mutex
}

type job struct {
	name string
	spec string
	run  func(context.Context) error
}

// Reminder is what the payday reminder found.
type Reminder struct {
	IsPayday bool
	DueBills []bills.View // overdue or due soon
}

// NewScheduler creates a scheduler. Nothing runs until Start.
func NewScheduler(h *Handler, cfg SchedulerConfig) *Scheduler {
	return &Scheduler{
		Handler: h,
		Config:  cfg,
		Log:     h.Log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the configured jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}
	loc := s.Config.Location
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cron.PrintfLogger(stdlog.New(s.Log, "", 0))),
	)

	jobs := []job{
		{"payday-reminder", s.Config.ReminderSpec, func(ctx context.Context) error {
			_, err := s.RemindPayday(ctx)
			return err
		}},
		{"bill-rollover", s.Config.RolloverSpec, func(ctx context.Context) error {
			_, err := s.RolloverBills(ctx)
			return err
		}},
	}
	if s.Handler.Rates != nil {
		jobs = append(jobs, job{"rate-refresh", s.Config.RateSpec, s.RefreshRates})
	}

	for _, j := range jobs {
		if j.spec == "" {
			continue
		}
		name, run := j.name, j.run
		if _, err := c.AddFunc(j.spec, func() { s.runJob(name, run) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", name, j.spec, err)
		}
		s.Log.Info().Str("job", name).Str("spec", j.spec).Msg("job scheduled")
	}

	// Run rollover immediately on start
	if s.Config.RolloverSpec != "" {
		s.runJob("bill-rollover", func(ctx context.Context) error {
			_, err := s.RolloverBills(ctx)
			return err
		})
	}

	c.Start()
	s.cron = c
	s.Log.Info().Str("location", loc.String()).Int("jobs", len(c.Entries())).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.Log.Info().Msg("scheduler stopped")
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return 0
	}
	return len(s.cron.Entries())
}

func (s *Scheduler) runJob(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := run(ctx)
	metrics.ObserveOperation("job "+name, start, err)
	if err != nil {
		s.Log.Error().Err(err).Str("job", name).Msg("job failed")
	}
}

// =============================================================================
// JOBS
// =============================================================================

// RemindPayday logs when today is payday and lists overdue or due-soon bills.
func (s *Scheduler) RemindPayday(ctx context.Context) (Reminder, error) {
	isPayday, err := s.Handler.Paydays.IsTodayPayday(ctx)
	if err != nil {
		return Reminder{}, err
	}
	list, err := s.Handler.Bills.List(ctx)
	if err != nil {
		return Reminder{}, err
	}

	rem := Reminder{IsPayday: isPayday}
	for _, v := range list {
		if v.Status == bills.StatusOverdue || v.Status == bills.StatusDueSoon {
			rem.DueBills = append(rem.DueBills, v)
		}
	}

	if isPayday {
		s.Log.Info().Msg("today is payday")
	}
	for _, v := range rem.DueBills {
		s.Log.Info().
			Str("bill_id", string(v.ID)).
			Str("name", v.Name).
			Str("status", string(v.Status)).
			Int("days_until", v.DaysUntil).
			Msg("bill needs attention")
	}
	return rem, nil
}

// RolloverBills advances satisfied, past-due bills and returns how many
// moved.
func (s *Scheduler) RolloverBills(ctx context.Context) (int, error) {
	moved, err := s.Handler.Bills.RolloverDue(ctx)
	if err != nil {
		return 0, err
	}
	return len(moved), nil
}

// RefreshRates pulls the rate feed. Without a client it does nothing.
func (s *Scheduler) RefreshRates(ctx context.Context) error {
	if s.Handler.Rates == nil {
		return nil
	}
	_, err := s.Handler.Rates.Refresh(ctx, s.Handler.Converter)
	return err
}
