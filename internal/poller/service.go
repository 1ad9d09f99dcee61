package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	robfigcron "github.com/robfig/cron/v3"

	"github.com/coopco/remindbot/internal/logging"
	"github.com/coopco/remindbot/internal/reminder"
	"github.com/coopco/remindbot/internal/schedule"
)

// DefaultInterval is the tick period when Config.Interval is zero.
const DefaultInterval = 10 * time.Second

var ErrDeliveryFailure = errors.New("reminder delivery failed")

// Notifier delivers a reminder's text to its destination channel.
type Notifier interface {
	Send(ctx context.Context, destinationID, text, mentionOwnerID string) error
}

type Config struct {
	Store    reminder.Store
	Notifier Notifier
	Interval time.Duration
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Service scans all stored reminders on a fixed interval and fires the due
// ones. Scans never overlap.
type Service struct {
	store     reminder.Store
	notifier  Notifier
	interval  time.Duration
	clock     func() time.Time
	logger    *slog.Logger
	scheduler *robfigcron.Cron
	entry     robfigcron.EntryID
	mu        sync.Mutex
	running   bool
	stopped   context.Context
}

func New(cfg Config) *Service {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(logging.LoggerNameKey, "poller")

	cronLogger := logging.CronLogger(logger)
	return &Service{
		store:    cfg.Store,
		notifier: cfg.Notifier,
		interval: interval,
		clock:    clock,
		logger:   logger,
		scheduler: robfigcron.New(
			robfigcron.WithLogger(cronLogger),
			robfigcron.WithChain(
				robfigcron.Recover(cronLogger),
				robfigcron.DelayIfStillRunning(cronLogger),
			),
		),
	}
}

// Start schedules the periodic scan. Scans run with ctx; cancelling it
// stops the scheduler.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	if s.entry != 0 {
		s.scheduler.Remove(s.entry)
	}
	s.entry = s.scheduler.Schedule(robfigcron.Every(s.interval), robfigcron.FuncJob(func() {
		s.RunOnce(ctx)
	}))
	s.scheduler.Start()
	s.mu.Unlock()
	s.logger.Info("poller: started", "interval", s.interval)

	go func() {
		<-ctx.Done()
		<-s.Stop().Done()
	}()
}

// Stop stops scheduling new scans. The returned context is done once the
// scan in progress, if any, has finished. Repeated calls return the same
// context.
func (s *Service) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		s.logger.Info("poller: stopping")
		s.stopped = s.scheduler.Stop()
	}
	if s.stopped == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.stopped
}

// RunOnce performs one scan at the current clock time.
func (s *Service) RunOnce(ctx context.Context) {
	s.tick(ctx, s.clock())
}

func (s *Service) tick(ctx context.Context, now time.Time) {
	log := s.logger.With("tick_id", uuid.NewString())
	var fired, failed int

	for c, err := range s.store.ListDue(ctx, now) {
		if err != nil {
			log.Error("poller: failed to read reminder collection", tint.Err(err))
			continue
		}
		for name, invalidErr := range c.Invalid() {
			log.Warn("poller: skipping unreadable reminder", "owner", c.OwnerID, "name", name, tint.Err(invalidErr))
		}
		for _, r := range c.Due(now) {
			if err := s.fire(ctx, log, r, now); err != nil {
				failed++
				log.Error("poller: reminder not fired", "owner", r.OwnerID, "name", r.Name, tint.Err(err))
				continue
			}
			fired++
		}
	}

	if fired > 0 || failed > 0 {
		log.Info("poller: scan complete", "fired", fired, "failed", failed)
	} else {
		log.Debug("poller: scan complete, nothing due")
	}
}

// fire delivers r and, on success, writes back the next fire time.
func (s *Service) fire(ctx context.Context, log *slog.Logger, r reminder.Reminder, now time.Time) error {
	if err := s.notifier.Send(ctx, r.DestinationID, r.Text, r.OwnerID); err != nil {
		return fmt.Errorf("%w: channel %s: %w", ErrDeliveryFailure, r.DestinationID, err)
	}
	log.Info("poller: reminder sent", "owner", r.OwnerID, "name", r.Name)

	next := schedule.NextFire(r.Cadence, r.NextFireAt)
	firedAt := now
	err := s.store.ApplyUpdate(ctx, r.OwnerID, r.Name, reminder.Update{
		NextFireAt:  &next,
		LastFiredAt: &firedAt,
	})
	if err != nil {
		// Delivered but not rescheduled: the next tick fires it again.
		log.Error("poller: failed to reschedule reminder", "owner", r.OwnerID, "name", r.Name, tint.Err(err))
		return nil
	}
	log.Info("poller: reminder rescheduled", "owner", r.OwnerID, "name", r.Name, "next", next.Format(reminder.TimestampLayout))
	return nil
}
