// Package scheduler drives the periodic jobs: the reminder tick and the
// weekly digest. The model is a single in-process ticker per job, nominally
// once per day for reminders. Overlapping runs are not mutually excluded
// across processes; the reminder engine's de-duplication window is the only
// guard against duplicate sends.
package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/averos/go-gift-report/internal/domain"
	"github.com/averos/go-gift-report/internal/services"
)

var (
	tickRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_ticks_total",
			Help: "Total reminder ticks, by result.",
		},
		[]string{"result"}, // ok|error
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Total reminder emails sent.",
		},
	)

	remindersFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_failed_total",
			Help: "Total reminder sends that failed.",
		},
	)

	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_tick_duration_seconds",
			Help:    "Duration of one reminder tick.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(tickRuns, remindersSent, remindersFailed, tickDuration)
}

// Scheduler owns the periodic job loops.
type Scheduler struct {
	Reminders *services.ReminderService
	Summary   *services.SummaryService

	// ReminderCfg is handed to the engine on every tick; it is never read
	// from ambient state inside the engine itself.
	ReminderCfg domain.ReminderConfig

	ReminderInterval time.Duration
	DigestEnabled    bool
	DigestInterval   time.Duration

	Log zerolog.Logger
}

// Run blocks until ctx is cancelled, firing the reminder tick every
// ReminderInterval and the digest every DigestInterval when enabled. The
// first reminder tick fires immediately so a restart never delays overdue
// reminders by a full interval.
func (s *Scheduler) Run(ctx context.Context) {
	remTicker := time.NewTicker(s.ReminderInterval)
	defer remTicker.Stop()

	var digestC <-chan time.Time
	if s.DigestEnabled {
		digestTicker := time.NewTicker(s.DigestInterval)
		defer digestTicker.Stop()
		digestC = digestTicker.C
	}

	s.runReminderTick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("scheduler stopped")
			return
		case <-remTicker.C:
			s.runReminderTick(ctx)
		case <-digestC:
			s.runDigest(ctx)
		}
	}
}

// runReminderTick executes one reminder pass and records its metrics.
func (s *Scheduler) runReminderTick(ctx context.Context) {
	start := time.Now()
	res, err := s.Reminders.RunTick(ctx, s.ReminderCfg, time.Now().UTC())
	tickDuration.Observe(time.Since(start).Seconds())

	remindersSent.Add(float64(res.Sent))
	remindersFailed.Add(float64(res.Failed))

	if err != nil {
		tickRuns.WithLabelValues("error").Inc()
		if err == services.ErrRemindersDisabled || err == services.ErrEmptySchedule {
			s.Log.Debug().Err(err).Msg("reminder tick skipped")
			return
		}
		s.Log.Error().Err(err).Msg("reminder tick failed")
		return
	}

	tickRuns.WithLabelValues("ok").Inc()
	s.Log.Info().
		Int("scanned", res.Scanned).
		Int("sent", res.Sent).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Msg("reminder tick complete")
}

// runDigest sends the weekly digest.
func (s *Scheduler) runDigest(ctx context.Context) {
	data, err := s.Summary.SendDigest(ctx, time.Now().UTC())
	if err != nil {
		if err == services.ErrNoDigestRecipient {
			s.Log.Debug().Msg("digest skipped: no recipient configured")
			return
		}
		s.Log.Error().Err(err).Msg("weekly digest failed")
		return
	}
	s.Log.Info().
		Int64("total_gifts", data.Summary.TotalGifts).
		Float64("claim_rate", data.Summary.ClaimRate).
		Msg("weekly digest complete")
}
