// Package uptime keeps durable per-day check counters and computes rolling
// uptime percentages from them.
package uptime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	DateLayout    = "2006-01-02"
	MinDays       = 1
	MaxDays       = 365
	DefaultDays   = 90
	RetentionDays = 95
)

// ErrUnavailable is returned by RecordCheck when no backend is configured.
var ErrUnavailable = errors.New("uptime backend not configured")

// DailyUptime holds the counters for one UTC calendar day.
type DailyUptime struct {
	Date     string  `json:"date"`
	Uptime   float64 `json:"uptime"`
	Checks   int64   `json:"checks"`
	Failures int64   `json:"failures"`
}

// NewDailyUptime builds a day entry, clamping failures into [0, checks].
func NewDailyUptime(date string, checks, failures int64) DailyUptime {
	if checks < 0 {
		checks = 0
	}
	if failures < 0 {
		failures = 0
	}
	if failures > checks {
		failures = checks
	}
	d := DailyUptime{Date: date, Checks: checks, Failures: failures, Uptime: 100}
	if checks > 0 {
		d.Uptime = float64(checks-failures) / float64(checks) * 100
	}
	return d
}

// Backend persists day counters. Increment must be atomic per date.
type Backend interface {
	Increment(ctx context.Context, date string, failed bool) (DailyUptime, error)
	Fetch(ctx context.Context, dates []string) (map[string]DailyUptime, error)
}

// Pruner is implemented by backends that need explicit expiry.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) error
}

// Store records checks and serves history. With a nil backend it runs in
// synthetic mode and reports 100% for every day.
type Store struct {
	backend   Backend
	log       zerolog.Logger
	now       func() time.Time
	retention int
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithRetentionDays(days int) Option {
	return func(s *Store) {
		if days >= RetentionDays {
			s.retention = days
		}
	}
}

func NewStore(backend Backend, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		log:       log.With().Str("component", "uptime").Logger(),
		now:       time.Now,
		retention: RetentionDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configured reports whether the store has a real backend.
func (s *Store) Configured() bool {
	return s.backend != nil
}

func (s *Store) today() time.Time {
	return s.now().UTC()
}

// RecordCheck counts one check for today, and one failure when isUp is false.
func (s *Store) RecordCheck(ctx context.Context, isUp bool) (DailyUptime, error) {
	if s.backend == nil {
		s.log.Debug().Msg("backend not configured, skipping check recording")
		return DailyUptime{}, ErrUnavailable
	}

	date := s.today().Format(DateLayout)
	day, err := s.backend.Increment(ctx, date, !isUp)
	if err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("failed to record check")
		return DailyUptime{}, fmt.Errorf("record check for %s: %w", date, err)
	}
	return day, nil
}

// ClampDays bounds a requested window to [MinDays, MaxDays].
func ClampDays(days int) int {
	if days < MinDays {
		return MinDays
	}
	if days > MaxDays {
		return MaxDays
	}
	return days
}

// WindowDates returns the ISO dates of the window ending on today, oldest first.
func WindowDates(today time.Time, days int) []string {
	days = ClampDays(days)
	today = today.UTC()
	dates := make([]string, days)
	for i := 0; i < days; i++ {
		dates[days-1-i] = today.AddDate(0, 0, -i).Format(DateLayout)
	}
	return dates
}

// History returns exactly ClampDays(days) entries ending today, oldest first.
// Missing days, and every day when the backend is absent or failing, come
// back as zero-check 100% entries.
func (s *Store) History(ctx context.Context, days int) []DailyUptime {
	dates := WindowDates(s.today(), days)

	stored := map[string]DailyUptime{}
	if s.backend == nil {
		s.log.Debug().Msg("backend not configured, returning default uptime data")
	} else {
		fetched, err := s.backend.Fetch(ctx, dates)
		if err != nil {
			s.log.Error().Err(err).Int("days", len(dates)).Msg("failed to get uptime history")
		} else {
			stored = fetched
		}
	}

	history := make([]DailyUptime, len(dates))
	for i, date := range dates {
		if d, ok := stored[date]; ok {
			history[i] = NewDailyUptime(date, d.Checks, d.Failures)
			continue
		}
		history[i] = NewDailyUptime(date, 0, 0)
	}
	return history
}

// Prune drops data older than the retention window on backends that do not
// expire keys themselves.
func (s *Store) Prune(ctx context.Context) error {
	p, ok := s.backend.(Pruner)
	if !ok {
		return nil
	}
	before := s.today().AddDate(0, 0, -s.retention)
	if err := p.Prune(ctx, before); err != nil {
		return fmt.Errorf("prune uptime before %s: %w", before.Format(DateLayout), err)
	}
	return nil
}

// CalculateUptimePercentage is the check-weighted uptime over a history.
// Days without checks are ignored; a history without any checks is 100%.
func CalculateUptimePercentage(history []DailyUptime) float64 {
	var checks, failures int64
	for _, d := range history {
		if d.Checks <= 0 {
			continue
		}
		checks += d.Checks
		failures += d.Failures
	}
	if checks == 0 {
		return 100
	}
	return float64(checks-failures) / float64(checks) * 100
}
