package checker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankityadav/statusboard/internal/config"
	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/registry"
	"github.com/ankityadav/statusboard/internal/uptime"
)

type StatusChecker interface {
	Check(ctx context.Context, reg registry.Registry) (health.SystemStatus, error)
}

// Recorder is the uptime side of a cycle; *uptime.Store implements it.
type Recorder interface {
	RecordCheck(ctx context.Context, isUp bool) (uptime.DailyUptime, error)
	Prune(ctx context.Context) error
}

// ProbeLog keeps individual probe results for latency history.
type ProbeLog interface {
	CreateProbeRecords(ctx context.Context, results []health.ServiceHealth) error
}

type Metrics interface {
	ObserveCycle(overall health.Status)
	ObserveRecordError()
}

// Checker runs a probe cycle over the registry on a fixed interval and
// records one uptime check per cycle.
type Checker struct {
	registry registry.Registry
	status   StatusChecker
	recorder Recorder
	probeLog ProbeLog
	metrics  Metrics
	log      zerolog.Logger
	interval time.Duration
	now      func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.RWMutex
	latest    health.SystemStatus
	hasLatest bool
	lastPrune string
	onCycle   []func(health.SystemStatus)
}

type Option func(*Checker)

func WithInterval(d time.Duration) Option {
	return func(c *Checker) {
		if d >= time.Second {
			c.interval = d
		}
	}
}

func WithProbeLog(l ProbeLog) Option {
	return func(c *Checker) { c.probeLog = l }
}

func WithMetrics(m Metrics) Option {
	return func(c *Checker) { c.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// OnCycle registers fn to receive every successful cycle result.
func OnCycle(fn func(health.SystemStatus)) Option {
	return func(c *Checker) { c.onCycle = append(c.onCycle, fn) }
}

func New(reg registry.Registry, status StatusChecker, recorder Recorder, log zerolog.Logger, opts ...Option) *Checker {
	c := &Checker{
		registry: reg,
		status:   status,
		recorder: recorder,
		log:      log.With().Str("component", "checker").Logger(),
		interval: time.Duration(config.DefaultCheckInterval) * time.Second,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checker) Interval() time.Duration {
	return c.interval
}

// Start runs the first cycle immediately and then one per interval until
// ctx is done or Stop is called.
func (c *Checker) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()

		c.RunOnce(ctx)

		for {
			select {
			case <-ticker.C:
				c.RunOnce(ctx)
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			}
		}
	}()

	c.log.Info().
		Dur("interval", c.interval).
		Int("services", c.registry.Len()).
		Msg("checker started")
}

// Stop ends the loop and waits for an in-flight cycle to finish.
func (c *Checker) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

// RunOnce probes every service, appends the results to the probe log and
// records the cycle outcome. Cycles whose overall status is unknown carry
// no signal and are not recorded.
func (c *Checker) RunOnce(ctx context.Context) (health.SystemStatus, error) {
	st, err := c.status.Check(ctx, c.registry)
	if err != nil {
		c.log.Error().Err(err).Msg("probe cycle failed")
		return health.SystemStatus{}, err
	}

	if c.metrics != nil {
		c.metrics.ObserveCycle(st.Overall)
	}

	if c.probeLog != nil {
		if err := c.probeLog.CreateProbeRecords(ctx, st.Services); err != nil {
			c.log.Warn().Err(err).Msg("failed to append probe records")
		}
	}

	for _, s := range st.Services {
		if s.Status != health.StatusOperational {
			c.log.Warn().
				Str("service", s.ServiceID).
				Str("status", string(s.Status)).
				Int("status_code", s.StatusCode).
				Str("error", s.Error).
				Msg("service not operational")
		}
	}

	c.record(ctx, st.Overall)
	c.pruneDaily(ctx)

	c.mu.Lock()
	c.latest, c.hasLatest = st, true
	callbacks := c.onCycle
	c.mu.Unlock()

	for _, fn := range callbacks {
		fn(st)
	}

	c.log.Debug().
		Str("overall", string(st.Overall)).
		Float64("uptime", st.UptimePercentage).
		Msg("probe cycle complete")
	return st, nil
}

func (c *Checker) record(ctx context.Context, overall health.Status) {
	if c.recorder == nil || overall == health.StatusUnknown {
		return
	}

	_, err := c.recorder.RecordCheck(ctx, overall == health.StatusOperational)
	switch {
	case err == nil:
	case errors.Is(err, uptime.ErrUnavailable):
		// synthetic mode, nothing to record
	default:
		c.log.Error().Err(err).Msg("failed to record uptime")
		if c.metrics != nil {
			c.metrics.ObserveRecordError()
		}
	}
}

// pruneDaily prunes at most once per UTC day.
func (c *Checker) pruneDaily(ctx context.Context) {
	if c.recorder == nil {
		return
	}
	today := c.now().UTC().Format(uptime.DateLayout)

	c.mu.Lock()
	due := c.lastPrune != today
	c.lastPrune = today
	c.mu.Unlock()

	if !due {
		return
	}
	if err := c.recorder.Prune(ctx); err != nil {
		c.log.Warn().Err(err).Msg("failed to prune uptime data")
	}
}

// Latest returns the most recent cycle result, if any.
func (c *Checker) Latest() (health.SystemStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.hasLatest
}
