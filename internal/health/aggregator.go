package health

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ankityadav/statusboard/internal/registry"
)

// ErrNoServices is returned when there is nothing to aggregate.
var ErrNoServices = errors.New("no services to aggregate")

// Counts is the status multiset of one cycle.
type Counts struct {
	Total       int
	Operational int
	Degraded    int
	Outage      int
	Unknown     int
}

func CountStatuses(statuses []Status) Counts {
	c := Counts{Total: len(statuses)}
	for _, s := range statuses {
		switch s {
		case StatusOperational:
			c.Operational++
		case StatusDegraded:
			c.Degraded++
		case StatusOutage:
			c.Outage++
		default:
			c.Unknown++
		}
	}
	return c
}

type overallRule struct {
	name   string
	match  func(c Counts) bool
	status Status
}

// overallRules is evaluated top to bottom; the first match wins. Every rule
// depends only on counts, so the result is independent of input order.
var overallRules = []overallRule{
	{
		name:   "all outage",
		match:  func(c Counts) bool { return c.Outage == c.Total },
		status: StatusOutage,
	},
	{
		name:   "any outage or degraded",
		match:  func(c Counts) bool { return c.Outage > 0 || c.Degraded > 0 },
		status: StatusDegraded,
	},
	{
		name:   "all unknown",
		match:  func(c Counts) bool { return c.Unknown == c.Total },
		status: StatusUnknown,
	},
	{
		name:   "otherwise",
		match:  func(Counts) bool { return true },
		status: StatusOperational,
	},
}

// Reduce returns the overall status for a non-empty status multiset.
func Reduce(statuses []Status) (Status, error) {
	if len(statuses) == 0 {
		return "", ErrNoServices
	}
	c := CountStatuses(statuses)
	for _, r := range overallRules {
		if r.match(c) {
			return r.status, nil
		}
	}
	return StatusOperational, nil
}

// SnapshotRatio is the share of operational statuses as a percentage with two
// decimals. It returns 0 for an empty input.
func SnapshotRatio(statuses []Status) float64 {
	if len(statuses) == 0 {
		return 0
	}
	c := CountStatuses(statuses)
	return Round2(float64(c.Operational) / float64(c.Total) * 100)
}

// ServiceProber is anything that can probe one service.
type ServiceProber interface {
	Probe(ctx context.Context, svc registry.Service) ServiceHealth
}

// Aggregator fans probes out over a registry and reduces the results.
type Aggregator struct {
	prober ServiceProber
	now    func() time.Time
}

func NewAggregator(p ServiceProber) *Aggregator {
	return &Aggregator{prober: p, now: time.Now}
}

// Check probes every service concurrently and waits for all of them before
// computing the system status. Services keep registry order in the result.
func (a *Aggregator) Check(ctx context.Context, reg registry.Registry) (SystemStatus, error) {
	services := reg.Services()
	if len(services) == 0 {
		return SystemStatus{}, ErrNoServices
	}

	results := make([]ServiceHealth, len(services))

	var g errgroup.Group
	for i, svc := range services {
		i, svc := i, svc
		g.Go(func() error {
			results[i] = a.prober.Probe(ctx, svc)
			return nil
		})
	}
	_ = g.Wait()

	return Summarize(results, a.now().UTC())
}

// Summarize builds a SystemStatus from already collected results.
func Summarize(results []ServiceHealth, at time.Time) (SystemStatus, error) {
	statuses := make([]Status, len(results))
	for i, r := range results {
		statuses[i] = r.Status
	}

	overall, err := Reduce(statuses)
	if err != nil {
		return SystemStatus{}, err
	}

	return SystemStatus{
		Overall:          overall,
		Services:         results,
		LastUpdated:      at,
		UptimePercentage: SnapshotRatio(statuses),
	}, nil
}
