// Package dashboard assembles the combined status view served to clients.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/registry"
	"github.com/ankityadav/statusboard/internal/uptime"
)

type StatusChecker interface {
	Check(ctx context.Context, reg registry.Registry) (health.SystemStatus, error)
}

type UptimeReader interface {
	History(ctx context.Context, days int) []uptime.DailyUptime
}

type IncidentReader interface {
	Bundle(ctx context.Context) incident.Bundle
}

// UptimeReport is the rolling-window uptime response.
type UptimeReport struct {
	Days        []uptime.DailyUptime `json:"days"`
	TotalUptime float64              `json:"totalUptime"`
	Period      int                  `json:"period"`
}

type Summary struct {
	Status    health.SystemStatus `json:"status"`
	Uptime    UptimeReport        `json:"uptime"`
	Incidents incident.Bundle     `json:"incidents"`
}

type Service struct {
	registry  registry.Registry
	checker   StatusChecker
	uptime    UptimeReader
	incidents IncidentReader
}

func New(reg registry.Registry, checker StatusChecker, up UptimeReader, incidents IncidentReader) *Service {
	return &Service{
		registry:  reg,
		checker:   checker,
		uptime:    up,
		incidents: incidents,
	}
}

func (s *Service) Registry() registry.Registry {
	return s.registry
}

// Status runs one probe cycle over the registry.
func (s *Service) Status(ctx context.Context) (health.SystemStatus, error) {
	st, err := s.checker.Check(ctx, s.registry)
	if err != nil {
		return health.SystemStatus{}, fmt.Errorf("check services: %w", err)
	}
	return st, nil
}

// Uptime returns the clamped history window and its total rounded to two
// decimals.
func (s *Service) Uptime(ctx context.Context, days int) UptimeReport {
	history := s.uptime.History(ctx, days)
	return UptimeReport{
		Days:        history,
		TotalUptime: health.Round2(uptime.CalculateUptimePercentage(history)),
		Period:      len(history),
	}
}

// Summary runs the probe cycle, the uptime read and the incident load
// concurrently. Only a probe cycle failure fails the summary.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		out Summary
		g   errgroup.Group
	)

	g.Go(func() error {
		st, err := s.Status(ctx)
		if err != nil {
			return err
		}
		out.Status = st
		return nil
	})
	g.Go(func() error {
		out.Uptime = s.Uptime(ctx, uptime.DefaultDays)
		return nil
	})
	g.Go(func() error {
		out.Incidents = s.incidents.Bundle(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}
