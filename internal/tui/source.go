package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/storage"
	"github.com/ankityadav/statusboard/internal/uptime"
)

const (
	sparklineChecks = 60
	loadTimeout     = 15 * time.Second
)

// StatusSource returns the latest probe cycle; *checker.Checker implements it.
type StatusSource interface {
	Latest() (health.SystemStatus, bool)
}

type UptimeReader interface {
	History(ctx context.Context, days int) []uptime.DailyUptime
}

// ProbeHistory is the probe log; *storage.Database implements it.
type ProbeHistory interface {
	GetRecentProbeRecords(ctx context.Context, serviceID string, limit int) ([]storage.ProbeRecord, error)
	GetProbeStats(ctx context.Context, serviceID string, since time.Time) (total, operational int64, avgLatency float64, err error)
}

type IncidentReader interface {
	Bundle(ctx context.Context) incident.Bundle
}

// Source is everything the terminal views read. Probes may be nil.
type Source struct {
	Status    StatusSource
	Uptime    UptimeReader
	Probes    ProbeHistory
	Incidents IncidentReader
	Days      int
}

type snapshot struct {
	status    health.SystemStatus
	hasStatus bool
	history   []uptime.DailyUptime
	probes    map[string][]storage.ProbeRecord
	incidents incident.Bundle
	loadedAt  time.Time
}

type snapshotMsg snapshot

func (s Source) load(ctx context.Context) snapshot {
	snap := snapshot{
		probes:   map[string][]storage.ProbeRecord{},
		loadedAt: time.Now(),
	}

	if s.Status != nil {
		snap.status, snap.hasStatus = s.Status.Latest()
	}
	if s.Uptime != nil {
		days := s.Days
		if days == 0 {
			days = uptime.DefaultDays
		}
		snap.history = s.Uptime.History(ctx, days)
	}
	if s.Incidents != nil {
		snap.incidents = s.Incidents.Bundle(ctx)
	}
	if s.Probes != nil {
		for _, svc := range snap.status.Services {
			records, err := s.Probes.GetRecentProbeRecords(ctx, svc.ServiceID, sparklineChecks)
			if err == nil {
				snap.probes[svc.ServiceID] = records
			}
		}
	}

	return snap
}

// loadCmd reads the source off the UI goroutine.
func loadCmd(src Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		return snapshotMsg(src.load(ctx))
	}
}
