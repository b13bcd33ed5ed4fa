// Package tray shows the overall system status in the desktop menu bar.
package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/ankityadav/statusboard/internal/config"
	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/registry"
)

// Runner triggers an immediate check cycle; *checker.Checker implements it.
type Runner interface {
	RunOnce(ctx context.Context) (health.SystemStatus, error)
}

type TrayApp struct {
	reg       registry.Registry
	runner    Runner
	log       zerolog.Logger
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	overall   health.Status
	mStatus   *systray.MenuItem
	mServices map[string]*systray.MenuItem
	pending   *health.SystemStatus
}

func New(reg registry.Registry, runner Runner, log zerolog.Logger) *TrayApp {
	ctx, cancel := context.WithCancel(context.Background())
	return &TrayApp{
		reg:       reg,
		runner:    runner,
		log:       log.With().Str("component", "tray").Logger(),
		ctx:       ctx,
		cancel:    cancel,
		overall:   health.StatusUnknown,
		mServices: map[string]*systray.MenuItem{},
	}
}

// Run blocks until the user quits from the menu.
func (t *TrayApp) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the menu and unblocks Run.
func (t *TrayApp) Quit() {
	systray.Quit()
}

// Done is closed once the tray has exited.
func (t *TrayApp) Done() <-chan struct{} {
	return t.ctx.Done()
}

func (t *TrayApp) onReady() {
	systray.SetIcon(iconFor(health.StatusUnknown))
	systray.SetTitle("")
	systray.SetTooltip(config.AppName + " - " + health.StatusUnknown.Headline())

	mStatus := systray.AddMenuItem("○ "+health.StatusUnknown.Headline(), "Current status")
	mStatus.Disable()

	for _, group := range t.reg.Grouped() {
		systray.AddSeparator()
		header := systray.AddMenuItem("── "+group.Group.DisplayName()+" ──", "")
		header.Disable()

		for _, svc := range group.Services {
			item := systray.AddMenuItem("○ "+svc.Name, svc.Description)
			item.Disable()
			t.mu.Lock()
			t.mServices[svc.ID] = item
			t.mu.Unlock()
		}
	}

	systray.AddSeparator()
	mRefresh := systray.AddMenuItem("↻ Refresh Now", "Check all services immediately")

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit "+config.AppName, "Stop monitoring and exit")

	t.mu.Lock()
	t.mStatus = mStatus
	pending := t.pending
	t.pending = nil
	t.mu.Unlock()
	if pending != nil {
		t.Update(*pending)
	}

	go func() {
		for {
			select {
			case <-mRefresh.ClickedCh:
				go t.refresh()
			case <-mQuit.ClickedCh:
				systray.Quit()
				return
			case <-t.ctx.Done():
				return
			}
		}
	}()
}

func (t *TrayApp) onExit() {
	t.cancel()
}

func (t *TrayApp) refresh() {
	if t.runner == nil {
		return
	}
	if _, err := t.runner.RunOnce(t.ctx); err != nil {
		t.log.Warn().Err(err).Msg("manual refresh failed")
	}
}

// Update applies one check cycle to the menu. It is safe to call from the
// checker goroutine, including before the menu is ready.
func (t *TrayApp) Update(st health.SystemStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mStatus == nil {
		t.pending = &st
		return
	}

	for _, svc := range st.Services {
		item, ok := t.mServices[svc.ServiceID]
		if !ok {
			continue
		}
		item.SetTitle(serviceLabel(svc))
	}

	t.overall = st.Overall
	message := statusMessage(st)
	systray.SetIcon(iconFor(st.Overall))
	systray.SetTooltip(config.AppName + " - " + message)
	t.mStatus.SetTitle(trayGlyph(st.Overall) + " " + message)
}

func serviceLabel(svc health.ServiceHealth) string {
	label := fmt.Sprintf("%s %s", trayGlyph(svc.Status), svc.Name)
	if ms, ok := svc.Latency.Milliseconds(); ok && svc.Status == health.StatusOperational {
		return fmt.Sprintf("%s (%dms)", label, ms)
	}
	return fmt.Sprintf("%s (%s)", label, svc.Status)
}

func statusMessage(st health.SystemStatus) string {
	statuses := make([]health.Status, len(st.Services))
	for i, svc := range st.Services {
		statuses[i] = svc.Status
	}
	c := health.CountStatuses(statuses)

	switch st.Overall {
	case health.StatusOperational:
		return fmt.Sprintf("All %d services operational", c.Total)
	case health.StatusDegraded:
		return fmt.Sprintf("%s: %d degraded, %d down, %d up", st.Overall.Headline(), c.Degraded, c.Outage, c.Operational)
	case health.StatusOutage:
		return fmt.Sprintf("%s: %d down, %d up", st.Overall.Headline(), c.Outage, c.Operational)
	default:
		return st.Overall.Headline()
	}
}

func trayGlyph(s health.Status) string {
	switch s {
	case health.StatusOperational:
		return "●"
	case health.StatusDegraded:
		return "◐"
	case health.StatusOutage:
		return "✗"
	default:
		return "○"
	}
}
