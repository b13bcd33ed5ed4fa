package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ankityadav/statusboard/internal/api"
	"github.com/ankityadav/statusboard/internal/config"
	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/incident"
	"github.com/ankityadav/statusboard/internal/tray"
	"github.com/ankityadav/statusboard/internal/tui"
	"github.com/ankityadav/statusboard/internal/uptime"
)

// Version is set at compile time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           config.AppName,
	Short:         "Service status dashboard",
	Long:          "Probes platform services, tracks daily uptime and publishes incidents over HTTP, a terminal UI and the system tray",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the status API and run the scheduled checker",
	RunE:  runServe,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scheduled checker without the API",
	RunE:  runDaemon,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the checker with the interactive service list",
	RunE:  runStart,
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the real-time status dashboard with latency graphs",
	RunE:  runDashboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe every service once and print the result",
	RunE:  runStatus,
}

var uptimeCmd = &cobra.Command{
	Use:   "uptime",
	Short: "Print daily uptime history",
	RunE:  runUptime,
}

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "List incidents and scheduled maintenance",
	RunE:  runIncidents,
}

var trayCmd = &cobra.Command{
	Use:   "tray",
	Short: "Show the overall status in the system tray",
	RunE:  runTray,
}

var (
	flagPretty    bool
	flagLogLevel  string
	flagPort      string
	flagInterval  time.Duration
	flagNoChecker bool
	flagJSON      bool
	flagDays      int
	flagType      string
	flagLimit     int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uptimeCmd)
	rootCmd.AddCommand(incidentsCmd)
	rootCmd.AddCommand(trayCmd)

	rootCmd.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "Human readable console logs")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().DurationVarP(&flagInterval, "interval", "i", 0, "Check interval (overrides CHECK_INTERVAL)")

	serveCmd.Flags().StringVarP(&flagPort, "port", "p", "", "Listen port (overrides SERVER_PORT)")
	serveCmd.Flags().BoolVar(&flagNoChecker, "no-checker", false, "Serve the API without the scheduled checker")

	for _, cmd := range []*cobra.Command{statusCmd, uptimeCmd, incidentsCmd} {
		cmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON")
	}
	uptimeCmd.Flags().IntVarP(&flagDays, "days", "d", config.DefaultHistoryDays, "Number of days")
	incidentsCmd.Flags().StringVarP(&flagType, "type", "t", "all", "active, maintenance, recent or all")
	incidentsCmd.Flags().IntVarP(&flagLimit, "limit", "l", incident.DefaultRecentLimit, "Number of recent incidents")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	var log zerolog.Logger
	if flagPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}

	if flagLogLevel != "" {
		level = flagLogLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return log.Level(lvl).
		With().
		Timestamp().
		Str("service", config.AppName).
		Str("version", Version).
		Logger()
}

// setup loads configuration, applies flag overrides and wires the app.
func setup(ctx context.Context, quiet bool, onCycle ...func(health.SystemStatus)) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagInterval > 0 {
		cfg.Checker.Interval = flagInterval
	}
	if flagPort != "" {
		cfg.Server.Port = flagPort
	}

	level := cfg.LogLevel
	if quiet {
		level = "error"
	}

	return newApp(ctx, cfg, newLogger(level), onCycle...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Checker.Enabled && !flagNoChecker {
		a.checker.Start(ctx)
	}

	router := api.NewRouter(api.RouterConfig{
		Version:    Version,
		Logger:     a.log,
		Status:     a.dashboard,
		Incidents:  a.incidents,
		Metrics:    a.metrics,
		RateLimit:  a.cfg.Server.RateLimit,
		TrustProxy: a.cfg.Server.TrustProxy,
	})

	server := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("addr", server.Addr).
			Int("services", a.registry.Len()).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	a.log.Info().Msg("server stopped")
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	a.checker.Start(ctx)
	a.log.Info().Msg("monitoring service started in daemon mode")

	<-ctx.Done()
	a.log.Info().Msg("shutting down")
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	return runProgram(func(src tui.Source) tea.Model { return tui.New(src) })
}

func runDashboard(cmd *cobra.Command, args []string) error {
	return runProgram(func(src tui.Source) tea.Model { return tui.NewDashboard(src) })
}

// runProgram runs the checker in the background under a full screen view.
// Logging is kept to errors so it does not tear the screen.
func runProgram(view func(tui.Source) tea.Model) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	a.checker.Start(ctx)

	p := tea.NewProgram(
		view(a.tuiSource()),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI error: %w", err)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.dashboard.Status(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(st)
	}

	fmt.Printf("%s (%.2f%% of services operational)\n\n", st.Overall.Headline(), st.UptimePercentage)

	byID := make(map[string]health.ServiceHealth, len(st.Services))
	for _, svc := range st.Services {
		byID[svc.ServiceID] = svc
	}

	for _, group := range a.registry.Grouped() {
		fmt.Println(group.Name)
		for _, s := range group.Services {
			svc := byID[s.ID]
			line := fmt.Sprintf("  %-22s %-12s %8s", svc.Name, svc.Status, svc.Latency)
			if svc.Error != "" {
				line += "  " + svc.Error
			}
			fmt.Println(line)
		}
	}

	if st.Overall != health.StatusOperational {
		return fmt.Errorf("overall status is %s", st.Overall)
	}
	return nil
}

func runUptime(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.dashboard.Uptime(ctx, uptime.ClampDays(flagDays))
	if flagJSON {
		return printJSON(report)
	}

	if !a.uptime.Configured() {
		fmt.Println("No uptime backend configured, history is synthetic")
	}
	fmt.Printf("Uptime over %d days: %.2f%%\n\n", report.Period, report.TotalUptime)
	fmt.Printf("%-12s %8s %8s %8s\n", "Date", "Checks", "Failures", "Uptime")
	fmt.Println(strings.Repeat("-", 40))

	for i := len(report.Days) - 1; i >= 0; i-- {
		d := report.Days[i]
		fmt.Printf("%-12s %8d %8d %7.2f%%\n", d.Date, d.Checks, d.Failures, d.Uptime)
	}
	return nil
}

func runIncidents(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	limit := min(max(flagLimit, 1), incident.MaxRecentLimit)

	sections := []struct {
		title string
		list  func() []incident.Incident
	}{
		{"Active Incidents", func() []incident.Incident { return a.incidents.Active(ctx) }},
		{"Scheduled Maintenance", func() []incident.Incident { return a.incidents.ScheduledMaintenance(ctx) }},
		{"Recent Incidents", func() []incident.Incident { return a.incidents.Recent(ctx, limit) }},
	}

	switch flagType {
	case "active":
		sections = sections[:1]
	case "maintenance":
		sections = sections[1:2]
	case "recent":
		sections = sections[2:]
	case "all", "":
		if flagJSON {
			return printJSON(a.incidents.BundleLimit(ctx, limit))
		}
	default:
		return fmt.Errorf("invalid type %q", flagType)
	}

	if flagJSON {
		return printJSON(sections[0].list())
	}

	for _, section := range sections {
		list := section.list()
		fmt.Printf("%s (%d)\n", section.title, len(list))
		if len(list) == 0 {
			fmt.Println("  none")
		}
		for _, inc := range list {
			fmt.Printf("  %-28s %-9s %-13s %s\n", inc.ID, inc.Severity, inc.Status, inc.Title)
		}
		fmt.Println()
	}
	return nil
}

func runTray(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var indicator *tray.TrayApp
	a, err := setup(ctx, false, func(st health.SystemStatus) {
		if indicator != nil {
			indicator.Update(st)
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	indicator = tray.New(a.registry, a.checker, a.log)
	a.checker.Start(ctx)

	go func() {
		select {
		case <-ctx.Done():
			indicator.Quit()
		case <-indicator.Done():
		}
	}()

	indicator.Run()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
