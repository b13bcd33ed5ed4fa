package checker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/registry"
	"github.com/ankityadav/statusboard/internal/storage"
	"github.com/ankityadav/statusboard/internal/uptime"
)

type scriptedChecker struct {
	mu      sync.Mutex
	overall []health.Status
	err     error
	calls   atomic.Int32
}

func (s *scriptedChecker) Check(_ context.Context, reg registry.Registry) (health.SystemStatus, error) {
	n := int(s.calls.Add(1)) - 1
	if s.err != nil {
		return health.SystemStatus{}, s.err
	}
	s.mu.Lock()
	overall := s.overall[n%len(s.overall)]
	s.mu.Unlock()

	services := make([]health.ServiceHealth, 0, reg.Len())
	for _, svc := range reg.Services() {
		services = append(services, health.ServiceHealth{
			ServiceID:   svc.ID,
			Status:      overall,
			Latency:     health.Measured(10 * time.Millisecond),
			LastChecked: time.Now().UTC(),
		})
	}
	return health.SystemStatus{Overall: overall, Services: services, LastUpdated: time.Now().UTC()}, nil
}

type fakeRecorder struct {
	mu     sync.Mutex
	checks []bool
	prunes int
	err    error
}

func (f *fakeRecorder) RecordCheck(_ context.Context, isUp bool) (uptime.DailyUptime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return uptime.DailyUptime{}, f.err
	}
	f.checks = append(f.checks, isUp)
	return uptime.DailyUptime{}, nil
}

func (f *fakeRecorder) Prune(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prunes++
	return nil
}

func (f *fakeRecorder) recorded() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.checks...)
}

type countingMetrics struct {
	cycles, recordErrors atomic.Int32
}

func (m *countingMetrics) ObserveCycle(health.Status) { m.cycles.Add(1) }
func (m *countingMetrics) ObserveRecordError()        { m.recordErrors.Add(1) }

func testRegistry() registry.Registry {
	return registry.MustNew(
		registry.Service{ID: "api", Name: "API", HealthURL: "http://api.invalid/health", Group: registry.GroupAPI},
		registry.Service{ID: "web", Name: "Web", HealthURL: "http://web.invalid/health", Group: registry.GroupFrontend},
	)
}

func TestRunOnce_RecordsByOverallStatus(t *testing.T) {
	status := &scriptedChecker{overall: []health.Status{
		health.StatusOperational,
		health.StatusDegraded,
		health.StatusOutage,
		health.StatusUnknown,
	}}
	rec := &fakeRecorder{}
	c := New(testRegistry(), status, rec, zerolog.Nop())

	for i := 0; i < 4; i++ {
		_, err := c.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []bool{true, false, false}, rec.recorded())
	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, health.StatusUnknown, latest.Overall)
}

func TestRunOnce_CheckFailureRecordsNothing(t *testing.T) {
	status := &scriptedChecker{err: health.ErrNoServices}
	rec := &fakeRecorder{}
	c := New(registry.MustNew(), status, rec, zerolog.Nop())

	_, err := c.RunOnce(context.Background())
	assert.ErrorIs(t, err, health.ErrNoServices)
	assert.Empty(t, rec.recorded())

	_, ok := c.Latest()
	assert.False(t, ok)
}

func TestRunOnce_RecordErrorsAreCounted(t *testing.T) {
	m := &countingMetrics{}
	status := &scriptedChecker{overall: []health.Status{health.StatusOperational}}

	c := New(testRegistry(), status, &fakeRecorder{err: errors.New("redis down")}, zerolog.Nop(), WithMetrics(m))
	_, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.cycles.Load())
	assert.Equal(t, int32(1), m.recordErrors.Load())

	c = New(testRegistry(), status, &fakeRecorder{err: uptime.ErrUnavailable}, zerolog.Nop(), WithMetrics(m))
	_, err = c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), m.recordErrors.Load())
}

func TestRunOnce_PrunesOncePerDay(t *testing.T) {
	day := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	var now atomic.Pointer[time.Time]
	now.Store(&day)

	rec := &fakeRecorder{}
	status := &scriptedChecker{overall: []health.Status{health.StatusOperational}}
	c := New(testRegistry(), status, rec, zerolog.Nop(), WithClock(func() time.Time { return *now.Load() }))

	for i := 0; i < 3; i++ {
		_, _ = c.RunOnce(context.Background())
	}
	assert.Equal(t, 1, rec.prunes)

	next := day.AddDate(0, 0, 1)
	now.Store(&next)
	_, _ = c.RunOnce(context.Background())
	assert.Equal(t, 2, rec.prunes)
}

func TestRunOnce_WritesProbeLogAndUptime(t *testing.T) {
	db, err := storage.New(storage.MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	store := uptime.NewStore(db, zerolog.Nop())
	status := &scriptedChecker{overall: []health.Status{health.StatusOperational, health.StatusOutage}}
	c := New(testRegistry(), status, store, zerolog.Nop(), WithProbeLog(db))

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := c.RunOnce(ctx)
		require.NoError(t, err)
	}

	records, err := db.GetRecentProbeRecords(ctx, "api", 10)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	history := store.History(ctx, 1)
	assert.Equal(t, int64(4), history[0].Checks)
	assert.Equal(t, int64(2), history[0].Failures)
}

func TestStartStop(t *testing.T) {
	status := &scriptedChecker{overall: []health.Status{health.StatusOperational}}
	rec := &fakeRecorder{}

	cycles := make(chan health.SystemStatus, 8)
	c := New(testRegistry(), status, rec, zerolog.Nop(), OnCycle(func(st health.SystemStatus) {
		select {
		case cycles <- st:
		default:
		}
	}))
	c.interval = 20 * time.Millisecond

	c.Start(context.Background())
	for i := 0; i < 3; i++ {
		select {
		case st := <-cycles:
			assert.Equal(t, health.StatusOperational, st.Overall)
		case <-time.After(2 * time.Second):
			t.Fatal("checker did not run")
		}
	}
	c.Stop()
	c.Stop()

	n := status.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, n, status.calls.Load())
}

func TestStart_StopsWithContext(t *testing.T) {
	status := &scriptedChecker{overall: []health.Status{health.StatusOperational}}
	c := New(testRegistry(), status, &fakeRecorder{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("checker did not stop on context cancel")
	}
}

func TestWithInterval_IgnoresSubSecond(t *testing.T) {
	c := New(testRegistry(), &scriptedChecker{}, nil, zerolog.Nop(), WithInterval(10*time.Millisecond))
	assert.Equal(t, 60*time.Second, c.Interval())

	c = New(testRegistry(), &scriptedChecker{}, nil, zerolog.Nop(), WithInterval(5*time.Second))
	assert.Equal(t, 5*time.Second, c.Interval())
}
