package tray

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankityadav/statusboard/internal/health"
	"github.com/ankityadav/statusboard/internal/registry"
)

func TestIconFor(t *testing.T) {
	for _, s := range []health.Status{
		health.StatusOperational,
		health.StatusDegraded,
		health.StatusOutage,
		health.StatusUnknown,
	} {
		data := iconFor(s)
		require.NotEmpty(t, data, s)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, iconSize, img.Bounds().Dx())

		r, g, b, _ := img.At(iconSize/2, iconSize/2).RGBA()
		want := iconColor(s)
		assert.Equal(t, uint32(want.R), r>>8, s)
		assert.Equal(t, uint32(want.G), g>>8, s)
		assert.Equal(t, uint32(want.B), b>>8, s)

		_, _, _, a := img.At(0, 0).RGBA()
		assert.Zero(t, a, "corner should be transparent")
	}

	assert.True(t, bytes.Equal(iconFor(health.StatusOutage), iconFor(health.StatusOutage)))
}

func TestStatusMessage(t *testing.T) {
	svc := func(s health.Status) health.ServiceHealth {
		return health.ServiceHealth{ServiceID: string(s), Status: s}
	}

	tests := []struct {
		name string
		st   health.SystemStatus
		want string
	}{
		{
			name: "operational",
			st:   health.SystemStatus{Overall: health.StatusOperational, Services: []health.ServiceHealth{svc(health.StatusOperational), svc(health.StatusOperational)}},
			want: "All 2 services operational",
		},
		{
			name: "degraded",
			st:   health.SystemStatus{Overall: health.StatusDegraded, Services: []health.ServiceHealth{svc(health.StatusOperational), svc(health.StatusOutage)}},
			want: "Degraded Performance: 0 degraded, 1 down, 1 up",
		},
		{
			name: "outage",
			st:   health.SystemStatus{Overall: health.StatusOutage, Services: []health.ServiceHealth{svc(health.StatusOutage), svc(health.StatusUnknown)}},
			want: "Service Outage: 1 down, 0 up",
		},
		{
			name: "unknown",
			st:   health.SystemStatus{Overall: health.StatusUnknown},
			want: "Status Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusMessage(tt.st))
		})
	}
}

func TestServiceLabel(t *testing.T) {
	up := health.ServiceHealth{Name: "API", Status: health.StatusOperational, Latency: health.Measured(42 * time.Millisecond)}
	assert.Equal(t, "● API (42ms)", serviceLabel(up))

	down := health.ServiceHealth{Name: "API", Status: health.StatusOutage, Latency: health.Unmeasured()}
	assert.Equal(t, "✗ API (outage)", serviceLabel(down))
}

func TestUpdateBeforeReadyIsDeferred(t *testing.T) {
	app := New(registry.MustNew(), nil, zerolog.Nop())
	st := health.SystemStatus{Overall: health.StatusOutage}

	app.Update(st)
	require.NotNil(t, app.pending)
	assert.Equal(t, health.StatusOutage, app.pending.Overall)
	assert.Equal(t, health.StatusUnknown, app.overall)
}
