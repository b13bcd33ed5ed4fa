package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankityadav/statusboard/internal/registry"
)

func serviceFor(url string) registry.Service {
	return registry.Service{
		ID:          "api",
		Name:        "API",
		Description: "test api",
		HealthURL:   url,
		Group:       registry.GroupAPI,
	}
}

func TestProbe_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		wantStatus Status
		wantError  bool
	}{
		{"ok plain", http.StatusOK, "OK", StatusOperational, false},
		{"no content", http.StatusNoContent, "", StatusOperational, false},
		{"ok json healthy", http.StatusOK, `{"status":"healthy"}`, StatusOperational, false},
		{"ok json degraded", http.StatusOK, `{"status":"degraded"}`, StatusDegraded, true},
		{"ok json unhealthy", http.StatusOK, `{"status":"UNHEALTHY"}`, StatusOutage, true},
		{"service unavailable", http.StatusServiceUnavailable, "down", StatusOutage, true},
		{"internal error json degraded", http.StatusInternalServerError, `{"status":"degraded"}`, StatusDegraded, true},
		{"not found", http.StatusNotFound, "", StatusDegraded, true},
		{"too many requests", http.StatusTooManyRequests, "", StatusDegraded, true},
		{"not modified", http.StatusNotModified, "", StatusUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			h := NewProber().Probe(context.Background(), serviceFor(srv.URL))

			assert.Equal(t, tt.wantStatus, h.Status)
			assert.Equal(t, "api", h.ServiceID)
			assert.Equal(t, tt.code, h.StatusCode)
			assert.True(t, h.Latency.IsMeasured())
			assert.False(t, h.LastChecked.IsZero())
			if tt.wantError {
				assert.NotEmpty(t, h.Error)
			} else {
				assert.Empty(t, h.Error)
			}
		})
	}
}

func TestProbe_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health/live", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := NewProber().Probe(context.Background(), serviceFor(srv.URL+"/health"))

	assert.Equal(t, StatusOperational, h.Status)
	assert.Equal(t, http.StatusOK, h.StatusCode)
	assert.Empty(t, h.Error)
}

func TestProbe_RedirectLoop(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	h := NewProber().Probe(context.Background(), serviceFor(srv.URL+"/loop"))

	assert.Equal(t, StatusUnknown, h.Status)
	assert.Contains(t, h.Error, "stopped after 10 redirects")
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, MaxRedirects, hits)
}

func TestProbe_SendsNoCacheHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	NewProber(WithUserAgent("probe-test/2.0")).Probe(context.Background(), serviceFor(srv.URL))

	require.NotNil(t, got)
	assert.Equal(t, "probe-test/2.0", got.Get("User-Agent"))
	assert.Contains(t, got.Get("Cache-Control"), "no-cache")
	assert.Equal(t, "no-cache", got.Get("Pragma"))
}

func TestProbe_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	h := NewProber(WithTimeout(50*time.Millisecond)).Probe(context.Background(), serviceFor(srv.URL))

	assert.Equal(t, TimeoutStatus, h.Status)
	assert.Equal(t, "Request timeout", h.Error)
	assert.False(t, h.Latency.IsMeasured())
}

func TestProbe_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	h := NewProber(WithTimeout(time.Second)).Probe(context.Background(), serviceFor("http://"+addr+"/health"))

	assert.Equal(t, StatusUnknown, h.Status)
	assert.NotEmpty(t, h.Error)
	assert.False(t, h.Latency.IsMeasured())
}

func TestProbe_InvalidURL(t *testing.T) {
	h := NewProber().Probe(context.Background(), serviceFor("http://[::1"))

	assert.Equal(t, StatusUnknown, h.Status)
	assert.NotEmpty(t, h.Error)
}

type recordingObserver struct {
	mu      sync.Mutex
	results []ServiceHealth
}

func (o *recordingObserver) ObserveProbe(h ServiceHealth) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, h)
}

func TestProbe_NotifiesObserver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	obs := &recordingObserver{}
	NewProber(WithObserver(obs)).Probe(context.Background(), serviceFor(srv.URL))

	require.Len(t, obs.results, 1)
	assert.Equal(t, StatusOperational, obs.results[0].Status)
}

func TestClassify_RuleOrder(t *testing.T) {
	tests := []struct {
		name string
		in   outcome
		want Status
	}{
		{"timeout wins over error", outcome{timedOut: true, err: errors.New("deadline")}, TimeoutStatus},
		{"transport error", outcome{err: errors.New("dial tcp: refused")}, StatusUnknown},
		{"2xx", outcome{statusCode: 200}, StatusOperational},
		{"2xx degraded payload", outcome{statusCode: 200, payloadStatus: "degraded"}, StatusDegraded},
		{"2xx unhealthy payload", outcome{statusCode: 204, payloadStatus: "unhealthy"}, StatusOutage},
		{"5xx", outcome{statusCode: 502}, StatusOutage},
		{"5xx degraded payload", outcome{statusCode: 503, payloadStatus: "degraded"}, StatusDegraded},
		{"4xx ignores payload", outcome{statusCode: 401, payloadStatus: "unhealthy"}, StatusDegraded},
		{"1xx", outcome{statusCode: 101}, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := classify(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLatency_JSON(t *testing.T) {
	b, err := Measured(42 * time.Millisecond).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))

	b, err = Unmeasured().MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	var l Latency
	require.NoError(t, l.UnmarshalJSON([]byte("17")))
	ms, ok := l.Milliseconds()
	assert.True(t, ok)
	assert.Equal(t, int64(17), ms)

	require.NoError(t, l.UnmarshalJSON([]byte("null")))
	assert.False(t, l.IsMeasured())
}
