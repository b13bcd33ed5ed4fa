package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ankityadav/statusboard/internal/registry"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "statusboard/1.0"
	MaxRedirects     = 10

	maxPayloadBytes = 64 << 10
)

// Observer receives every probe result. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveProbe(h ServiceHealth)
}

// Prober issues single health probes.
type Prober struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	now       func() time.Time
	observer  Observer
}

type Option func(*Prober)

// WithHTTPClient replaces the default client. The client's own Timeout is
// left alone; the probe deadline is applied through the request context.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Prober) { p.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		if ua != "" {
			p.userAgent = ua
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Prober) { p.now = now }
}

func WithObserver(o Observer) Option {
	return func(p *Prober) { p.observer = o }
}

func NewProber(opts ...Option) *Prober {
	p := &Prober{
		client: &http.Client{
			// The final response of a redirect chain is classified.
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("stopped after %d redirects", MaxRedirects)
				}
				return nil
			},
		},
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe performs exactly one GET against the service health URL. It never
// fails: every error is folded into the returned status.
func (p *Prober) Probe(ctx context.Context, svc registry.Service) ServiceHealth {
	h := p.probe(ctx, svc)
	if p.observer != nil {
		p.observer.ObserveProbe(h)
	}
	return h
}

func (p *Prober) probe(ctx context.Context, svc registry.Service) ServiceHealth {
	result := ServiceHealth{
		ServiceID:   svc.ID,
		Name:        svc.Name,
		Description: svc.Description,
		Group:       svc.Group,
		Latency:     Unmeasured(),
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	startTime := p.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.HealthURL, nil)
	if err != nil {
		return p.finish(result, outcome{err: err})
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json, */*;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.finish(result, outcome{err: err, timedOut: isTimeout(ctx, err)})
	}
	defer resp.Body.Close()

	result.Latency = Measured(p.now().Sub(startTime))
	result.StatusCode = resp.StatusCode

	return p.finish(result, outcome{
		statusCode:    resp.StatusCode,
		payloadStatus: readPayloadStatus(resp.Body),
	})
}

func (p *Prober) finish(h ServiceHealth, o outcome) ServiceHealth {
	h.Status, h.Error = classify(o)
	h.LastChecked = p.now().UTC()
	return h
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readPayloadStatus extracts a top level "status" field from a JSON body.
// Bodies that are not JSON, or cannot be read, yield "".
func readPayloadStatus(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxPayloadBytes))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Status))
}
