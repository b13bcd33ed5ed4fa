// Package health probes service health endpoints and reduces the results
// into an overall system status.
package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/ankityadav/statusboard/internal/registry"
)

// Status is the health classification of a service or of the whole system.
type Status string

const (
	StatusOperational Status = "operational"
	StatusDegraded    Status = "degraded"
	StatusOutage      Status = "outage"
	StatusUnknown     Status = "unknown"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOperational, StatusDegraded, StatusOutage, StatusUnknown:
		return true
	}
	return false
}

// Headline is the human readable banner for an overall status.
func (s Status) Headline() string {
	switch s {
	case StatusOperational:
		return "All Systems Operational"
	case StatusDegraded:
		return "Degraded Performance"
	case StatusOutage:
		return "Service Outage"
	default:
		return "Status Unknown"
	}
}

// Latency is either a measured round trip in milliseconds or unmeasured.
// Unmeasured serializes as JSON null.
type Latency struct {
	ms       int64
	measured bool
}

func Measured(d time.Duration) Latency {
	return Latency{ms: d.Milliseconds(), measured: true}
}

func Unmeasured() Latency {
	return Latency{}
}

// Milliseconds returns the latency and whether it was measured.
func (l Latency) Milliseconds() (int64, bool) {
	return l.ms, l.measured
}

func (l Latency) IsMeasured() bool {
	return l.measured
}

func (l Latency) String() string {
	if !l.measured {
		return "-"
	}
	return fmt.Sprintf("%dms", l.ms)
}

func (l Latency) MarshalJSON() ([]byte, error) {
	if !l.measured {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(l.ms, 10)), nil
}

func (l *Latency) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Unmeasured()
		return nil
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("invalid latency: %w", err)
	}
	*l = Latency{ms: ms, measured: true}
	return nil
}

// ServiceHealth is the result of one probe. It lives for one request cycle.
type ServiceHealth struct {
	ServiceID   string         `json:"serviceId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Group       registry.Group `json:"group"`
	Status      Status         `json:"status"`
	Latency     Latency        `json:"latency"`
	LastChecked time.Time      `json:"lastChecked"`
	StatusCode  int            `json:"statusCode,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// SystemStatus is the aggregate of one probe cycle.
type SystemStatus struct {
	Overall          Status          `json:"overall"`
	Services         []ServiceHealth `json:"services"`
	LastUpdated      time.Time       `json:"lastUpdated"`
	UptimePercentage float64         `json:"uptimePercentage"`
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
