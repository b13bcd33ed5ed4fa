// Package incident loads incident and maintenance records from text documents
// and exposes the filtered views the dashboard renders.
package incident

import (
	"time"
)

type Type string

const (
	TypeIncident    Type = "incident"
	TypeMaintenance Type = "maintenance"
)

func (t Type) Valid() bool {
	return t == TypeIncident || t == TypeMaintenance
}

type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// Color is the display colour name used by renderers.
func (s Severity) Color() string {
	switch s {
	case SeverityCritical:
		return "red"
	case SeverityMajor:
		return "orange"
	case SeverityMinor:
		return "yellow"
	default:
		return "gray"
	}
}

type Status string

const (
	StatusInvestigating Status = "investigating"
	StatusIdentified    Status = "identified"
	StatusMonitoring    Status = "monitoring"
	StatusResolved      Status = "resolved"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInvestigating, StatusIdentified, StatusMonitoring, StatusResolved:
		return true
	}
	return false
}

func (s Status) Color() string {
	switch s {
	case StatusResolved:
		return "green"
	case StatusMonitoring:
		return "blue"
	case StatusIdentified:
		return "yellow"
	case StatusInvestigating:
		return "orange"
	default:
		return "gray"
	}
}

// Update is one timestamped entry in an incident timeline.
type Update struct {
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
}

// Incident is one parsed document. Updates are ordered newest first and
// Status always matches the newest update when there is one.
type Incident struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Type             Type       `json:"type"`
	Severity         Severity   `json:"severity"`
	Status           Status     `json:"status"`
	AffectedServices []string   `json:"affectedServices"`
	CreatedAt        time.Time  `json:"createdAt"`
	ResolvedAt       *time.Time `json:"resolvedAt"`
	ScheduledStart   *time.Time `json:"scheduledStart,omitempty"`
	ScheduledEnd     *time.Time `json:"scheduledEnd,omitempty"`
	Updates          []Update   `json:"updates"`
}

func (i *Incident) IsResolved() bool {
	return i.Status == StatusResolved
}

func (i *Incident) IsMaintenance() bool {
	return i.Type == TypeMaintenance
}

// Duration is the time from creation until resolution, or until now while
// the incident is still open.
func (i *Incident) Duration() time.Duration {
	if i.ResolvedAt != nil {
		return i.ResolvedAt.Sub(i.CreatedAt)
	}
	return time.Since(i.CreatedAt)
}

// Affects reports whether serviceID is listed as affected.
func (i *Incident) Affects(serviceID string) bool {
	for _, id := range i.AffectedServices {
		if id == serviceID {
			return true
		}
	}
	return false
}
