package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolvedDoc = `---
title: API latency spike
type: incident
severity: major
status: investigating
affected: [rest-api, graphql]
created: 2026-10-14T09:00:00Z
---

### 2026-10-14T09:05:00Z - Investigating
We are looking into elevated response times.

### 2026-10-14T10:30:00Z - Resolved
Latency is back to normal.
A database index was rebuilt.
`

func parse(t *testing.T, name, content string) Incident {
	t.Helper()
	inc, err := MarkdownParser{}.Parse(Document{Name: name, Content: []byte(content)})
	require.NoError(t, err)
	return inc
}

func TestParse_TwoUpdatesNewestFirst(t *testing.T) {
	inc := parse(t, "incidents/2026-10-14-api-latency.md", resolvedDoc)

	assert.Equal(t, "2026-10-14-api-latency", inc.ID)
	assert.Equal(t, "API latency spike", inc.Title)
	assert.Equal(t, TypeIncident, inc.Type)
	assert.Equal(t, SeverityMajor, inc.Severity)
	assert.Equal(t, []string{"rest-api", "graphql"}, inc.AffectedServices)
	assert.Equal(t, time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC), inc.CreatedAt)

	require.Len(t, inc.Updates, 2)
	assert.Equal(t, StatusResolved, inc.Updates[0].Status)
	assert.Equal(t, "Latency is back to normal.\nA database index was rebuilt.", inc.Updates[0].Message)
	assert.Equal(t, StatusInvestigating, inc.Updates[1].Status)
	assert.Equal(t, "We are looking into elevated response times.", inc.Updates[1].Message)

	assert.Equal(t, StatusResolved, inc.Status)
	assert.True(t, inc.IsResolved())
	require.NotNil(t, inc.ResolvedAt)
	assert.Equal(t, 90*time.Minute, inc.Duration())
}

func TestParse_StatusFallbacks(t *testing.T) {
	inc := parse(t, "a.md", "---\ntitle: Queue backlog\nstatus: Identified\n---\nNo updates yet.\n")
	assert.Equal(t, StatusIdentified, inc.Status)
	assert.Empty(t, inc.Updates)
	assert.Nil(t, inc.ResolvedAt)

	inc = parse(t, "b.md", "---\ntitle: Queue backlog\n---\n")
	assert.Equal(t, StatusInvestigating, inc.Status)
}

func TestParse_Defaults(t *testing.T) {
	mod := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	inc, err := MarkdownParser{}.Parse(Document{Name: "bare.md", Content: []byte("just text"), ModTime: mod})
	require.NoError(t, err)

	assert.Equal(t, untitled, inc.Title)
	assert.Equal(t, TypeIncident, inc.Type)
	assert.Equal(t, SeverityMinor, inc.Severity)
	assert.Equal(t, StatusInvestigating, inc.Status)
	assert.Equal(t, mod, inc.CreatedAt)
	assert.NotNil(t, inc.AffectedServices)
	assert.Empty(t, inc.AffectedServices)
}

func TestParse_Maintenance(t *testing.T) {
	doc := "---\r\ntitle: \"Database upgrade\"\r\ntype: maintenance\r\naffected: webhooks\r\nscheduledStart: 2026-10-20T02:00:00Z\r\nscheduled_end: 2026-10-20 04:00\r\n---\r\n"
	inc := parse(t, "2026-10-20-db.md", doc)

	assert.Equal(t, "Database upgrade", inc.Title)
	assert.True(t, inc.IsMaintenance())
	assert.True(t, inc.Affects("webhooks"))
	require.NotNil(t, inc.ScheduledStart)
	require.NotNil(t, inc.ScheduledEnd)
	assert.Equal(t, 2*time.Hour, inc.ScheduledEnd.Sub(*inc.ScheduledStart))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unterminated metadata", "---\ntitle: x\n"},
		{"unknown type", "---\ntype: outage\n---\n"},
		{"unknown severity", "---\nseverity: catastrophic\n---\n"},
		{"unknown status", "---\nstatus: panicking\n---\n"},
		{"bad created", "---\ncreated: yesterday\n---\n"},
		{"bad update timestamp", "---\ntitle: x\n---\n### 14/10/2026 - Resolved\nok\n"},
		{"bad update status", "---\ntitle: x\n---\n### 2026-10-14T10:00:00Z - Fixed\nok\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarkdownParser{}.Parse(Document{Name: "bad.md", Content: []byte(tt.content)})
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestColors(t *testing.T) {
	assert.Equal(t, "red", SeverityCritical.Color())
	assert.Equal(t, "orange", SeverityMajor.Color())
	assert.Equal(t, "yellow", SeverityMinor.Color())
	assert.Equal(t, "green", StatusResolved.Color())
	assert.Equal(t, "blue", StatusMonitoring.Color())
	assert.Equal(t, "gray", Status("other").Color())
}
