package incident

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

// ErrMalformed wraps every parse failure.
var ErrMalformed = errors.New("malformed incident document")

const untitled = "Untitled Incident"

// Document is one raw incident record as read from a Source.
type Document struct {
	Name    string
	Content []byte
	ModTime time.Time
}

// ID is the document name without directory or extension.
func (d Document) ID() string {
	base := path.Base(strings.ReplaceAll(d.Name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

type Parser interface {
	Parse(doc Document) (Incident, error)
}

// MarkdownParser reads a "---" delimited metadata block followed by update
// sections headed "### <timestamp> - <Status>".
type MarkdownParser struct{}

var updateHeading = regexp.MustCompile(`^###\s+(\S+)\s+-\s+(\w+)\s*$`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func malformed(id, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrMalformed, id, fmt.Sprintf(format, args...))
}

func (MarkdownParser) Parse(doc Document) (Incident, error) {
	id := doc.ID()
	content := strings.ReplaceAll(string(doc.Content), "\r\n", "\n")

	meta, body, err := splitFrontmatter(content)
	if err != nil {
		return Incident{}, malformed(id, "%v", err)
	}

	inc := Incident{
		ID:               id,
		Title:            untitled,
		Type:             TypeIncident,
		Severity:         SeverityMinor,
		AffectedServices: []string{},
	}

	if title := meta.scalar("title"); title != "" {
		inc.Title = title
	}
	if v := meta.scalar("type"); v != "" {
		inc.Type = Type(strings.ToLower(v))
		if !inc.Type.Valid() {
			return Incident{}, malformed(id, "unknown type %q", v)
		}
	}
	if v := meta.scalar("severity"); v != "" {
		inc.Severity = Severity(strings.ToLower(v))
		if !inc.Severity.Valid() {
			return Incident{}, malformed(id, "unknown severity %q", v)
		}
	}
	declared := StatusInvestigating
	if v := meta.scalar("status"); v != "" {
		declared = Status(strings.ToLower(v))
		if !declared.Valid() {
			return Incident{}, malformed(id, "unknown status %q", v)
		}
	}
	inc.AffectedServices = append(inc.AffectedServices, meta.list("affected", "affectedServices", "affected_services")...)

	created, err := meta.time("created", "createdAt", "created_at")
	if err != nil {
		return Incident{}, malformed(id, "%v", err)
	}
	if created != nil {
		inc.CreatedAt = *created
	} else {
		inc.CreatedAt = doc.ModTime.UTC()
	}
	if inc.ResolvedAt, err = meta.time("resolved", "resolvedAt", "resolved_at"); err != nil {
		return Incident{}, malformed(id, "%v", err)
	}
	if inc.ScheduledStart, err = meta.time("scheduled_start", "scheduledStart", "start"); err != nil {
		return Incident{}, malformed(id, "%v", err)
	}
	if inc.ScheduledEnd, err = meta.time("scheduled_end", "scheduledEnd", "end"); err != nil {
		return Incident{}, malformed(id, "%v", err)
	}

	if inc.Updates, err = parseUpdates(body); err != nil {
		return Incident{}, malformed(id, "%v", err)
	}

	inc.Status = declared
	if len(inc.Updates) > 0 {
		inc.Status = inc.Updates[0].Status
		if inc.Status == StatusResolved && inc.ResolvedAt == nil {
			resolved := inc.Updates[0].Timestamp
			inc.ResolvedAt = &resolved
		}
	}

	return inc, nil
}

type metadata map[string]string

func splitFrontmatter(content string) (metadata, string, error) {
	meta := metadata{}
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, "---") {
		return meta, content, nil
	}

	lines := strings.Split(trimmed, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return meta, content, nil
	}

	for i := 1; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "---" {
			return meta, strings.Join(lines[i+1:], "\n"), nil
		}
		key, value, ok := strings.Cut(line, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" || strings.HasPrefix(key, "#") {
			continue
		}
		meta[strings.ToLower(key)] = strings.TrimSpace(value)
	}

	return nil, "", errors.New("metadata block is not terminated")
}

func (m metadata) lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := m[strings.ToLower(k)]; ok {
			return v, true
		}
	}
	return "", false
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '"' && v[len(v)-1] == '"' || v[0] == '\'' && v[len(v)-1] == '\'') {
		return v[1 : len(v)-1]
	}
	return v
}

func (m metadata) scalar(keys ...string) string {
	v, _ := m.lookup(keys...)
	return unquote(v)
}

// list accepts "[a, b]" or a bare comma separated value.
func (m metadata) list(keys ...string) []string {
	v, ok := m.lookup(keys...)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		v = v[1 : len(v)-1]
	}

	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = unquote(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (m metadata) time(keys ...string) (*time.Time, error) {
	v := m.scalar(keys...)
	if v == "" || strings.EqualFold(v, "null") {
		return nil, nil
	}
	t, err := parseTimestamp(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keys[0], err)
	}
	return &t, nil
}

// parseTimestamp accepts RFC 3339 and a few shorter ISO forms, read as UTC
// when no zone is given.
func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

func parseUpdates(body string) ([]Update, error) {
	var (
		updates []Update
		current *Update
		message []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Message = strings.TrimSpace(strings.Join(message, "\n"))
		updates = append(updates, *current)
		current, message = nil, nil
	}

	for _, line := range strings.Split(body, "\n") {
		m := updateHeading.FindStringSubmatch(strings.TrimRight(line, " \t"))
		if m == nil {
			if current != nil {
				message = append(message, line)
			}
			continue
		}

		flush()
		ts, err := parseTimestamp(m[1])
		if err != nil {
			return nil, fmt.Errorf("update heading: %w", err)
		}
		status := Status(strings.ToLower(m[2]))
		if !status.Valid() {
			return nil, fmt.Errorf("update heading: unknown status %q", m[2])
		}
		current = &Update{Timestamp: ts, Status: status}
	}
	flush()

	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Timestamp.After(updates[j].Timestamp)
	})
	if updates == nil {
		updates = []Update{}
	}
	return updates, nil
}
