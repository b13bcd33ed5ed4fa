package incident

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// Bundle holds all three views computed from a single load.
type Bundle struct {
	Active      []Incident `json:"activeIncidents"`
	Maintenance []Incident `json:"scheduledMaintenance"`
	Recent      []Incident `json:"recentIncidents"`
}

// Repository is a read-through view over a Source. Nothing is cached;
// every call reloads the documents.
type Repository struct {
	source Source
	parser Parser
	log    zerolog.Logger
	now    func() time.Time
}

type Option func(*Repository)

func WithParser(p Parser) Option {
	return func(r *Repository) { r.parser = p }
}

func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// NewRepository builds a repository. A nil source yields no incidents.
func NewRepository(source Source, log zerolog.Logger, opts ...Option) *Repository {
	r := &Repository{
		source: source,
		parser: MarkdownParser{},
		log:    log.With().Str("component", "incidents").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load parses every document, newest id first. Malformed documents are
// logged and skipped; an unreadable source yields an empty list.
func (r *Repository) Load(ctx context.Context) []Incident {
	if r.source == nil {
		return []Incident{}
	}

	docs, err := r.source.Documents(ctx)
	if err != nil {
		if len(docs) == 0 {
			r.log.Error().Err(err).Msg("failed to load incident documents")
			return []Incident{}
		}
		r.log.Warn().Err(err).Int("loaded", len(docs)).Msg("some incident documents could not be read")
	}

	incidents := make([]Incident, 0, len(docs))
	for _, doc := range docs {
		inc, err := r.parser.Parse(doc)
		if err != nil {
			ev := r.log.Warn()
			if !errors.Is(err, ErrMalformed) {
				ev = r.log.Error()
			}
			ev.Err(err).Str("document", doc.Name).Msg("skipping incident document")
			continue
		}
		incidents = append(incidents, inc)
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].ID > incidents[j].ID
	})
	return incidents
}

func (r *Repository) Active(ctx context.Context) []Incident {
	return Active(r.Load(ctx))
}

func (r *Repository) ScheduledMaintenance(ctx context.Context) []Incident {
	return ScheduledMaintenance(r.Load(ctx), r.now())
}

func (r *Repository) Recent(ctx context.Context, limit int) []Incident {
	return Recent(r.Load(ctx), limit)
}

func (r *Repository) Bundle(ctx context.Context) Bundle {
	return r.BundleLimit(ctx, DefaultRecentLimit)
}

// BundleLimit is Bundle with an explicit recent limit.
func (r *Repository) BundleLimit(ctx context.Context, limit int) Bundle {
	all := r.Load(ctx)
	return Bundle{
		Active:      Active(all),
		Maintenance: ScheduledMaintenance(all, r.now()),
		Recent:      Recent(all, limit),
	}
}

// Active keeps unresolved incidents of type incident.
func Active(all []Incident) []Incident {
	out := []Incident{}
	for _, inc := range all {
		if inc.Type == TypeIncident && !inc.IsResolved() {
			out = append(out, inc)
		}
	}
	return out
}

// ScheduledMaintenance keeps unresolved maintenance that has not ended by now,
// ordered by scheduled start with undated entries first.
func ScheduledMaintenance(all []Incident, now time.Time) []Incident {
	out := []Incident{}
	for _, inc := range all {
		if inc.Type != TypeMaintenance || inc.IsResolved() {
			continue
		}
		if inc.ScheduledEnd != nil && inc.ScheduledEnd.Before(now) {
			continue
		}
		out = append(out, inc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ScheduledStart, out[j].ScheduledStart
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return out
}

// Recent returns the first limit entries; a non-positive limit means the default.
func Recent(all []Incident, limit int) []Incident {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > len(all) {
		limit = len(all)
	}
	out := make([]Incident, limit)
	copy(out, all[:limit])
	return out
}
