// Package registry holds the static set of monitored services.
//
// A Registry is built once at startup and passed by value into the prober
// and aggregator; nothing in the process mutates it afterwards.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
)

// Group is the display group a service belongs to.
type Group string

const (
	GroupCore           Group = "core"
	GroupAPI            Group = "api"
	GroupFrontend       Group = "frontend"
	GroupInfrastructure Group = "infrastructure"
)

var groupMeta = map[Group]struct {
	name  string
	order int
}{
	GroupCore:           {"Core Services", 1},
	GroupAPI:            {"API Services", 2},
	GroupFrontend:       {"Frontend", 3},
	GroupInfrastructure: {"Infrastructure", 4},
}

// DisplayName returns the human readable group title.
func (g Group) DisplayName() string {
	if m, ok := groupMeta[g]; ok {
		return m.name
	}
	return string(g)
}

// Order returns the sort position of the group. Unknown groups sort last.
func (g Group) Order() int {
	if m, ok := groupMeta[g]; ok {
		return m.order
	}
	return len(groupMeta) + 1
}

func (g Group) Valid() bool {
	_, ok := groupMeta[g]
	return ok
}

// Service describes one monitored endpoint.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	HealthURL   string `json:"healthUrl"`
	Group       Group  `json:"group"`
}

var (
	ErrEmptyID     = errors.New("service id is required")
	ErrDuplicateID = errors.New("duplicate service id")
	ErrInvalidURL  = errors.New("invalid health url")
)

// Registry is an immutable, ordered collection of services.
type Registry struct {
	services []Service
	index    map[string]int
}

// New validates the services and returns a registry preserving their order.
func New(services ...Service) (Registry, error) {
	r := Registry{
		services: make([]Service, 0, len(services)),
		index:    make(map[string]int, len(services)),
	}

	for _, s := range services {
		if s.ID == "" {
			return Registry{}, ErrEmptyID
		}
		if _, exists := r.index[s.ID]; exists {
			return Registry{}, fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
		}
		u, err := url.Parse(s.HealthURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Registry{}, fmt.Errorf("%w for %s: %q", ErrInvalidURL, s.ID, s.HealthURL)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		r.index[s.ID] = len(r.services)
		r.services = append(r.services, s)
	}

	return r, nil
}

// MustNew is New for statically known service lists.
func MustNew(services ...Service) Registry {
	r, err := New(services...)
	if err != nil {
		panic(err)
	}
	return r
}

// Services returns a copy of the configured services in registration order.
func (r Registry) Services() []Service {
	out := make([]Service, len(r.services))
	copy(out, r.services)
	return out
}

func (r Registry) Len() int {
	return len(r.services)
}

func (r Registry) Lookup(id string) (Service, bool) {
	i, ok := r.index[id]
	if !ok {
		return Service{}, false
	}
	return r.services[i], true
}

// GroupedServices is one display group and its members.
type GroupedServices struct {
	Group    Group     `json:"group"`
	Name     string    `json:"name"`
	Services []Service `json:"services"`
}

// Grouped returns services bucketed by group, ordered by group display order.
// Services keep their registration order within a group.
func (r Registry) Grouped() []GroupedServices {
	byGroup := make(map[Group][]Service)
	var groups []Group
	for _, s := range r.services {
		if _, seen := byGroup[s.Group]; !seen {
			groups = append(groups, s.Group)
		}
		byGroup[s.Group] = append(byGroup[s.Group], s)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Order() < groups[j].Order()
	})

	out := make([]GroupedServices, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupedServices{
			Group:    g,
			Name:     g.DisplayName(),
			Services: byGroup[g],
		})
	}
	return out
}

// URLResolver returns the health URL to use for a service id, given its
// production default.
type URLResolver func(id, fallback string) string

// Default returns the production service set. resolve may be nil, in which
// case the production URLs are used unchanged.
func Default(resolve URLResolver) Registry {
	if resolve == nil {
		resolve = func(_, fallback string) string { return fallback }
	}

	return MustNew(
		Service{
			ID:          "rest-api",
			Name:        "REST API",
			Description: "External API for trading bot management",
			HealthURL:   resolve("rest-api", "https://rest-api.tokenbot.com/v1/health"),
			Group:       GroupAPI,
		},
		Service{
			ID:          "graphql",
			Name:        "GraphQL API",
			Description: "GraphQL backend for dashboards",
			HealthURL:   resolve("graphql", "https://gql-api.tokenbot.com/health"),
			Group:       GroupAPI,
		},
		Service{
			ID:          "dashboard",
			Name:        "User Dashboard",
			Description: "Web application for users",
			HealthURL:   resolve("dashboard", "https://app.tokenbot.com/api/health"),
			Group:       GroupFrontend,
		},
		Service{
			ID:          "admin-dashboard",
			Name:        "Admin Dashboard",
			Description: "Admin panel for management",
			HealthURL:   resolve("admin-dashboard", "https://admin.tokenbot.com/api/health"),
			Group:       GroupFrontend,
		},
		Service{
			ID:          "webhooks",
			Name:        "Webhooks Service",
			Description: "Webhook delivery service",
			HealthURL:   resolve("webhooks", "https://webhooks.tokenbot.com/health"),
			Group:       GroupCore,
		},
		Service{
			ID:          "landing",
			Name:        "Landing Page",
			Description: "Marketing website",
			HealthURL:   resolve("landing", "https://tokenbot.com"),
			Group:       GroupFrontend,
		},
	)
}
