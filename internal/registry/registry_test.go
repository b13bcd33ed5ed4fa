package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New(
		Service{ID: "a", HealthURL: "http://a.local/health"},
		Service{ID: "a", HealthURL: "http://b.local/health"},
	)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestNew_RejectsEmptyIDAndBadURL(t *testing.T) {
	_, err := New(Service{HealthURL: "http://a.local"})
	require.ErrorIs(t, err, ErrEmptyID)

	_, err = New(Service{ID: "a", HealthURL: "not a url"})
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestNew_DefaultsNameToID(t *testing.T) {
	r, err := New(Service{ID: "api", HealthURL: "http://api.local/health"})
	require.NoError(t, err)

	s, ok := r.Lookup("api")
	require.True(t, ok)
	assert.Equal(t, "api", s.Name)
}

func TestServices_ReturnsCopy(t *testing.T) {
	r := MustNew(Service{ID: "api", Name: "API", HealthURL: "http://api.local/health"})

	services := r.Services()
	services[0].Name = "mutated"

	s, _ := r.Lookup("api")
	assert.Equal(t, "API", s.Name)
}

func TestGrouped_OrdersByGroup(t *testing.T) {
	r := MustNew(
		Service{ID: "web", HealthURL: "http://web.local", Group: GroupFrontend},
		Service{ID: "api", HealthURL: "http://api.local", Group: GroupAPI},
		Service{ID: "hooks", HealthURL: "http://hooks.local", Group: GroupCore},
		Service{ID: "admin", HealthURL: "http://admin.local", Group: GroupFrontend},
	)

	grouped := r.Grouped()
	require.Len(t, grouped, 3)
	assert.Equal(t, GroupCore, grouped[0].Group)
	assert.Equal(t, "Core Services", grouped[0].Name)
	assert.Equal(t, GroupAPI, grouped[1].Group)
	assert.Equal(t, GroupFrontend, grouped[2].Group)
	require.Len(t, grouped[2].Services, 2)
	assert.Equal(t, "web", grouped[2].Services[0].ID)
	assert.Equal(t, "admin", grouped[2].Services[1].ID)
}

func TestDefault_AppliesOverrides(t *testing.T) {
	r := Default(func(id, fallback string) string {
		if id == "graphql" {
			return "http://localhost:4000/health"
		}
		return fallback
	})

	assert.Equal(t, 6, r.Len())

	gql, ok := r.Lookup("graphql")
	require.True(t, ok)
	assert.Equal(t, "http://localhost:4000/health", gql.HealthURL)

	landing, ok := r.Lookup("landing")
	require.True(t, ok)
	assert.Equal(t, "https://tokenbot.com", landing.HealthURL)
}

func TestGroup_UnknownSortsLast(t *testing.T) {
	assert.Greater(t, Group("misc").Order(), GroupInfrastructure.Order())
	assert.Equal(t, "misc", Group("misc").DisplayName())
	assert.False(t, Group("misc").Valid())
}
