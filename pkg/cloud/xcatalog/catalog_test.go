package xcatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterface(t *testing.T) {
	tests := []struct {
		in   string
		want Interface
	}{
		{"public", InterfacePublic},
		{"publicURL", InterfacePublic},
		{"Internal", InterfaceInternal},
		{"internalURL", InterfaceInternal},
		{" admin ", InterfaceAdmin},
		{"adminURL", InterfaceAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterface(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseInterface("private")
	assert.ErrorIs(t, err, ErrInvalidInterface)
	_, err = ParseInterface("url")
	assert.ErrorIs(t, err, ErrInvalidInterface)
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Run("empty type", func(t *testing.T) {
		_, err := NewCatalog([]ServiceEntry{{Type: " "}})
		assert.ErrorIs(t, err, ErrMalformedCatalog)
	})

	t.Run("unknown interface", func(t *testing.T) {
		_, err := NewCatalog([]ServiceEntry{{
			Type:      "compute",
			Endpoints: []Endpoint{{Interface: "private", URL: "https://x"}},
		}})
		assert.ErrorIs(t, err, ErrMalformedCatalog)
	})

	t.Run("empty url", func(t *testing.T) {
		_, err := NewCatalog([]ServiceEntry{{
			Type:      "compute",
			Endpoints: []Endpoint{{Interface: InterfacePublic}},
		}})
		assert.ErrorIs(t, err, ErrMalformedCatalog)
	})

	t.Run("empty catalog is valid", func(t *testing.T) {
		cat, err := NewCatalog(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, cat.Len())
	})
}

func TestCatalog_Immutable(t *testing.T) {
	input := []ServiceEntry{{
		Type:      "compute",
		Endpoints: []Endpoint{{Interface: InterfacePublic, URL: "https://original"}},
	}}
	cat, err := NewCatalog(input)
	require.NoError(t, err)

	input[0].Endpoints[0].URL = "https://mutated-input"
	services := cat.Services()
	services[0].Endpoints[0].URL = "https://mutated-copy"
	svc, ok := cat.Service("compute")
	require.True(t, ok)
	svc.Endpoints[0].URL = "https://mutated-service"

	url, err := cat.ResolveURL(EndpointQuery{ServiceType: "compute"})
	require.NoError(t, err)
	assert.Equal(t, "https://original", url)
}

func TestCatalog_Fingerprint(t *testing.T) {
	a := []ServiceEntry{{Type: "compute", Endpoints: []Endpoint{{Interface: InterfacePublic, URL: "https://a"}}}}
	b := []ServiceEntry{{Type: "compute", Endpoints: []Endpoint{{Interface: InterfacePublic, URL: "https://b"}}}}

	catA1, err := NewCatalog(a)
	require.NoError(t, err)
	catA2, err := NewCatalog(a)
	require.NoError(t, err)
	catB, err := NewCatalog(b)
	require.NoError(t, err)

	assert.Equal(t, catA1.Fingerprint(), catA2.Fingerprint())
	assert.NotEqual(t, catA1.Fingerprint(), catB.Fingerprint())

	var nilCat *Catalog
	assert.Zero(t, nilCat.Fingerprint())
	assert.Nil(t, nilCat.Services())
	assert.Nil(t, nilCat.ServiceTypes())
}

func TestCatalog_ServiceTypes(t *testing.T) {
	cat, err := NewCatalog([]ServiceEntry{
		{Type: "identity"},
		{Type: "compute"},
		{Type: "image"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"identity", "compute", "image"}, cat.ServiceTypes())
	assert.Equal(t, 3, cat.Len())

	_, ok := cat.Service("network")
	assert.False(t, ok)
}
