package xcatalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func computeCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := NewCatalog([]ServiceEntry{
		{
			Type: "compute",
			Name: "nova",
			Endpoints: []Endpoint{
				{Interface: InterfacePublic, Region: "RegionOne", URL: "https://u1.example.com/v2.1"},
				{Interface: InterfaceInternal, Region: "RegionOne", URL: "https://u2.example.com/v2.1"},
			},
		},
	})
	require.NoError(t, err)
	return cat
}

func TestCatalog_Resolve_Selection(t *testing.T) {
	cat := computeCatalog(t)

	t.Run("public endpoint in requested region", func(t *testing.T) {
		ep, err := cat.Resolve(EndpointQuery{
			ServiceType: "compute",
			Interfaces:  []Interface{InterfacePublic},
			Region:      "RegionOne",
		})
		require.NoError(t, err)
		assert.Equal(t, "https://u1.example.com/v2.1", ep.URL)
	})

	t.Run("unknown region yields no matching endpoint", func(t *testing.T) {
		_, err := cat.Resolve(EndpointQuery{
			ServiceType: "compute",
			Interfaces:  []Interface{InterfacePublic},
			Region:      "RegionTwo",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoMatchingEndpoint)
		assert.NotErrorIs(t, err, ErrNoMatchingService)

		var re *ResolveError
		require.True(t, errors.As(err, &re))
		assert.Equal(t, "RegionTwo", re.Query.Region)
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := cat.Resolve(EndpointQuery{ServiceType: "volumev3"})
		assert.ErrorIs(t, err, ErrNoMatchingService)
		assert.True(t, IsNotFound(err))
	})

	t.Run("service type is case sensitive", func(t *testing.T) {
		_, err := cat.Resolve(EndpointQuery{ServiceType: "Compute"})
		assert.ErrorIs(t, err, ErrNoMatchingService)
	})
}

func TestCatalog_Resolve_InterfacePreference(t *testing.T) {
	cat := computeCatalog(t)

	t.Run("first interface with a candidate wins", func(t *testing.T) {
		ep, err := cat.Resolve(EndpointQuery{
			ServiceType: "compute",
			Interfaces:  []Interface{InterfaceAdmin, InterfaceInternal, InterfacePublic},
		})
		require.NoError(t, err)
		assert.Equal(t, InterfaceInternal, ep.Interface)
		assert.Equal(t, "https://u2.example.com/v2.1", ep.URL)
	})

	t.Run("defaults to public", func(t *testing.T) {
		ep, err := cat.Resolve(EndpointQuery{ServiceType: "compute"})
		require.NoError(t, err)
		assert.Equal(t, InterfacePublic, ep.Interface)
	})

	t.Run("only unavailable interface", func(t *testing.T) {
		_, err := cat.Resolve(EndpointQuery{
			ServiceType: "compute",
			Interfaces:  []Interface{InterfaceAdmin},
		})
		assert.ErrorIs(t, err, ErrNoMatchingEndpoint)
	})
}

func TestCatalog_Resolve_RegionWildcard(t *testing.T) {
	cat, err := NewCatalog([]ServiceEntry{
		{
			Type: "image",
			Endpoints: []Endpoint{
				{Interface: InterfacePublic, Region: "RegionOne", URL: "https://r1.example.com"},
				{Interface: InterfacePublic, Region: "", URL: "https://global.example.com"},
				{Interface: InterfacePublic, Region: "RegionTwo", URL: "https://r2.example.com"},
			},
		},
	})
	require.NoError(t, err)

	t.Run("region-less endpoint matches any requested region", func(t *testing.T) {
		url, err := cat.ResolveURL(EndpointQuery{ServiceType: "image", Region: "RegionThree"})
		require.NoError(t, err)
		assert.Equal(t, "https://global.example.com", url)
	})

	t.Run("exact region before wildcard keeps catalog order", func(t *testing.T) {
		url, err := cat.ResolveURL(EndpointQuery{ServiceType: "image", Region: "RegionTwo"})
		require.NoError(t, err)
		// 区域通配的端点在目录中排在 RegionTwo 之前
		assert.Equal(t, "https://global.example.com", url)
	})

	t.Run("no region requested picks first in catalog order", func(t *testing.T) {
		url, err := cat.ResolveURL(EndpointQuery{ServiceType: "image"})
		require.NoError(t, err)
		assert.Equal(t, "https://r1.example.com", url)
	})
}

func TestCatalog_Resolve_Version(t *testing.T) {
	cat, err := NewCatalog([]ServiceEntry{
		{
			Type: "volume",
			Endpoints: []Endpoint{
				{Interface: InterfacePublic, URL: "https://cinder.example.com/v2/project"},
				{Interface: InterfacePublic, URL: "https://cinder.example.com/v3/project"},
				{Interface: InterfacePublic, URL: "https://cinder.example.com/"},
			},
		},
	})
	require.NoError(t, err)

	t.Run("minimum version skips older endpoints", func(t *testing.T) {
		url, err := cat.ResolveURL(EndpointQuery{
			ServiceType: "volume",
			Version:     VersionRange{Min: Version{Major: 3}},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cinder.example.com/v3/project", url)
	})

	t.Run("unversioned endpoint passes any range", func(t *testing.T) {
		url, err := cat.ResolveURL(EndpointQuery{
			ServiceType: "volume",
			Version:     VersionRange{Min: Version{Major: 4}},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cinder.example.com/", url)
	})

	t.Run("maximum version", func(t *testing.T) {
		url, err := cat.ResolveURL(EndpointQuery{
			ServiceType: "volume",
			Version:     VersionRange{Max: Version{Major: 2, Minor: 9}},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://cinder.example.com/v2/project", url)
	})
}

func TestCatalog_Resolve_Wildcard(t *testing.T) {
	cat, err := NewCatalog([]ServiceEntry{
		{Type: "identity", Endpoints: []Endpoint{{Interface: InterfacePublic, URL: "https://keystone"}}},
		{Type: WildcardServiceType, Endpoints: []Endpoint{{Interface: InterfacePublic, URL: "https://any"}}},
	})
	require.NoError(t, err)

	url, err := cat.ResolveURL(EndpointQuery{ServiceType: "identity"})
	require.NoError(t, err)
	assert.Equal(t, "https://keystone", url, "exact entry wins over wildcard")

	url, err = cat.ResolveURL(EndpointQuery{ServiceType: "baremetal"})
	require.NoError(t, err)
	assert.Equal(t, "https://any", url)
}

func TestCatalog_Resolve_Deterministic(t *testing.T) {
	cat := computeCatalog(t)
	q := EndpointQuery{ServiceType: "compute", Interfaces: []Interface{InterfaceInternal, InterfacePublic}}

	first, err := cat.Resolve(q)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				ep, err := cat.Resolve(q)
				assert.NoError(t, err)
				assert.Equal(t, first, ep)
			}
		}()
	}
	wg.Wait()
}

func TestCatalog_Resolve_Nil(t *testing.T) {
	var cat *Catalog
	_, err := cat.Resolve(EndpointQuery{ServiceType: "compute"})
	assert.ErrorIs(t, err, ErrNoMatchingService)
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "2", want: Version{Major: 2}},
		{in: "2.1", want: Version{Major: 2, Minor: 1}},
		{in: "v3.10", want: Version{Major: 3, Minor: 10}},
		{in: "", wantErr: true},
		{in: "v", wantErr: true},
		{in: "2.x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEndpointVersion(t *testing.T) {
	v, ok := endpointVersion("https://nova.example.com:8774/v2.1/8a5e")
	assert.True(t, ok)
	assert.Equal(t, Version{Major: 2, Minor: 1}, v)

	_, ok = endpointVersion("https://swift.example.com/AUTH_abc")
	assert.False(t, ok)
}
