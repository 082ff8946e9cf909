package rules_test

import (
	"testing"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traychrome/adblock/rules"
)

func TestNewRequest(t *testing.T) {
	t.Parallel()

	r, err := rules.NewRequest("https://Sub.Example.CO.UK:8080/Path/To?Q=1")
	require.NoError(t, err)

	assert.Equal(t, "https://Sub.Example.CO.UK:8080/Path/To?Q=1", r.URL)
	assert.Equal(t, "https://sub.example.co.uk:8080/path/to?q=1", r.URLLowerCase)
	assert.Equal(t, "sub.example.co.uk", r.Hostname)
	assert.Equal(t, "/path/to", r.Path)
	assert.Equal(t, "example.co.uk", r.Domain)
}

func TestNewRequest_noPath(t *testing.T) {
	t.Parallel()

	r, err := rules.NewRequest("http://example.org")
	require.NoError(t, err)

	assert.Equal(t, "/", r.Path)
	assert.Equal(t, "example.org", r.Domain)
}

func TestNewRequest_ip(t *testing.T) {
	t.Parallel()

	r, err := rules.NewRequest("http://[::1]:8080/")
	require.NoError(t, err)

	assert.Equal(t, "::1", r.Hostname)
	assert.Equal(t, "::1", r.Domain)
}

func TestNewRequest_strayPercent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		uri      string
		wantPath string
	}{{
		name:     "path",
		uri:      "https://Example.com/ads/100%.png",
		wantPath: "/ads/100%25.png",
	}, {
		name:     "path_bad_hex",
		uri:      "https://example.com/ads/%zz.js",
		wantPath: "/ads/%25zz.js",
	}, {
		name:     "fragment",
		uri:      "https://example.com/ads/x.js#%zz",
		wantPath: "/ads/x.js",
	}, {
		name:     "valid_escape_kept",
		uri:      "https://example.com/a%20b/100%",
		wantPath: "/a%20b/100%25",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewRequest(tc.uri)
			require.NoError(t, err)

			assert.Equal(t, tc.uri, r.URL)
			assert.Equal(t, "example.com", r.Hostname)
			assert.Equal(t, tc.wantPath, r.Path)
		})
	}
}

func TestNewRequest_opaque(t *testing.T) {
	t.Parallel()

	r, err := rules.NewRequest("file:///C:/ads/page.html")
	require.NoError(t, err)

	assert.Empty(t, r.Hostname)

	r, err = rules.NewRequest("about:blank")
	require.NoError(t, err)

	assert.Empty(t, r.Hostname)
	assert.Empty(t, r.Path)
}

func TestNewRequest_invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		uri  string
	}{{
		name: "empty",
		uri:  "",
	}, {
		name: "relative",
		uri:  "not a uri",
	}, {
		name: "path_only",
		uri:  "/ads/banner.png",
	}, {
		name: "no_host",
		uri:  "http://",
	}, {
		name: "no_host_path",
		uri:  "https:///ads/banner.png",
	}, {
		name: "bad_host",
		uri:  "http://exa mple.org/",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, err := rules.NewRequest(tc.uri)
			assert.Nil(t, r)
			assert.True(t, errors.Is(err, rules.ErrInvalidURI))
		})
	}
}
