package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traychrome/adblock"
	"github.com/traychrome/adblock/filterlist"
	"github.com/traychrome/adblock/internal/settings"
)

// testListPath is the path to the filter list used in tests.
const testListPath = "../../testdata/test_file_rule_list.txt"

// writeFile writes data to a temporary file and returns its path.
func writeFile(tb testing.TB, data string) (path string) {
	tb.Helper()

	path = filepath.Join(tb.TempDir(), "settings.yaml")
	require.NoError(tb, os.WriteFile(path, []byte(data), 0o600))

	return path
}

func newEngine(tb testing.TB) (e *adblock.Engine) {
	tb.Helper()

	e, err := adblock.NewEngine(nil)
	require.NoError(tb, err)

	return e
}

func TestLoad_notExist(t *testing.T) {
	t.Parallel()

	s, err := settings.Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	assert.Equal(t, settings.Default(), s)
}

func TestLoad_invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		data string
	}{{
		name: "no_section",
		data: "other: 1\n",
	}, {
		name: "missing_list",
		data: "adblock:\n  block_lists:\n    - /nonexistent/list.txt\n",
	}, {
		name: "bad_yaml",
		data: "adblock: [\n",
	}, {
		name: "bad_type",
		data: "adblock:\n  enabled: maybe\n",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, err := settings.Load(writeFile(t, tc.data))
			assert.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestSettings_Apply(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `adblock:
  enabled: true
  block_rules:
    - "||tracking.example.com^"
  allow_rules:
    - "|https://example.org/ads/"
  block_lists:
    - `+testListPath+`
  allow_lists:
    - `+testListPath+`
`)

	s, err := settings.Load(path)
	require.NoError(t, err)

	e := newEngine(t)
	require.NoError(t, s.Apply(e))

	listLines := []string{
		"! Test filter list",
		"||example.org^",
		"/ads/",
		"banner",
		"|https://tracker.example/",
	}

	wantBlock := append([]string{"||tracking.example.com^"}, listLines...)
	wantAllow := append([]string{"|https://example.org/ads/"}, listLines...)

	assert.Equal(t, wantBlock, e.BlockRules())
	assert.Equal(t, wantAllow, e.AllowRules())
	assert.True(t, e.Enabled())

	res := e.Decide("https://tracking.example.com/x.js")
	assert.Equal(t, adblock.ActionBlock, res.Action)
	assert.Equal(t, "||tracking.example.com^", res.RuleText())
}

func TestSettings_Apply_defaults(t *testing.T) {
	t.Parallel()

	s := settings.Default()
	s.AdBlock.BlockRules = []string{"/tracker"}

	e := newEngine(t)
	e.SetEnabled(true)

	require.NoError(t, s.Apply(e))

	want := append(filterlist.DefaultBlockRules(), "/tracker")
	assert.Equal(t, want, e.BlockRules())
	assert.Empty(t, e.AllowRules())
	assert.False(t, e.Enabled())
}

func TestSettings_Apply_error(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	e.SetBlockRules([]string{"/keep"})

	s := &settings.Settings{
		AdBlock: &settings.AdBlock{
			BlockRules: []string{"/new"},
			BlockLists: []string{filepath.Join(t.TempDir(), "none.txt")},
		},
	}

	assert.Error(t, s.Apply(e))
	assert.Equal(t, []string{"/keep"}, e.BlockRules())

	assert.Error(t, (&settings.Settings{}).Apply(e))
}

func TestSettings_Save(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	e.SetBlockRules([]string{"||ads.example.com^", "! comment", "/banner"})
	e.SetAllowRules([]string{"||example.org^"})
	e.SetEnabled(true)

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, settings.FromEngine(e).Save(path))

	s, err := settings.Load(path)
	require.NoError(t, err)

	restored := newEngine(t)
	require.NoError(t, s.Apply(restored))

	assert.Equal(t, e.BlockRules(), restored.BlockRules())
	assert.Equal(t, e.AllowRules(), restored.AllowRules())
	assert.True(t, restored.Enabled())
}
