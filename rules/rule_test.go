package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traychrome/adblock/rules"
)

func TestNewRule(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in          string
		name        string
		wantText    string
		wantKind    rules.Kind
		wantComment bool
	}{{
		in:       "",
		name:     "empty",
		wantText: "",
		wantKind: rules.KindEmpty,
	}, {
		in:       "   ",
		name:     "space",
		wantText: "",
		wantKind: rules.KindEmpty,
	}, {
		in:       "  ||example.org^ ",
		name:     "domain_trimmed",
		wantText: "||example.org^",
		wantKind: rules.KindDomain,
	}, {
		in:       "|https://example.org",
		name:     "start",
		wantText: "|https://example.org",
		wantKind: rules.KindStart,
	}, {
		in:       "/ads/",
		name:     "regex",
		wantText: "/ads/",
		wantKind: rules.KindRegex,
	}, {
		in:       "/",
		name:     "single_slash",
		wantText: "/",
		wantKind: rules.KindRegex,
	}, {
		in:       "/advertisement",
		name:     "path_without_closing_slash",
		wantText: "/advertisement",
		wantKind: rules.KindGeneric,
	}, {
		in:          "! comment",
		name:        "comment",
		wantText:    "! comment",
		wantKind:    rules.KindGeneric,
		wantComment: true,
	}, {
		in:          "\t!comment",
		name:        "comment_leading_space",
		wantText:    "!comment",
		wantKind:    rules.KindGeneric,
		wantComment: true,
	}, {
		in:       "banner",
		name:     "generic",
		wantText: "banner",
		wantKind: rules.KindGeneric,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := rules.NewRule(tc.in)
			require.NotNil(t, r)

			assert.Equal(t, tc.wantText, r.Text())
			assert.Equal(t, tc.wantKind, r.Kind())
			assert.Equal(t, tc.wantComment, r.IsComment())
			assert.Equal(t, tc.wantKind == rules.KindEmpty, r.IsEmpty())
		})
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "empty", rules.KindEmpty.String())
	assert.Equal(t, "domain", rules.KindDomain.String())
	assert.Equal(t, "start", rules.KindStart.String())
	assert.Equal(t, "regex", rules.KindRegex.String())
	assert.Equal(t, "generic", rules.KindGeneric.String())
	assert.Equal(t, "unknown", rules.Kind(42).String())
}

func TestRule_Match_regexCompiledOnce(t *testing.T) {
	t.Parallel()

	r := rules.NewRule(`/\.js$/`)
	req, err := rules.NewRequest("https://example.org/app.JS")
	require.NoError(t, err)

	for range 3 {
		assert.True(t, r.Match(req))
	}

	invalid := rules.NewRule(`/(?<=ads)x/`)
	for range 3 {
		assert.False(t, invalid.Match(req))
	}
}
