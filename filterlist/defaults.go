package filterlist

import (
	"slices"
	"strings"
)

// defaultBlockRules is the built-in list of common ad and tracking domains and
// path fragments.
//
// NOTE: "/ads/" is a regular expression rule with the pattern "ads", so it
// blocks any URI containing "ads", including hosts like uploads.example.com.
// The last two rules contain wildcards, which are matched literally, so they
// never match a real hostname.  Both are kept as is for compatibility with
// existing settings.
var defaultBlockRules = []string{
	"||doubleclick.net^",
	"||googleadservices.com^",
	"||googlesyndication.com^",
	"||google-analytics.com^",
	"||facebook.com/tr^",
	"||amazon-adsystem.com^",
	"||adservice.google^",
	"||adsafeprotected.com^",
	"||advertising.com^",
	"||adnxs.com^",
	"||adform.net^",
	"/ads/",
	"/advertisement",
	"/banner",
	"/popup",
	`||ad.*\.com^`,
	`||ads.*\.com^`,
}

// DefaultBlockRules returns a copy of the built-in block rules.
func DefaultBlockRules() (lines []string) {
	return slices.Clone(defaultBlockRules)
}

// DefaultRulesText returns the built-in block rules as a text with Windows
// line endings, the way rule editors show it.
func DefaultRulesText() (text string) {
	return strings.Join(defaultBlockRules, "\r\n")
}

// ParseText splits a multi-line rules text into rule lines.  "\r\n", "\r"
// and "\n" are all line separators; lines are trimmed and empty lines are
// dropped.
func ParseText(text string) (lines []string) {
	lines = []string{}
	sc := NewRuleScanner(strings.NewReader(text), 0)
	for sc.Scan() {
		r, _ := sc.Rule()
		lines = append(lines, r.Text())
	}

	return lines
}
