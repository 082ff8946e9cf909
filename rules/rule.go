// Package rules implements parsing and matching of filtering rules.
//
// A rule is a single line of a filter list.  Its shape is decided by its first
// and last characters:
//
//	||domain^   the domain and all of its subdomains
//	|prefix     URIs starting with prefix, case-insensitive
//	/regex/     URIs matching the case-insensitive regular expression
//	!comment    a comment, skipped in block lists
//	text        hostnames or URIs containing text, case-insensitive
package rules

import (
	"regexp"
	"strings"
	"sync"
)

const (
	maskDomainAnchor = "||"
	maskStartAnchor  = "|"
	maskRegexRule    = "/"
	maskComment      = "!"

	// domainTerminators are the characters ending the domain token of a
	// domain-anchored rule.
	domainTerminators = "/^|"
)

// Kind is the shape of a filtering rule.
type Kind uint8

// Kind values.
const (
	// KindEmpty is an empty rule that never matches.
	KindEmpty Kind = iota
	// KindDomain is a domain-anchored rule, ||domain^.
	KindDomain
	// KindStart is a start-anchored rule, |prefix.
	KindStart
	// KindRegex is a regular expression rule, /regex/.
	KindRegex
	// KindGeneric is a substring rule.
	KindGeneric
)

// String implements the fmt.Stringer interface for Kind.
func (k Kind) String() (s string) {
	switch k {
	case KindEmpty:
		return "empty"
	case KindDomain:
		return "domain"
	case KindStart:
		return "start"
	case KindRegex:
		return "regex"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Rule is a single filtering rule.  Rules are immutable and safe for
// concurrent use.
type Rule struct {
	// regexMu protects regex and invalid.
	regexMu *sync.Mutex

	// regex is compiled lazily from pattern for KindRegex rules.
	regex *regexp.Regexp

	// text is the trimmed rule text.
	text string

	// pattern is the part of the rule used for matching.  It is the domain
	// for KindDomain, the prefix in lower case for KindStart, the regular
	// expression for KindRegex and the text in lower case for KindGeneric.
	pattern string

	kind Kind

	// invalid is true if the rule can never match.
	invalid bool
}

// NewRule classifies the line and returns a rule for it.  It never fails:
// rules that cannot be matched are still returned and simply never match.
func NewRule(line string) (r *Rule) {
	text := strings.TrimSpace(line)
	r = &Rule{
		regexMu: &sync.Mutex{},
		text:    text,
	}

	switch {
	case text == "":
		r.kind = KindEmpty
		r.invalid = true
	case strings.HasPrefix(text, maskDomainAnchor):
		r.kind = KindDomain
		r.pattern = extractDomain(text[len(maskDomainAnchor):])
	case strings.HasPrefix(text, maskStartAnchor):
		r.kind = KindStart
		r.pattern = strings.ToLower(text[len(maskStartAnchor):])
	case strings.HasPrefix(text, maskRegexRule) && strings.HasSuffix(text, maskRegexRule):
		r.kind = KindRegex
		if len(text) < 2*len(maskRegexRule) {
			// A single slash has no pattern between the delimiters.
			r.invalid = true
		} else {
			r.pattern = text[len(maskRegexRule) : len(text)-len(maskRegexRule)]
		}
	default:
		r.kind = KindGeneric
		r.pattern = strings.ToLower(text)
	}

	return r
}

// extractDomain returns the domain token of a domain-anchored rule with the
// leading || already removed.
func extractDomain(s string) (domain string) {
	if i := strings.IndexAny(s, domainTerminators); i >= 0 {
		return s[:i]
	}

	return s
}

// Text returns the trimmed rule text.
func (f *Rule) Text() (s string) {
	return f.text
}

// String implements the fmt.Stringer interface for *Rule.
func (f *Rule) String() (s string) {
	return f.text
}

// Kind returns the shape of the rule.
func (f *Rule) Kind() (k Kind) {
	return f.kind
}

// IsComment returns true if the rule text starts with an exclamation mark.
func (f *Rule) IsComment() (ok bool) {
	return strings.HasPrefix(f.text, maskComment)
}

// IsEmpty returns true if the rule has no text.
func (f *Rule) IsEmpty() (ok bool) {
	return f.kind == KindEmpty
}

// Match returns true if the rule matches the request.  r must not be nil.
func (f *Rule) Match(r *Request) (ok bool) {
	switch f.kind {
	case KindDomain:
		return matchDomain(r.Hostname, f.pattern)
	case KindStart:
		return strings.HasPrefix(r.URLLowerCase, f.pattern)
	case KindRegex:
		return f.matchRegex(r.URL)
	case KindGeneric:
		return strings.Contains(r.Hostname, f.pattern) ||
			strings.Contains(r.URLLowerCase, f.pattern)
	default:
		return false
	}
}

// matchDomain returns true if host is domain or one of its subdomains.
func matchDomain(host, domain string) (ok bool) {
	if host == domain {
		return true
	}

	return len(host) > len(domain) &&
		strings.HasSuffix(host, domain) &&
		host[len(host)-len(domain)-1] == '.'
}

// matchRegex matches the raw URI against the rule pattern compiling it first
// if needed.
func (f *Rule) matchRegex(uri string) (ok bool) {
	re := f.compile()
	if re == nil {
		return false
	}

	return re.MatchString(uri)
}

// compile returns the compiled regular expression of the rule or nil if the
// pattern is invalid.
func (f *Rule) compile() (re *regexp.Regexp) {
	f.regexMu.Lock()
	defer f.regexMu.Unlock()

	switch {
	case f.regex != nil:
		return f.regex
	case f.invalid:
		return nil
	default:
		// Go on.
	}

	var err error
	if f.regex, err = regexp.Compile("(?i)" + f.pattern); err != nil {
		f.invalid = true

		return nil
	}

	return f.regex
}

// Match returns true if the rule text matches uri.  It never panics and
// returns false if uri cannot be parsed or rule cannot be matched.
func Match(uri, rule string) (ok bool) {
	r, err := NewRequest(uri)
	if err != nil {
		return false
	}

	return NewRule(rule).Match(r)
}
