package rules

import (
	"net/url"
	"strings"

	"github.com/AdguardTeam/golibs/errors"
	"golang.org/x/net/publicsuffix"
)

// ErrInvalidURI is returned by [NewRequest] when the request URI cannot be
// parsed as an absolute URI.
const ErrInvalidURI errors.Error = "invalid request uri"

// Request represents an intercepted resource request prepared for matching.
// It is derived from the raw URI and must not be stored between requests.
type Request struct {
	// URL is the original request URI.
	URL string

	// URLLowerCase is the original request URI in lower case.
	URLLowerCase string

	// Hostname is the lowercased hostname of the request, without the port
	// and IPv6 brackets.
	Hostname string

	// Path is the lowercased escaped absolute path of the request.
	Path string

	// Domain is the effective top-level domain of the request with an
	// additional label.  It is only used for statistics and logging.
	Domain string
}

// NewRequest parses uri and returns a request for matching.  It returns
// [ErrInvalidURI] if uri is empty, malformed, not absolute or has no host.
// Percent signs that don't start a valid escape sequence are accepted.
func NewRequest(uri string) (r *Request, err error) {
	if uri == "" {
		return nil, ErrInvalidURI
	}

	u, err := parseURI(uri)
	if err != nil {
		return nil, errors.Annotate(ErrInvalidURI, "parsing %q: %w", uri)
	} else if !u.IsAbs() {
		return nil, errors.Annotate(ErrInvalidURI, "%q is not absolute: %w", uri)
	} else if u.Opaque == "" && u.Host == "" && u.Scheme != "file" {
		return nil, errors.Annotate(ErrInvalidURI, "%q has no host: %w", uri)
	}

	r = &Request{
		URL:          uri,
		URLLowerCase: strings.ToLower(uri),
		Hostname:     strings.ToLower(u.Hostname()),
		Path:         strings.ToLower(u.EscapedPath()),
	}

	if r.Path == "" && u.Opaque == "" {
		r.Path = "/"
	}

	if domain := effectiveTLDPlusOne(r.Hostname); domain != "" {
		r.Domain = domain
	} else {
		r.Domain = r.Hostname
	}

	return r, nil
}

// parseURI parses uri.  If it contains percent signs not followed by two
// hexadecimal digits, they are escaped and the parsing is retried.
func parseURI(uri string) (u *url.URL, err error) {
	u, err = url.Parse(uri)
	if err == nil {
		return u, nil
	}

	escaped := escapeStrayPercents(uri)
	if escaped == uri {
		return nil, err
	}

	return url.Parse(escaped)
}

// escapeStrayPercents replaces each "%" that doesn't start a valid escape
// sequence with "%25".
func escapeStrayPercents(s string) (res string) {
	if !strings.Contains(s, "%") {
		return s
	}

	b := &strings.Builder{}
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])) {
			b.WriteString("%25")

			continue
		}

		b.WriteByte(c)
	}

	return b.String()
}

// isHex returns true if c is a hexadecimal digit.
func isHex(c byte) (ok bool) {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// effectiveTLDPlusOne is a faster version of publicsuffix.EffectiveTLDPlusOne
// that avoids using fmt.Errorf when the domain is less or equal the suffix.
func effectiveTLDPlusOne(hostname string) (domain string) {
	hostnameLen := len(hostname)
	if hostnameLen < 1 {
		return ""
	}

	if hostname[0] == '.' || hostname[hostnameLen-1] == '.' {
		return ""
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)

	i := hostnameLen - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return ""
	}

	return hostname[1+strings.LastIndex(hostname[:i], "."):]
}
