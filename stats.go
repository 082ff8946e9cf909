package adblock

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
)

// MaxTopBlockedDomains is the maximum number of domains in
// [Stats.TopBlockedDomains].
const MaxTopBlockedDomains = 10

// DomainCount is the number of blocked requests to a domain.
type DomainCount struct {
	// Domain is the eTLD+1 of the blocked requests.
	Domain string

	// Count is the number of blocked requests.
	Count uint64
}

// Stats are the counters of requests handled by the engine.
type Stats struct {
	// TopBlockedDomains are the domains with the most blocked requests in
	// descending order of count, ties are ordered by domain.  It has at most
	// [MaxTopBlockedDomains] items.
	TopBlockedDomains []DomainCount

	// Requests is the number of requests handled while enabled.
	Requests uint64

	// Passed is the number of requests no rule matched.
	Passed uint64

	// Allowed is the number of requests matched by an allow rule.
	Allowed uint64

	// Blocked is the number of requests answered with an empty response.
	Blocked uint64

	// Failed is the number of requests that should have been blocked but
	// the host failed to build the empty response.
	Failed uint64
}

// counters accumulates Stats.
type counters struct {
	// domainsMu protects domains.
	domainsMu *sync.Mutex
	domains   map[string]uint64

	requests atomic.Uint64
	passed   atomic.Uint64
	allowed  atomic.Uint64
	blocked  atomic.Uint64
	failed   atomic.Uint64
}

// newCounters returns new zero counters.
func newCounters() (c *counters) {
	return &counters{
		domainsMu: &sync.Mutex{},
		domains:   map[string]uint64{},
	}
}

// addResult counts res.
func (c *counters) addResult(res Result) {
	c.requests.Add(1)

	switch res.Action {
	case ActionAllow:
		c.allowed.Add(1)
	case ActionPass:
		c.passed.Add(1)
	default:
		// Blocked requests are counted once the response is set.
	}
}

// addBlocked counts a blocked request to domain.
func (c *counters) addBlocked(domain string) {
	c.blocked.Add(1)

	c.domainsMu.Lock()
	defer c.domainsMu.Unlock()

	c.domains[domain]++
}

// stats returns a copy of the counters.
func (c *counters) stats() (s *Stats) {
	c.domainsMu.Lock()
	defer c.domainsMu.Unlock()

	return &Stats{
		TopBlockedDomains: c.topDomains(MaxTopBlockedDomains),
		Requests:          c.requests.Load(),
		Passed:            c.passed.Load(),
		Allowed:           c.allowed.Load(),
		Blocked:           c.blocked.Load(),
		Failed:            c.failed.Load(),
	}
}

// topDomains returns at most n domains with the most blocked requests.
// c.domainsMu must be locked.
func (c *counters) topDomains(n int) (top []DomainCount) {
	top = make([]DomainCount, 0, len(c.domains))
	for d, cnt := range c.domains {
		top = append(top, DomainCount{Domain: d, Count: cnt})
	}

	slices.SortFunc(top, func(a, b DomainCount) (res int) {
		if res = cmp.Compare(b.Count, a.Count); res != 0 {
			return res
		}

		return cmp.Compare(a.Domain, b.Domain)
	})

	return top[:min(n, len(top))]
}
