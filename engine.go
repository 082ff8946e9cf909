// Package adblock implements a request-filtering engine for an embedded
// browser.  The engine subscribes to the request-interception hook of its
// host and answers requests matched by block rules with an empty response
// unless they are matched by an allow rule.
package adblock

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/traychrome/adblock/filterlist"
	"github.com/traychrome/adblock/rules"
)

// Config is the configuration of the filtering engine.
type Config struct {
	// Logger is used to log decisions and host failures.  If nil, nothing is
	// logged.
	Logger *slog.Logger

	// CacheSize is the number of decisions to keep in the cache.  Zero or a
	// negative value disables the cache.
	CacheSize int
}

// Engine decides for every intercepted request whether it is allowed or must
// be answered with an empty response.  Its methods are safe for concurrent
// use.  The zero value is not usable, use [NewEngine].
type Engine struct {
	logger  *slog.Logger
	storage *filterlist.RuleStorage
	cache   *decisionCache
	stats   *counters

	// hostMu protects host and attached.
	hostMu *sync.Mutex

	// host is the interception capability.  It is nil until Initialize is
	// called.
	host Host

	enabled atomic.Bool

	// attached is true if the catch-all filter is registered with host and
	// the engine is subscribed to it.
	attached bool
}

// type check
var _ RequestHandler = (*Engine)(nil)

// NewEngine returns a new disabled engine with empty rule sets.  c may be nil.
func NewEngine(c *Config) (e *Engine, err error) {
	if c == nil {
		c = &Config{}
	}

	cache, err := newDecisionCache(c.CacheSize)
	if err != nil {
		return nil, errors.Annotate(err, "creating decision cache: %w")
	}

	logger := c.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	return &Engine{
		logger:  logger,
		storage: filterlist.NewRuleStorage(),
		cache:   cache,
		stats:   newCounters(),
		hostMu:  &sync.Mutex{},
	}, nil
}

// Initialize binds the engine to the interception capability h and
// synchronizes the attachment with the enabled state.  A nil h is ignored.
// If the engine is attached to a previous host, it detaches from it first.
func (e *Engine) Initialize(h Host) {
	if h == nil {
		return
	}

	func() {
		e.hostMu.Lock()
		defer e.hostMu.Unlock()

		if e.attached {
			e.detach()
		}

		e.host = h
		e.attached = false
	}()

	e.Synchronize()
}

// Synchronize registers or unregisters the engine with the host so that it is
// attached if and only if it is enabled.  It does nothing if the engine is
// already in that state or is not initialized.
func (e *Engine) Synchronize() {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()

	if e.host == nil {
		return
	}

	enabled := e.enabled.Load()
	switch {
	case enabled && !e.attached:
		e.attach()
	case !enabled && e.attached:
		e.detach()
	default:
		// Already in the target state.
	}
}

// attach registers the catch-all filter and subscribes e to the host.
// e.hostMu must be locked.
func (e *Engine) attach() {
	err := e.host.AddCatchAllFilter()
	if err != nil {
		e.logger.Error("adding catch-all filter", slogutil.KeyError, err)

		return
	}

	e.host.Subscribe(e)
	e.attached = true

	e.logger.Debug("attached to host")
}

// detach unsubscribes e from the host and removes the catch-all filter.
// e.hostMu must be locked.
func (e *Engine) detach() {
	e.host.Unsubscribe(e)

	err := e.host.RemoveCatchAllFilter()
	if err != nil {
		// The host may have cleared the filter already.
		e.logger.Debug("removing catch-all filter", slogutil.KeyError, err)
	}

	e.attached = false

	e.logger.Debug("detached from host")
}

// Attached returns true if the engine is currently registered with its host.
func (e *Engine) Attached() (ok bool) {
	e.hostMu.Lock()
	defer e.hostMu.Unlock()

	return e.attached
}

// Enabled returns true if the engine filters requests.
func (e *Engine) Enabled() (ok bool) {
	return e.enabled.Load()
}

// SetEnabled enables or disables filtering and synchronizes the host
// attachment.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	e.Synchronize()
}

// BlockRules returns a copy of the block rules.
func (e *Engine) BlockRules() (lines []string) {
	return e.storage.Load().Block.Lines()
}

// SetBlockRules replaces the block rules.  nil is an empty list.
func (e *Engine) SetBlockRules(lines []string) {
	e.storage.SetBlock(filterlist.NewRuleSet(lines))
	e.cache.purge()
	e.Synchronize()
}

// AllowRules returns a copy of the allow rules.
func (e *Engine) AllowRules() (lines []string) {
	return e.storage.Load().Allow.Lines()
}

// SetAllowRules replaces the allow rules.  nil is an empty list.
func (e *Engine) SetAllowRules(lines []string) {
	e.storage.SetAllow(filterlist.NewRuleSet(lines))
	e.cache.purge()
	e.Synchronize()
}

// LoadDefaultRules replaces the block rules with the built-in list.  The allow
// rules are not changed.
func (e *Engine) LoadDefaultRules() {
	e.SetBlockRules(filterlist.DefaultBlockRules())
}

// Stats returns a copy of the request counters.
func (e *Engine) Stats() (s *Stats) {
	return e.stats.stats()
}

// Decide matches uri against the current rules regardless of whether the
// engine is enabled.  Allow rules are checked first, the first matching rule
// wins.  Comments are only skipped in block rules.  An empty or invalid uri
// always passes.
func (e *Engine) Decide(uri string) (res Result) {
	if uri == "" {
		return Result{Action: ActionPass}
	}

	snap := e.storage.Load()
	if res, ok := e.cache.get(snap, uri); ok {
		return res
	}

	res = decide(snap, uri)
	e.cache.set(snap, uri, res)

	return res
}

// decide matches uri against the rules of snap.
func decide(snap *filterlist.Snapshot, uri string) (res Result) {
	r, err := rules.NewRequest(uri)
	if err != nil {
		return Result{Action: ActionPass}
	}

	res.Domain = r.Domain

	if rule, ok := snap.Allow.Match(r, false); ok {
		res.Action, res.Rule = ActionAllow, rule

		return res
	}

	if rule, ok := snap.Block.Match(r, true); ok {
		res.Action, res.Rule = ActionBlock, rule

		return res
	}

	res.Action = ActionPass

	return res
}

// HandleRequest implements the [RequestHandler] interface for *Engine.  It
// answers req with an empty response if it must be blocked.  Any failure lets
// the request through.
func (e *Engine) HandleRequest(req InterceptedRequest) {
	defer slogutil.RecoverAndLog(context.Background(), e.logger)

	if req == nil || !e.enabled.Load() {
		return
	}

	uri := req.URI()
	res := e.Decide(uri)
	e.stats.addResult(res)
	if !res.Blocked() {
		if res.Action == ActionAllow {
			e.logger.Debug("allowed", "uri", uri, "rule", res.RuleText())
		}

		return
	}

	e.block(req, uri, res)
}

// block answers req with an empty response from the host.
func (e *Engine) block(req InterceptedRequest, uri string, res Result) {
	e.hostMu.Lock()
	h := e.host
	e.hostMu.Unlock()

	if h == nil {
		return
	}

	resp, err := h.NewEmptyResponse(req)
	if err != nil {
		e.stats.failed.Add(1)
		e.logger.Error("creating empty response", "uri", uri, slogutil.KeyError, err)

		return
	}

	req.SetResponse(resp)
	e.stats.addBlocked(res.Domain)

	e.logger.Debug("blocked", "uri", uri, "rule", res.RuleText(), "domain", res.Domain)
}
