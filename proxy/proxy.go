// Package proxy implements a MITM proxy that lets the filtering engine
// intercept the requests of the browser using it.
package proxy

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/AdguardTeam/gomitmproxy"
	"github.com/traychrome/adblock"
)

const (
	// ErrFilterExists is returned when the catch-all filter is added twice.
	ErrFilterExists errors.Error = "catch-all filter already added"

	// ErrNoFilter is returned when the catch-all filter is removed while not
	// added.
	ErrNoFilter errors.Error = "catch-all filter not added"

	// ErrForeignRequest is returned when the empty response is requested for
	// a request the proxy has not intercepted.
	ErrForeignRequest errors.Error = "request not intercepted by this proxy"
)

// Config contains the MITM proxy configuration.
type Config struct {
	// Logger is used for the proxy logs.  If nil, nothing is logged.
	Logger *slog.Logger

	// ProxyConfig is the configuration of the MITM proxy.  Its OnRequest
	// handler is replaced by the server.
	ProxyConfig gomitmproxy.Config
}

// LogAttrs returns the description of the configuration for logging.
func (c *Config) LogAttrs() (attrs []any) {
	attrs = []any{
		"mitm", c.ProxyConfig.MITMConfig != nil,
		"https", c.ProxyConfig.TLSConfig != nil,
	}

	if c.ProxyConfig.ListenAddr != nil {
		attrs = append(attrs, "listen_addr", c.ProxyConfig.ListenAddr.String())
	}

	if c.ProxyConfig.Username != "" {
		attrs = append(attrs, "proxy_auth", c.ProxyConfig.Username)
	}

	if c.ProxyConfig.APIHost != "" {
		attrs = append(attrs, "api_host", c.ProxyConfig.APIHost)
	}

	return attrs
}

// Server is a MITM proxy server implementing the [adblock.Host] interface.
// The requests passing through it are routed through the subscribed handlers
// while the catch-all filter is added.
type Server struct {
	// proxyServer is the MITM proxy server instance.
	proxyServer *gomitmproxy.Proxy

	logger *slog.Logger

	// createdAt is the time when the server was created.
	createdAt time.Time

	// mu protects handlers and filter.
	mu *sync.RWMutex

	// handlers are the subscribed request handlers in order of subscription.
	handlers []adblock.RequestHandler

	// filter is true while the catch-all filter is added.
	filter bool
}

// type check
var _ adblock.Host = (*Server)(nil)

// NewServer creates a new instance of the MITM server.
func NewServer(c *Config) (s *Server) {
	logger := c.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}

	logger.Info("initializing the proxy server", c.LogAttrs()...)

	s = &Server{
		logger:    logger,
		createdAt: time.Now(),
		mu:        &sync.RWMutex{},
	}

	proxyConf := c.ProxyConfig
	proxyConf.OnRequest = s.onRequest
	s.proxyServer = gomitmproxy.NewProxy(proxyConf)

	return s
}

// Start starts the proxy server.
func (s *Server) Start() (err error) {
	return s.proxyServer.Start()
}

// Close stops the proxy server.
func (s *Server) Close() {
	s.proxyServer.Close()
}

// Uptime returns the time elapsed since the server was created.
func (s *Server) Uptime() (d time.Duration) {
	return time.Since(s.createdAt)
}

// AddCatchAllFilter implements the [adblock.Host] interface for *Server.
func (s *Server) AddCatchAllFilter() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter {
		return ErrFilterExists
	}

	s.filter = true

	return nil
}

// RemoveCatchAllFilter implements the [adblock.Host] interface for *Server.
func (s *Server) RemoveCatchAllFilter() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filter {
		return ErrNoFilter
	}

	s.filter = false

	return nil
}

// Subscribe implements the [adblock.Host] interface for *Server.
func (s *Server) Subscribe(h adblock.RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers = append(s.handlers, h)
}

// Unsubscribe implements the [adblock.Host] interface for *Server.  It
// removes the first subscription of h.
func (s *Server) Unsubscribe(h adblock.RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.handlers, h)
	if i >= 0 {
		s.handlers = slices.Delete(slices.Clone(s.handlers), i, i+1)
	}
}

// NewEmptyResponse implements the [adblock.Host] interface for *Server.  req
// must be a *Session created by the server.
func (s *Server) NewEmptyResponse(req adblock.InterceptedRequest) (resp *http.Response, err error) {
	sess, ok := req.(*Session)
	if !ok || sess.HTTPRequest == nil {
		return nil, ErrForeignRequest
	}

	return newBlockedResponse(sess), nil
}

// subscribers returns the handlers to route requests through or nil if the
// catch-all filter is not added.
func (s *Server) subscribers() (handlers []adblock.RequestHandler) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.filter {
		return nil
	}

	// Unsubscribe never modifies the slice in place, so it can be used
	// without the lock.
	return s.handlers
}
