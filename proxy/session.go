package proxy

import (
	"net/http"

	"github.com/traychrome/adblock"
)

// Session is an HTTP request intercepted by the proxy.  It is passed to the
// subscribed handlers, which may set a response short-circuiting the request.
type Session struct {
	// HTTPRequest is the intercepted HTTP request.
	HTTPRequest *http.Request

	// Response is the response set by a handler, if any.
	Response *http.Response

	// ID is the session identifier.
	ID string
}

// type check
var _ adblock.InterceptedRequest = (*Session)(nil)

// NewSession creates a new instance of the Session struct.  id is the unique
// session identifier, req is the HTTP request data.
func NewSession(id string, req *http.Request) (s *Session) {
	return &Session{
		ID:          id,
		HTTPRequest: req,
	}
}

// URI implements the [adblock.InterceptedRequest] interface for *Session.
func (s *Session) URI() (uri string) {
	if s.HTTPRequest == nil || s.HTTPRequest.URL == nil {
		return ""
	}

	return s.HTTPRequest.URL.String()
}

// SetResponse implements the [adblock.InterceptedRequest] interface for
// *Session.
func (s *Session) SetResponse(resp *http.Response) {
	s.Response = resp
}
