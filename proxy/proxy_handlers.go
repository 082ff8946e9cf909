package proxy

import (
	"net/http"

	"github.com/AdguardTeam/gomitmproxy"
	"github.com/AdguardTeam/gomitmproxy/proxyutil"
)

// onRequest handles the outgoing HTTP requests.
func (s *Server) onRequest(sess *gomitmproxy.Session) (*http.Request, *http.Response) {
	return nil, s.filterRequest(sess.ID(), sess.Request())
}

// filterRequest routes r through the subscribed handlers and returns the
// response set by them or nil if the request must be sent as is.
func (s *Server) filterRequest(id string, r *http.Request) (resp *http.Response) {
	if r.Method == http.MethodConnect {
		// Do nothing for CONNECT requests.
		return nil
	}

	handlers := s.subscribers()
	if len(handlers) == 0 {
		return nil
	}

	session := NewSession(id, r)
	for _, h := range handlers {
		h.HandleRequest(session)
		if session.Response != nil {
			s.logger.Debug("request answered", "id", session.ID, "url", session.URI())

			return session.Response
		}
	}

	return nil
}

// newBlockedResponse creates a response without content for a blocked
// request.
func newBlockedResponse(session *Session) (res *http.Response) {
	res = proxyutil.NewResponse(http.StatusNoContent, nil, session.HTTPRequest)
	res.Header.Set("Cache-Control", "no-store")

	return res
}
