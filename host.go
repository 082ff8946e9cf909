package adblock

import "net/http"

// Host is the request-interception capability of the browser hosting the
// engine.
type Host interface {
	// AddCatchAllFilter makes the host route every resource request through
	// the subscribed handlers before it is sent.
	AddCatchAllFilter() (err error)

	// RemoveCatchAllFilter removes the filter added by AddCatchAllFilter.  It
	// may fail if the filter has already been cleared by the host.
	RemoveCatchAllFilter() (err error)

	// Subscribe adds h to the handlers of intercepted requests.
	Subscribe(h RequestHandler)

	// Unsubscribe removes h from the handlers of intercepted requests.
	Unsubscribe(h RequestHandler)

	// NewEmptyResponse returns a response without content that can be
	// assigned to req to short-circuit it.
	NewEmptyResponse(req InterceptedRequest) (resp *http.Response, err error)
}

// InterceptedRequest is a resource request held by the host until all
// handlers return.
type InterceptedRequest interface {
	// URI returns the request URI.  It may be empty.
	URI() (uri string)

	// SetResponse makes the host answer the request with resp instead of
	// sending it.
	SetResponse(resp *http.Response)
}

// RequestHandler handles intercepted requests.  HandleRequest is called
// synchronously for each request and must not block.
type RequestHandler interface {
	HandleRequest(req InterceptedRequest)
}
