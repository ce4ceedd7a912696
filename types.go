package oauth

import (
	"net/http"
	"net/url"
)

// Request is a normalized, transport-agnostic representation of an inbound
// token-endpoint request. Header keys are canonicalized so lookups are
// case-insensitive regardless of how the record was built.
//
// Form holds the parsed body when the host transport has already decoded it.
// When Form is nil the engine parses Body as application/x-www-form-urlencoded.
// Single-valued fields (grant_type, code, refresh_token, ...) take the first
// value when a key appears more than once.
type Request struct {
	Method string
	Header http.Header
	Form   url.Values
	Body   string
}

// NewRequest builds a Request from a raw url-encoded body.
func NewRequest(method string, header http.Header, body string) *Request {
	return &Request{
		Method: method,
		Header: canonicalHeader(header),
		Body:   body,
	}
}

// NewFormRequest builds a Request from an already parsed form body.
func NewFormRequest(method string, header http.Header, form url.Values) *Request {
	return &Request{
		Method: method,
		Header: canonicalHeader(header),
		Form:   form,
	}
}

// canonicalHeader copies h so every key is in canonical MIME form. Hosts
// constructing header maps by hand may use arbitrary casing.
func canonicalHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, values := range h {
		for _, v := range values {
			out.Add(k, v)
		}
	}
	return out
}

// Response is the HTTP-shaped result of a grant request. The host transport
// writes it back verbatim: status code, headers, then body.
type Response struct {
	StatusCode int
	Header     map[string]string
	Body       string
}
