package http

import (
	"io"
	"maps"
	"net/http"
	"net/url"
)

const (
	headerAccept        = "Accept"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"

	contentTypeJSON = "application/json"
)

type RequestOption func(*Request)

// Request describes one call through the Client. Nil option pointers fall back to the client defaults.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Query  url.Values
	Body   any

	WithAuth         *bool
	AutoRefreshToken *bool
	Silent           *bool
	Retry            *RetryStrategy
	DisableRetry     bool

	Metadata map[string]any

	retryCount   int
	isTokenRetry bool
	skipRetry    bool
	injectedAuth string
}

func NewRequest(method, rawURL string, opts ...RequestOption) *Request {
	req := &Request{
		Method: method,
		URL:    rawURL,
		Header: make(http.Header),
		Query:  make(url.Values),
	}
	for _, opt := range opts {
		opt(req)
	}

	return req
}

func WithAuth(enabled bool) RequestOption {
	return func(r *Request) {
		r.WithAuth = &enabled
	}
}

func WithAutoRefreshToken(enabled bool) RequestOption {
	return func(r *Request) {
		r.AutoRefreshToken = &enabled
	}
}

func WithSilent(silent bool) RequestOption {
	return func(r *Request) {
		r.Silent = &silent
	}
}

func WithRetry(strategy RetryStrategy) RequestOption {
	return func(r *Request) {
		r.Retry = &strategy
		r.DisableRetry = false
	}
}

func WithoutRetry() RequestOption {
	return func(r *Request) {
		r.DisableRetry = true
	}
}

func WithBody(body any) RequestOption {
	return func(r *Request) {
		r.Body = body
	}
}

func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		r.Header.Set(key, value)
	}
}

func WithQuery(key, value string) RequestOption {
	return func(r *Request) {
		r.Query.Add(key, value)
	}
}

func WithMetadata(key string, value any) RequestOption {
	return func(r *Request) {
		if r.Metadata == nil {
			r.Metadata = make(map[string]any)
		}
		r.Metadata[key] = value
	}
}

// RetryCount is the number of retries already made for this request.
func (r *Request) RetryCount() int {
	return r.retryCount
}

// IsTokenRetry reports whether the request is a replay after a token refresh.
func (r *Request) IsTokenRetry() bool {
	return r.isTokenRetry
}

func (r *Request) clone() *Request {
	result := *r
	result.Header = r.Header.Clone()
	if result.Header == nil {
		result.Header = make(http.Header)
	}
	result.Query = url.Values(http.Header(r.Query).Clone())
	if result.Query == nil {
		result.Query = make(url.Values)
	}
	result.Metadata = maps.Clone(r.Metadata)
	return &result
}

// hasStructuredBody reports whether the body is serialised to JSON rather than sent as is.
func (r *Request) hasStructuredBody() bool {
	switch r.Body.(type) {
	case nil, []byte, string, io.Reader:
		return false
	default:
		return true
	}
}

func boolValue(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
