package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/klwxsrx/go-app-shell/pkg/log"
)

type (
	Transport interface {
		Send(ctx context.Context, req *Request) (*Response, error)
	}

	TransportFunc func(ctx context.Context, req *Request) (*Response, error)

	// Authenticator provides the token for outgoing requests and renews it after a 401.
	// Logout is called when the renewal fails and a token is still held.
	Authenticator interface {
		Token() (string, bool)
		RefreshToken(ctx context.Context) (string, error)
		Logout(ctx context.Context)
	}

	ClientOption func(*Client)
)

func (f TransportFunc) Send(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Client runs every request through the pipeline:
// request hooks, dispatch, response hooks, then on failure retries, one auth recovery and error hooks.
type Client struct {
	transport     Transport
	authenticator Authenticator
	logger        log.Logger
	tracer        trace.Tracer

	defaultHeaders          http.Header
	defaultAuth             bool
	defaultAutoRefreshToken bool
	defaultSilent           bool
	defaultRetry            *RetryStrategy

	requestHooks  hookChain[RequestHook]
	responseHooks hookChain[ResponseHook]
	errorHooks    hookChain[ErrorHook]

	refreshGroup singleflight.Group
}

func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		transport:      transport,
		logger:         log.NewStub(),
		defaultHeaders: make(http.Header),
		defaultAuth:    true,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func WithDefaultHeaders(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			c.defaultHeaders[key] = append([]string(nil), values...)
		}
	}
}

func WithDefaultAuth(enabled bool) ClientOption {
	return func(c *Client) {
		c.defaultAuth = enabled
	}
}

func WithDefaultAutoRefreshToken(enabled bool) ClientOption {
	return func(c *Client) {
		c.defaultAutoRefreshToken = enabled
	}
}

func WithDefaultSilent(silent bool) ClientOption {
	return func(c *Client) {
		c.defaultSilent = silent
	}
}

func WithDefaultRetry(strategy RetryStrategy) ClientOption {
	return func(c *Client) {
		c.defaultRetry = &strategy
	}
}

func WithAuthenticator(authenticator Authenticator) ClientOption {
	return func(c *Client) {
		c.authenticator = authenticator
	}
}

func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithRequestHooks(hooks ...RequestHook) ClientOption {
	return func(c *Client) {
		for _, hook := range hooks {
			c.UseRequestHook(hook)
		}
	}
}

func WithResponseHooks(hooks ...ResponseHook) ClientOption {
	return func(c *Client) {
		for _, hook := range hooks {
			c.UseResponseHook(hook)
		}
	}
}

func WithErrorHooks(hooks ...ErrorHook) ClientOption {
	return func(c *Client) {
		for _, hook := range hooks {
			c.UseErrorHook(hook)
		}
	}
}

func (c *Client) UseRequestHook(hook RequestHook) (remove func()) {
	return c.requestHooks.add(hook)
}

func (c *Client) UseResponseHook(hook ResponseHook) (remove func()) {
	return c.responseHooks.add(hook)
}

func (c *Client) UseErrorHook(hook ErrorHook) (remove func()) {
	return c.errorHooks.add(hook)
}

// Send returns the raw response. Every failure is returned as *Error.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := c.startSpan(ctx, req)
	resp, err := c.send(ctx, req)
	endSpan(span, resp, err)
	return resp, err
}

// Do sends the request and decodes the JSON response body into T.
func Do[T any](ctx context.Context, client *Client, req *Request) (T, error) {
	var result T
	resp, err := client.Send(ctx, req)
	if err != nil {
		return result, err
	}

	err = resp.Decode(&result)
	if err != nil {
		return result, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	return result, nil
}

func (c *Client) send(ctx context.Context, req *Request) (*Response, error) {
	prepared := c.merge(req)
	silent := boolValue(prepared.Silent, c.defaultSilent)

	prepared, err := c.runRequestHooks(ctx, prepared)
	if err != nil {
		failure := asError(prepared, err)
		failure.fromRequestHook = true
		return nil, c.fail(ctx, failure, silent)
	}

	resp, failure := c.dispatchWithRetry(ctx, prepared)
	if failure == nil {
		return resp, nil
	}

	resp, failure = c.recoverAuth(ctx, failure)
	if failure == nil {
		return resp, nil
	}

	return nil, c.fail(ctx, failure, silent)
}

func (c *Client) merge(req *Request) *Request {
	result := req.clone()

	header := make(http.Header, len(c.defaultHeaders)+len(req.Header)+1)
	header.Set(headerAccept, contentTypeJSON)
	for key, values := range c.defaultHeaders {
		header[key] = append([]string(nil), values...)
	}
	for key, values := range req.Header {
		header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}
	if result.hasStructuredBody() && header.Get(headerContentType) == "" {
		header.Set(headerContentType, contentTypeJSON)
	}
	result.Header = header

	withAuth := boolValue(req.WithAuth, c.defaultAuth)
	autoRefreshToken := boolValue(req.AutoRefreshToken, c.defaultAutoRefreshToken)
	silent := boolValue(req.Silent, c.defaultSilent)
	result.WithAuth = &withAuth
	result.AutoRefreshToken = &autoRefreshToken
	result.Silent = &silent

	c.injectAuth(result)
	return result
}

// injectAuth sets the bearer token unless the caller provided its own Authorization header.
// A header injected earlier is replaced with the current token.
func (c *Client) injectAuth(req *Request) {
	if c.authenticator == nil || !boolValue(req.WithAuth, c.defaultAuth) {
		return
	}

	current := req.Header.Get(headerAuthorization)
	if current != "" && current != req.injectedAuth {
		return
	}

	token, ok := c.authenticator.Token()
	if !ok {
		if req.injectedAuth != "" {
			req.Header.Del(headerAuthorization)
			req.injectedAuth = ""
		}
		return
	}

	req.injectedAuth = "Bearer " + token
	req.Header.Set(headerAuthorization, req.injectedAuth)
}

func (c *Client) runRequestHooks(ctx context.Context, req *Request) (*Request, error) {
	for _, hook := range c.requestHooks.snapshot() {
		next, err := hook(ctx, req)
		if err != nil {
			return req, fmt.Errorf("request hook: %w", err)
		}
		if next != nil {
			req = next
		}
	}

	return req, nil
}

func (c *Client) runResponseHooks(ctx context.Context, resp *Response) (*Response, error) {
	for _, hook := range c.responseHooks.snapshot() {
		next, err := hook(ctx, resp)
		if err != nil {
			return resp, fmt.Errorf("response hook: %w", err)
		}
		if next != nil {
			resp = next
		}
	}

	return resp, nil
}

func (c *Client) dispatch(ctx context.Context, req *Request) (*Response, *Error) {
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		return nil, newTransportError(ctx, req, err)
	}
	if resp.Request == nil {
		resp.Request = req
	}

	resp, err = c.runResponseHooks(ctx, resp)
	if err != nil {
		return nil, asError(req, err)
	}

	return resp, nil
}

// dispatchWithRetry repeats the dispatch while the retry strategy allows it.
// Every retry works on a copy of the previous attempt with request hooks applied again.
func (c *Client) dispatchWithRetry(ctx context.Context, req *Request) (*Response, *Error) {
	var (
		current  = req
		resp     *Response
		failure  *Error
		attempts int
	)

	operation := func() error {
		if attempts > 0 {
			next := current.clone()
			next.retryCount++
			c.injectAuth(next)

			next, err := c.runRequestHooks(ctx, next)
			if err != nil {
				failure = asError(next, err)
				failure.fromRequestHook = true
				return backoff.Permanent(failure)
			}
			current = next
		}
		attempts++

		resp, failure = c.dispatch(ctx, current)
		if failure != nil {
			return failure
		}
		return nil
	}

	policy := &retryBackOff{
		strategy:  c.resolveRetryStrategy(req),
		lastError: func() *Error { return failure },
	}
	notify := func(_ error, delay time.Duration) {
		c.logger.With(log.Fields{
			"method":  current.Method,
			"url":     current.URL,
			"attempt": policy.attempt,
			"delay":   delay.String(),
			"status":  failure.Status,
		}).Debug(ctx, "retrying http request")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify)
	if failure == nil {
		return resp, nil
	}
	if errors.Is(err, context.Canceled) && !failure.IsCancelled {
		failure = newTransportError(ctx, current, err)
	}

	return nil, failure
}

func (c *Client) fail(ctx context.Context, failure *Error, silent bool) error {
	failure.Silent = silent
	for _, hook := range c.errorHooks.snapshot() {
		next := hook(ctx, failure)
		if next != nil {
			failure = next
		}
	}

	return failure
}

func (c *Client) canRecoverAuth(failure *Error) bool {
	req := failure.Request
	return c.authenticator != nil &&
		req != nil &&
		!req.isTokenRetry &&
		!failure.fromRequestHook &&
		!failure.IsCancelled &&
		failure.Status == http.StatusUnauthorized &&
		boolValue(req.AutoRefreshToken, c.defaultAutoRefreshToken)
}
