package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/klwxsrx/go-app-shell/pkg/log"
	"github.com/klwxsrx/go-app-shell/pkg/metric"
	"github.com/klwxsrx/go-app-shell/pkg/observability"
)

type (
	TransportOption func(*restyTransport)

	restyTransport struct {
		destinationName string
		client          *resty.Client
	}
)

// NewRESTYTransport sends requests with resty. Responses outside the 2xx range are returned as *StatusError.
func NewRESTYTransport(opts ...TransportOption) Transport {
	t := &restyTransport{
		client: resty.New(),
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

func WithDestination(name, baseURL string) TransportOption {
	return func(t *restyTransport) {
		t.destinationName = name
		t.client.SetBaseURL(baseURL)
	}
}

func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *restyTransport) {
		t.client.SetTimeout(timeout)
	}
}

func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *restyTransport) {
		t.client = resty.NewWithClient(client)
	}
}

func WithRequestObservability(observer observability.Observer, requestIDHeaderName string) TransportOption {
	return func(t *restyTransport) {
		t.client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			if req.Header.Get(requestIDHeaderName) != "" {
				return nil
			}

			id, ok := observer.RequestID(req.Context())
			if !ok {
				id = observability.NewRequestID()
			}

			req.SetHeader(requestIDHeaderName, id)
			return nil
		})
	}
}

func WithRequestLogging(logger log.Logger, infoLevel, errorLevel log.Level) TransportOption {
	const destinationNameLogField = "destinationName"
	return func(t *restyTransport) {
		t.client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			entry := requestLogger(logger, resp.Request.RawRequest, log.Fields{
				destinationNameLogField: t.getDestinationNameForLogging(),
				"responseCode":          resp.StatusCode(),
				"duration":              resp.Time().String(),
			})

			if resp.StatusCode() >= http.StatusInternalServerError {
				entry.Log(resp.Request.Context(), errorLevel, "http call completed with internal error")
			} else {
				entry.Log(resp.Request.Context(), infoLevel, "http call completed")
			}

			return nil
		})

		t.client.OnError(func(req *resty.Request, err error) {
			requestLogger(logger, req.RawRequest, log.Fields{
				destinationNameLogField: t.getDestinationNameForLogging(),
			}).
				WithError(err).
				Log(req.Context(), errorLevel, "http call completed with error")
		})
	}
}

func WithRequestMetrics(metrics metric.Metrics) TransportOption {
	return func(t *restyTransport) {
		t.client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			destinationName := t.destinationName
			if destinationName == "" {
				destinationName = "none"
			}

			path := ""
			if resp.Request.RawRequest != nil {
				path = resp.Request.RawRequest.URL.Path
			}

			metrics.With(metric.Labels{
				"destination": destinationName,
				"method":      resp.Request.Method,
				"path":        path,
				"code":        fmt.Sprintf("%d", resp.StatusCode()),
			}).Duration("http_client_request_duration_seconds", resp.Time())
			return nil
		})
	}
}

func (t *restyTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	r := t.client.R().
		SetContext(ctx).
		SetHeaderMultiValues(req.Header).
		SetQueryParamsFromValues(req.Query)
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	result := &Response{
		Status:   resp.StatusCode(),
		Header:   resp.Header(),
		Body:     resp.Body(),
		Request:  req,
		Duration: resp.Time(),
	}
	if result.Status < http.StatusOK || result.Status >= http.StatusMultipleChoices {
		return nil, &StatusError{Response: result}
	}

	return result, nil
}

func (t *restyTransport) getDestinationNameForLogging() string {
	if t.destinationName != "" {
		return t.destinationName
	}
	return "-"
}
