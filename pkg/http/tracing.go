package http

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func WithTracing(tracer trace.Tracer) ClientOption {
	return func(c *Client) {
		c.tracer = tracer
	}
}

func (c *Client) startSpan(ctx context.Context, req *Request) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, nil
	}

	return c.tracer.Start(ctx, "http.client "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL),
		),
	)
}

func endSpan(span trace.Span, resp *Response, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if resp != nil {
		span.SetAttributes(
			attribute.Int("http.response.status_code", resp.Status),
			attribute.Int("http.request.resend_count", resp.Request.RetryCount()),
		)
	}
	if err == nil {
		return
	}

	var e *Error
	if errors.As(err, &e) {
		span.SetAttributes(attribute.String("error.type", e.Name))
		if e.Status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", e.Status))
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
