package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrorNameNetwork    = "NetworkError"
	ErrorNameHTTPStatus = "HttpStatusError"
	ErrorNameCancelled  = "Cancelled"
	ErrorNameGeneric    = "HttpError"

	ErrorCodeNetwork     = "ERR_NETWORK"
	ErrorCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrorCodeBadResponse = "ERR_BAD_RESPONSE"
	ErrorCodeCancelled   = "ERR_CANCELED"
)

var (
	ErrNetwork    = errors.New("network error")
	ErrHTTPStatus = errors.New("http status error")
	ErrCancelled  = errors.New("request cancelled")
)

// Error is the single error shape returned by Client.
type Error struct {
	Message        string
	Name           string
	Code           string
	Status         int
	IsNetworkError bool
	IsCancelled    bool
	Silent         bool
	Request        *Request
	Response       *Response
	Err            error

	fromRequestHook bool
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.IsNetworkError
	case ErrCancelled:
		return e.IsCancelled
	case ErrHTTPStatus:
		return e.Status != 0 && !e.IsNetworkError && !e.IsCancelled
	default:
		return false
	}
}

// StatusError is returned by a Transport for a response outside the 2xx range.
type StatusError struct {
	Response *Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.Response.Status)
}

func newTransportError(ctx context.Context, req *Request, err error) *Error {
	var statusErr *StatusError
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return &Error{
			Message:     "request cancelled",
			Name:        ErrorNameCancelled,
			Code:        ErrorCodeCancelled,
			IsCancelled: true,
			Request:     req,
			Err:         err,
		}
	case errors.As(err, &statusErr):
		code := ErrorCodeBadRequest
		if statusErr.Response.Status >= http.StatusInternalServerError {
			code = ErrorCodeBadResponse
		}
		return &Error{
			Message:  statusErr.Error(),
			Name:     ErrorNameHTTPStatus,
			Code:     code,
			Status:   statusErr.Response.Status,
			Request:  req,
			Response: statusErr.Response,
			Err:      err,
		}
	default:
		return &Error{
			Message:        fmt.Sprintf("network error: %s", err.Error()),
			Name:           ErrorNameNetwork,
			Code:           ErrorCodeNetwork,
			IsNetworkError: true,
			Request:        req,
			Err:            err,
		}
	}
}

// asError keeps an already normalised error and wraps anything else as a generic one.
func asError(req *Request, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Request == nil {
			e.Request = req
		}
		return e
	}

	return &Error{
		Message: err.Error(),
		Name:    ErrorNameGeneric,
		Request: req,
		Err:     err,
	}
}
