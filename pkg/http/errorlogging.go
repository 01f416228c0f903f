package http

import (
	"context"

	"github.com/klwxsrx/go-app-shell/pkg/log"
)

// WithErrorLogging logs every failed request. Silent failures are logged at debug level.
func WithErrorLogging(logger log.Logger) ClientOption {
	return WithErrorHooks(func(ctx context.Context, err *Error) *Error {
		fields := log.Fields{
			"errorName": err.Name,
		}
		if err.Code != "" {
			fields["errorCode"] = err.Code
		}
		if err.Status != 0 {
			fields["status"] = err.Status
		}
		if err.Request != nil {
			fields["method"] = err.Request.Method
			fields["url"] = err.Request.URL
			fields["retries"] = err.Request.RetryCount()
		}

		entry := logger.With(wrapFieldsWithRequestLogEntry(fields)).WithError(err)
		if err.Silent {
			entry.Debug(ctx, "http call failed")
		} else {
			entry.Error(ctx, "http call failed")
		}

		return nil
	})
}
