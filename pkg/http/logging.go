package http

import (
	"maps"
	"net/http"
	"slices"

	"github.com/klwxsrx/go-app-shell/pkg/log"
)

const requestLogEntry = "http"

type loggingResponseWriter struct {
	http.ResponseWriter
	code int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func WithLogging(logger log.Logger, excludedPaths ...string) ServerOption {
	excludedPaths = append(excludedPaths, healthPath)

	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(excludedPaths, r.URL.Path) {
				handler.ServeHTTP(w, r)
				return
			}

			lrw := &loggingResponseWriter{w, http.StatusOK}
			handler.ServeHTTP(lrw, r)

			entry := requestLogger(logger, r, log.Fields{
				"responseCode": lrw.code,
			})
			meta := getHandlerMetadata(r.Context())
			if meta.Panic != nil {
				entry.WithField("panic", meta.Panic.Message).Error(r.Context(), "request handled with panic")
				return
			}
			if meta.Error != nil {
				entry = entry.WithError(meta.Error)
			}

			if lrw.code >= http.StatusInternalServerError {
				entry.Error(r.Context(), "request handled with internal error")
			} else {
				entry.Info(r.Context(), "request handled")
			}
		})
	})
}

// requestLogger adds the request fields and extra under a single log entry.
func requestLogger(logger log.Logger, r *http.Request, extra log.Fields) log.Logger {
	fields := make(log.Fields, len(extra)+4)
	if r != nil {
		fields["routeName"] = getRouteName(r.Method, r.URL.Path)
		fields["method"] = r.Method
		fields["url"] = r.URL.String()
	}
	maps.Copy(fields, extra)

	return logger.With(wrapFieldsWithRequestLogEntry(fields))
}

// wrapFieldsWithRequestLogEntry groups http fields under one key, so they do not collide with context fields.
func wrapFieldsWithRequestLogEntry(fields log.Fields) log.Fields {
	return log.Fields{
		requestLogEntry: fields,
	}
}
