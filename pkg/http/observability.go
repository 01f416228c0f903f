package http

import (
	"net/http"

	"github.com/klwxsrx/go-app-shell/pkg/observability"
)

// WithObservability takes the request id from the header or generates one, and exposes it in the response.
func WithObservability(observer observability.Observer, requestIDHeaderName string) ServerOption {
	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeaderName)
			if id == "" {
				id = observability.NewRequestID()
			}

			w.Header().Set(requestIDHeaderName, id)
			handler.ServeHTTP(w, r.WithContext(observer.WithRequestID(r.Context(), id)))
		})
	})
}
