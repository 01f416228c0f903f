package http

import (
	"net/http"
	"net/url"
	"strings"
)

const redirectQueryParam = "redirect"

// TokenGetter is the only thing the route guard needs from the session.
type TokenGetter interface {
	Token() (string, bool)
}

// WithRouteGuard redirects requests to protected routes to loginPath while no token is held.
// The requested URI is kept in the redirect query parameter.
func WithRouteGuard(tokens TokenGetter, loginPath string, protected func(*http.Request) bool) ServerOption {
	return WithMW(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !protected(r) {
				handler.ServeHTTP(w, r)
				return
			}
			if _, ok := tokens.Token(); ok {
				handler.ServeHTTP(w, r)
				return
			}

			meta := getHandlerMetadata(r.Context())
			meta.Code = http.StatusFound

			http.Redirect(w, r, loginRedirectURL(loginPath, r.URL.RequestURI()), http.StatusFound)
		})
	})
}

// ProtectedPrefixes protects every path starting with one of the prefixes.
func ProtectedPrefixes(prefixes ...string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		for _, prefix := range prefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				return true
			}
		}
		return false
	}
}

func loginRedirectURL(loginPath, target string) string {
	query := url.Values{}
	query.Set(redirectQueryParam, target)
	return loginPath + "?" + query.Encode()
}
