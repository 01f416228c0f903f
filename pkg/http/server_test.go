package http_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
)

type tokenGetter string

func (g tokenGetter) Token() (string, bool) {
	return string(g), g != ""
}

func newGuardedServer(token string) pkghttp.Server {
	srv := pkghttp.NewServer(pkghttp.DefaultServerAddress,
		pkghttp.WithHealthCheck(nil),
		pkghttp.WithRouteGuard(tokenGetter(token), "/login", pkghttp.ProtectedPrefixes("/session")),
	)
	srv.Register(pkghttp.NewHandler(http.MethodGet, "/session", func(w pkghttp.ResponseWriter, _ *http.Request) error {
		w.SetJSONBody(map[string]string{"user": "john"})
		return nil
	}))
	srv.Register(pkghttp.NewHandler(http.MethodGet, "/public", func(pkghttp.ResponseWriter, *http.Request) error {
		return nil
	}))
	return srv
}

func TestRouteGuard(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		target   string
		status   int
		location string
	}{
		{
			name:     "redirects_without_token",
			target:   "/session?tab=profile",
			status:   http.StatusFound,
			location: "/login?redirect=%2Fsession%3Ftab%3Dprofile",
		},
		{
			name:   "passes_with_token",
			token:  "t1",
			target: "/session",
			status: http.StatusOK,
		},
		{
			name:   "unprotected_route",
			target: "/public",
			status: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newGuardedServer(tt.token).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestServer_Handler(t *testing.T) {
	srv := pkghttp.NewServer(pkghttp.DefaultServerAddress, pkghttp.WithHealthCheck(nil))
	srv.Register(pkghttp.NewHandler(http.MethodGet, "/items/{id}", func(w pkghttp.ResponseWriter, r *http.Request) error {
		id, err := pkghttp.ParseRequest(r, pkghttp.PathParameter[int]("id"), nil)
		if err != nil {
			return err
		}
		if id == 0 {
			return errors.New("storage failure")
		}

		w.SetStatusCode(http.StatusCreated).SetJSONBody(map[string]int{"id": id})
		return nil
	}))
	srv.Register(pkghttp.NewHandler(http.MethodGet, "/panic", func(pkghttp.ResponseWriter, *http.Request) error {
		panic("boom")
	}))

	tests := []struct {
		target string
		status int
		body   string
	}{
		{target: "/healthz", status: http.StatusOK, body: `{"status":"OK"}`},
		{target: "/items/7", status: http.StatusCreated, body: `{"id":7}`},
		{target: "/items/abc", status: http.StatusBadRequest},
		{target: "/items/0", status: http.StatusInternalServerError},
		{target: "/panic", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}
