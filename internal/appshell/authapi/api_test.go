package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-app-shell/internal/appshell/authapi"
	"github.com/klwxsrx/go-app-shell/pkg/auth"
	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
)

type staticAuthenticator struct{}

func (staticAuthenticator) Token() (string, bool) { return "stale", true }

func (staticAuthenticator) Logout(context.Context) {}

func (staticAuthenticator) RefreshToken(context.Context) (string, error) {
	return "", auth.ErrRefreshFailed
}

func newAPI(t *testing.T, handler http.HandlerFunc) auth.API {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := pkghttp.NewClient(
		pkghttp.NewRESTYTransport(pkghttp.WithDestination("auth", server.URL)),
		pkghttp.WithAuthenticator(staticAuthenticator{}),
		pkghttp.WithDefaultAutoRefreshToken(true),
		pkghttp.WithDefaultRetry(pkghttp.RetryStrategy{Retries: 3, Delay: time.Millisecond}),
	)
	return authapi.New(client, "/auth/login", "/auth/refresh")
}

func TestAPI_Login(t *testing.T) {
	api := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"username": "john", "password": "secret", "remember": true}, body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"token": "t1",
			"refreshToken": "r1",
			"expiresIn": 3600,
			"user": {"id": 42, "name": "John", "email": "john@example.com", "permissions": ["read"], "roles": ["admin"]}
		}`))
	})

	resp, err := api.Login(context.Background(), auth.Credentials{Username: "john", Password: "secret", Remember: true})
	require.NoError(t, err)

	assert.Equal(t, auth.LoginResponse{
		Token:        "t1",
		RefreshToken: "r1",
		ExpiresIn:    time.Hour,
		User: auth.UserInfo{
			ID:          "42",
			Name:        "John",
			Email:       "john@example.com",
			Permissions: []string{"read"},
			Roles:       []string{"admin"},
		},
	}, resp)
}

func TestAPI_Refresh(t *testing.T) {
	api := newAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/refresh", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["refreshToken"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token": "t2", "refreshToken": "r2"}`))
	})

	resp, err := api.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, auth.RefreshResponse{Token: "t2", RefreshToken: "r2"}, resp)
}

func TestAPI_FailuresAreNotRetriedOrRecovered(t *testing.T) {
	tests := []struct {
		name   string
		status int
		call   func(auth.API) error
	}{
		{
			name:   "login_unauthorized",
			status: http.StatusUnauthorized,
			call: func(api auth.API) error {
				_, err := api.Login(context.Background(), auth.Credentials{Username: "john"})
				return err
			},
		},
		{
			name:   "refresh_server_error",
			status: http.StatusInternalServerError,
			call: func(api auth.API) error {
				_, err := api.Refresh(context.Background(), "r1")
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			api := newAPI(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			err := tt.call(api)

			require.ErrorIs(t, err, pkghttp.ErrHTTPStatus)
			var httpErr *pkghttp.Error
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tt.status, httpErr.Response.Status)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}
