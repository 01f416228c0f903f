package appshell

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
	"github.com/klwxsrx/go-app-shell/pkg/log"
	"github.com/klwxsrx/go-app-shell/pkg/metric"
	"github.com/klwxsrx/go-app-shell/pkg/observability"
)

const (
	LoginPath   = "/login"
	LogoutPath  = "/logout"
	SessionPath = "/session"
	RefreshPath = "/session/refresh"
	MetricsPath = "/metrics"
)

type SessionService interface {
	Token() (string, bool)
	State() auth.State
	Login(ctx context.Context, credentials auth.Credentials) (auth.LoginResponse, error)
	Logout(ctx context.Context)
	RefreshToken(ctx context.Context) (string, error)
}

type (
	loginBody struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}

	sessionView struct {
		Authenticated  bool           `json:"authenticated"`
		User           *auth.UserInfo `json:"user"`
		LastLoginTime  *time.Time     `json:"lastLoginTime,omitempty"`
		TokenExpiresAt *time.Time     `json:"tokenExpiresAt,omitempty"`
	}

	errorView struct {
		Error    string `json:"error"`
		Redirect string `json:"redirect,omitempty"`
	}
)

type ServerDependencies struct {
	Session  SessionService
	Registry *prometheus.Registry
	Observer observability.Observer
	Metrics  metric.Metrics
	Logger   log.Logger
}

// NewServer serves the session over local routes. Everything under /session requires a token.
func NewServer(address string, deps ServerDependencies) pkghttp.Server {
	srv := pkghttp.NewServer(address,
		pkghttp.WithHealthCheck(nil),
		pkghttp.WithRawHandler(http.MethodGet, MetricsPath, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})),
		pkghttp.WithObservability(deps.Observer, RequestIDHeader),
		pkghttp.WithLogging(deps.Logger, MetricsPath),
		pkghttp.WithMetrics(deps.Metrics),
		pkghttp.WithRouteGuard(deps.Session, LoginPath, pkghttp.ProtectedPrefixes(SessionPath)),
		pkghttp.WithCORSHandler(),
	)
	for _, handler := range NewRoutes(deps.Session) {
		srv.Register(handler)
	}

	return srv
}

func NewRoutes(session SessionService) []pkghttp.Handler {
	return []pkghttp.Handler{
		pkghttp.NewHandler(http.MethodGet, LoginPath, loginRequired),
		pkghttp.NewHandler(http.MethodPost, LoginPath, login(session)),
		pkghttp.NewHandler(http.MethodPost, LogoutPath, logout(session)),
		pkghttp.NewHandler(http.MethodGet, SessionPath, currentSession(session)),
		pkghttp.NewHandler(http.MethodPost, RefreshPath, refresh(session)),
	}
}

// loginRequired is where the route guard sends unauthenticated requests.
func loginRequired(w pkghttp.ResponseWriter, r *http.Request) error {
	redirect := pkghttp.ParseRequestOptional(r, pkghttp.QueryParameter[string]("redirect"), nil)

	view := errorView{Error: "authentication required"}
	if redirect != nil {
		view.Redirect = *redirect
	}

	w.SetStatusCode(http.StatusUnauthorized).SetJSONBody(view)
	return nil
}

func login(session SessionService) pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		body, err := pkghttp.ParseRequest(r, pkghttp.JSONBody[loginBody](), nil)
		if err != nil {
			return err
		}

		_, err = session.Login(r.Context(), auth.Credentials{
			Username: body.Username,
			Password: body.Password,
			Remember: body.Remember,
		})
		if err != nil {
			if status, ok := rejectedStatus(err); ok {
				w.SetStatusCode(status).SetJSONBody(errorView{Error: err.Error()})
				return nil
			}
			return err
		}

		w.SetStatusCode(http.StatusOK).SetJSONBody(newSessionView(session))
		return nil
	}
}

func logout(session SessionService) pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		session.Logout(r.Context())
		w.SetStatusCode(http.StatusNoContent)
		return nil
	}
}

func currentSession(session SessionService) pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, _ *http.Request) error {
		w.SetStatusCode(http.StatusOK).SetJSONBody(newSessionView(session))
		return nil
	}
}

func refresh(session SessionService) pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		_, err := session.RefreshToken(r.Context())
		if errors.Is(err, auth.ErrNoRefreshToken) || errors.Is(err, auth.ErrRefreshFailed) {
			w.SetStatusCode(http.StatusUnauthorized).SetJSONBody(errorView{Error: err.Error()})
			return nil
		}
		if err != nil {
			return err
		}

		w.SetStatusCode(http.StatusOK).SetJSONBody(newSessionView(session))
		return nil
	}
}

// rejectedStatus passes client errors of the remote API through, e.g. wrong credentials.
func rejectedStatus(err error) (int, bool) {
	if errors.Is(err, auth.ErrEmptyToken) {
		return http.StatusBadGateway, true
	}

	var httpErr *pkghttp.Error
	if errors.As(err, &httpErr) && httpErr.Status >= http.StatusBadRequest && httpErr.Status < http.StatusInternalServerError {
		return httpErr.Status, true
	}

	return 0, false
}

func newSessionView(session SessionService) sessionView {
	state := session.State()
	view := sessionView{
		Authenticated: state.Token != "",
		User:          state.User,
		LastLoginTime: state.LastLoginTime,
	}
	if expiresAt, err := auth.ExpiresAt(state.Token); err == nil {
		view.TokenExpiresAt = &expiresAt
	}

	return view
}
