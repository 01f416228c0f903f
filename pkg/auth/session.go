package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/klwxsrx/go-app-shell/pkg/event"
	"github.com/klwxsrx/go-app-shell/pkg/log"
)

const refreshFlightKey = "refresh"

type SessionOption func(*Session)

// Session is the single owner of the authentication state.
// Every mutation goes through its methods, is mirrored to Persistence and announced on the event bus.
type Session struct {
	api         API
	persistence Persistence
	events      event.Bus[Event]
	logger      log.Logger
	now         func() time.Time

	mu    sync.RWMutex
	state State

	refreshGroup singleflight.Group
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

func WithLogger(logger log.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func WithEventBus(bus event.Bus[Event]) SessionOption {
	return func(s *Session) {
		s.events = bus
	}
}

func NewSession(api API, persistence Persistence, opts ...SessionOption) *Session {
	s := &Session{
		api:         api,
		persistence: persistence,
		logger:      log.NewStub(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.persistence == nil {
		s.persistence = nopPersistence{}
	}
	if s.events == nil {
		s.events = event.NewBus[Event](s.logger)
	}

	return s
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone()
}

func (s *Session) IsAuthenticated() bool {
	return s.HasToken()
}

func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Token, s.state.Token != ""
}

func (s *Session) HasToken() bool {
	_, ok := s.Token()
	return ok
}

func (s *Session) SetToken(ctx context.Context, token string) {
	s.update(ctx, func(state *State) {
		state.Token = token
	})
	s.publish(ctx, Event{Type: EventTokenChanged, Token: token})
}

func (s *Session) ClearToken(ctx context.Context) {
	s.update(ctx, func(state *State) {
		state.Token = ""
	})
	s.publish(ctx, Event{Type: EventTokenCleared})
}

// IsTokenExpired checks the given token, or the held one when token is empty.
func (s *Session) IsTokenExpired(token string) bool {
	if token == "" {
		token, _ = s.Token()
	}

	return isExpired(token, s.now())
}

// SetTokenWithExpiry stores the token like SetToken. The exp claim of the token stays the only expiry source,
// ttl is passed to listeners of the token-changed event.
func (s *Session) SetTokenWithExpiry(ctx context.Context, token string, ttl time.Duration) {
	s.update(ctx, func(state *State) {
		state.Token = token
	})
	s.publish(ctx, Event{Type: EventTokenChanged, Token: token, Expiry: ttl})
}

func (s *Session) TokenWithExpiry() (string, bool) {
	token, ok := s.Token()
	if !ok || isExpired(token, s.now()) {
		return "", false
	}

	return token, true
}

func (s *Session) SetRefreshToken(ctx context.Context, refreshToken string) {
	s.update(ctx, func(state *State) {
		state.RefreshToken = refreshToken
	})
}

func (s *Session) RefreshTokenValue() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.RefreshToken, s.state.RefreshToken != ""
}

func (s *Session) ClearRefreshToken(ctx context.Context) {
	s.update(ctx, func(state *State) {
		state.RefreshToken = ""
	})
}

func (s *Session) SetUser(ctx context.Context, user UserInfo) {
	stored := user.Clone()
	s.update(ctx, func(state *State) {
		state.User = &stored
	})

	published := user.Clone()
	s.publish(ctx, Event{Type: EventUserChanged, User: &published})
}

func (s *Session) User() (UserInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state.User == nil {
		return UserInfo{}, false
	}

	return s.state.User.Clone(), true
}

func (s *Session) ClearUser(ctx context.Context) {
	s.update(ctx, func(state *State) {
		state.User = nil
	})
	s.publish(ctx, Event{Type: EventUserCleared})
}

func (s *Session) UpdatePermissions(ctx context.Context, permissions []string) {
	user, ok := s.User()
	if !ok {
		return
	}

	user.Permissions = permissions
	s.SetUser(ctx, user)
}

func (s *Session) UpdateName(ctx context.Context, name string) {
	user, ok := s.User()
	if !ok {
		return
	}

	user.Name = name
	s.SetUser(ctx, user)
}

func (s *Session) HasPermission(permission string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.User != nil && s.state.User.HasPermission(permission)
}

func (s *Session) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.User != nil && s.state.User.HasRole(role)
}

// Login leaves the state untouched when the API call fails.
func (s *Session) Login(ctx context.Context, credentials Credentials) (LoginResponse, error) {
	resp, err := s.api.Login(ctx, credentials)
	if err == nil && resp.Token == "" {
		err = ErrEmptyToken
	}
	if err != nil {
		err = fmt.Errorf("login: %w", err)
		s.publish(ctx, Event{Type: EventLoginError, Err: err})
		return LoginResponse{}, err
	}

	now := s.now()
	user := resp.User.Clone()
	if user.LastLoginTime == nil {
		user.LastLoginTime = &now
	}

	s.update(ctx, func(state *State) {
		state.Token = resp.Token
		state.RefreshToken = resp.RefreshToken
		state.User = &user
		state.LastLoginTime = &now
	})

	published := user.Clone()
	s.publish(ctx, Event{Type: EventLoginSuccess, Token: resp.Token, User: &published, Expiry: resp.ExpiresIn})

	resp.User = user.Clone()
	return resp, nil
}

// Logout resets the session to the empty state. Persistence is cleared before the empty state is written.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	s.state = State{}
	err := s.persistence.Clear(ctx)
	if err != nil {
		s.logger.WithError(err).Error(ctx, "failed to clear persisted session state")
	}
	s.save(ctx, State{})
	s.mu.Unlock()

	s.publish(ctx, Event{Type: EventLogout})
}

// RefreshToken exchanges the refresh token for a new access token.
// Concurrent callers share one in-flight call. A failed refresh always leaves the session logged out.
func (s *Session) RefreshToken(ctx context.Context) (string, error) {
	refreshToken, ok := s.RefreshTokenValue()
	if !ok {
		return "", ErrNoRefreshToken
	}

	resultChan := s.refreshGroup.DoChan(refreshFlightKey, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), refreshToken)
	})

	select {
	case result := <-resultChan:
		if result.Err != nil {
			return "", result.Err
		}
		return result.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// CheckAuth reports whether the session holds a usable token, refreshing an expired one.
func (s *Session) CheckAuth(ctx context.Context) bool {
	token, ok := s.Token()
	if !ok {
		return false
	}
	if !isExpired(token, s.now()) {
		return true
	}

	_, err := s.RefreshToken(ctx)
	if err != nil {
		if s.HasToken() {
			s.Logout(ctx)
		}
		return false
	}

	return true
}

// Restore loads the persisted state without emitting events.
func (s *Session) Restore(ctx context.Context) error {
	state, err := s.persistence.Load(ctx)
	if err != nil {
		return fmt.Errorf("load session state: %w", err)
	}
	if state == nil {
		return nil
	}

	s.mu.Lock()
	s.state = state.Clone()
	s.mu.Unlock()

	return nil
}

func (s *Session) Subscribe(listener event.Listener[Event]) (unsubscribe func()) {
	return s.events.Subscribe(listener)
}

func (s *Session) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := s.api.Refresh(ctx, refreshToken)
	if err == nil && resp.Token == "" {
		err = ErrEmptyToken
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		s.Logout(ctx)
		s.publish(ctx, Event{Type: EventTokenRefreshError, Err: err})
		return "", err
	}

	s.update(ctx, func(state *State) {
		state.Token = resp.Token
		if resp.RefreshToken != "" {
			state.RefreshToken = resp.RefreshToken
		}
	})

	s.publish(ctx, Event{Type: EventTokenChanged, Token: resp.Token})
	s.publish(ctx, Event{Type: EventTokenRefreshed, Token: resp.Token})
	return resp.Token, nil
}

func (s *Session) update(ctx context.Context, mutate func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.state)
	s.save(ctx, s.state.Clone())
}

// save must be called with s.mu held, so that persisted writes keep the order of the mutations.
func (s *Session) save(ctx context.Context, state State) {
	err := s.persistence.Save(ctx, state)
	if err != nil {
		s.logger.WithError(err).Error(ctx, "failed to persist session state")
	}
}

func (s *Session) publish(ctx context.Context, evt Event) {
	s.logger.WithField("event", string(evt.Type)).Debug(ctx, "auth event")
	s.events.Publish(ctx, evt)
}

type nopPersistence struct{}

func (nopPersistence) Save(context.Context, State) error { return nil }

func (nopPersistence) Load(context.Context) (*State, error) { return nil, nil }

func (nopPersistence) Clear(context.Context) error { return nil }
