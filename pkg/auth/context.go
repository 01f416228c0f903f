package auth

import (
	"context"
	"sync/atomic"
)

const sessionContextKey contextKey = iota

type contextKey int

var defaultSession atomic.Pointer[Session]

// SetDefault installs the process-wide session used by call sites that have no session injected.
func SetDefault(s *Session) {
	defaultSession.Store(s)
}

// Default returns the session installed with SetDefault, or nil.
func Default() *Session {
	return defaultSession.Load()
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

// SessionFromContext falls back to the default session when ctx carries none.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	if ok && s != nil {
		return s, true
	}

	s = Default()
	return s, s != nil
}
