package auth

import "time"

const (
	EventLoginSuccess      EventType = "login-success"
	EventLoginError        EventType = "login-error"
	EventLogout            EventType = "logout"
	EventTokenChanged      EventType = "token-changed"
	EventTokenCleared      EventType = "token-cleared"
	EventTokenRefreshed    EventType = "token-refreshed"
	EventTokenRefreshError EventType = "token-refresh-error"
	EventUserChanged       EventType = "user-changed"
	EventUserCleared       EventType = "user-cleared"
)

type (
	EventType string

	// Event describes a session transition. Only the fields relevant to Type are set.
	Event struct {
		Type   EventType
		Token  string
		User   *UserInfo
		Err    error
		Expiry time.Duration
	}
)
