//go:generate ${TOOLS_BIN}/mockgen -source ${GOFILE} -destination mock/${GOFILE} -package mock -mock_names "API=API,Persistence=Persistence"
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrEmptyToken     = errors.New("empty token received")
)

type (
	// API is the remote side of the session: it exchanges credentials and refresh tokens for access tokens.
	API interface {
		Login(ctx context.Context, credentials Credentials) (LoginResponse, error)
		Refresh(ctx context.Context, refreshToken string) (RefreshResponse, error)
	}

	// Persistence keeps the session state across restarts.
	// Load returns nil state without error when nothing was saved.
	Persistence interface {
		Save(ctx context.Context, state State) error
		Load(ctx context.Context) (*State, error)
		Clear(ctx context.Context) error
	}
)

type (
	State struct {
		Token         string     `json:"token"`
		RefreshToken  string     `json:"refreshToken,omitempty"`
		User          *UserInfo  `json:"user"`
		LastLoginTime *time.Time `json:"lastLoginTime,omitempty"`
	}

	UserInfo struct {
		ID            UserID     `json:"id"`
		Name          string     `json:"name"`
		Email         string     `json:"email"`
		Avatar        string     `json:"avatar,omitempty"`
		Permissions   []string   `json:"permissions"`
		Roles         []string   `json:"roles,omitempty"`
		LastLoginTime *time.Time `json:"lastLoginTime,omitempty"`
	}

	// UserID accepts both JSON strings and numbers.
	UserID string

	Credentials struct {
		Username string
		Password string
		Remember bool
	}

	LoginResponse struct {
		Token        string
		RefreshToken string
		User         UserInfo
		ExpiresIn    time.Duration
	}

	RefreshResponse struct {
		Token        string
		RefreshToken string
	}
)

func (s State) IsEmpty() bool {
	return s.Token == "" && s.RefreshToken == "" && s.User == nil && s.LastLoginTime == nil
}

func (s State) Clone() State {
	result := State{
		Token:         s.Token,
		RefreshToken:  s.RefreshToken,
		LastLoginTime: cloneTime(s.LastLoginTime),
	}
	if s.User != nil {
		user := s.User.Clone()
		result.User = &user
	}

	return result
}

func (u UserInfo) Clone() UserInfo {
	u.Permissions = slices.Clone(u.Permissions)
	u.Roles = slices.Clone(u.Roles)
	u.LastLoginTime = cloneTime(u.LastLoginTime)
	return u
}

func (u UserInfo) HasPermission(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

func (u UserInfo) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*id = UserID(str)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return errors.New("user id must be a string or a number")
	}

	*id = UserID(num.String())
	return nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	v := *t
	return &v
}
