package authapi

import (
	"context"
	"net/http"
	"time"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
	pkghttp "github.com/klwxsrx/go-app-shell/pkg/http"
)

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Remember bool   `json:"remember,omitempty"`
	}

	loginResponse struct {
		Token        string  `json:"token"`
		RefreshToken string  `json:"refreshToken"`
		User         userDTO `json:"user"`
		ExpiresIn    int64   `json:"expiresIn"`
	}

	userDTO struct {
		ID            auth.UserID `json:"id"`
		Name          string      `json:"name"`
		Email         string      `json:"email"`
		Avatar        string      `json:"avatar"`
		Permissions   []string    `json:"permissions"`
		Roles         []string    `json:"roles"`
		LastLoginTime *time.Time  `json:"lastLoginTime"`
	}

	refreshRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	refreshResponse struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
)

type api struct {
	client      *pkghttp.Client
	loginPath   string
	refreshPath string
}

// New returns auth.API over the client. Its calls never carry or recover the session token
// and are not retried, so a failed refresh cannot recurse into another one.
func New(client *pkghttp.Client, loginPath, refreshPath string) auth.API {
	return api{
		client:      client,
		loginPath:   loginPath,
		refreshPath: refreshPath,
	}
}

func (a api) Login(ctx context.Context, credentials auth.Credentials) (auth.LoginResponse, error) {
	req := pkghttp.NewRequest(http.MethodPost, a.loginPath, append(sessionCallOptions(),
		pkghttp.WithBody(loginRequest{
			Username: credentials.Username,
			Password: credentials.Password,
			Remember: credentials.Remember,
		}),
	)...)

	resp, err := pkghttp.Do[loginResponse](ctx, a.client, req)
	if err != nil {
		return auth.LoginResponse{}, err
	}

	return auth.LoginResponse{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
		User:         resp.User.toUserInfo(),
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

func (a api) Refresh(ctx context.Context, refreshToken string) (auth.RefreshResponse, error) {
	req := pkghttp.NewRequest(http.MethodPost, a.refreshPath, append(sessionCallOptions(),
		pkghttp.WithBody(refreshRequest{RefreshToken: refreshToken}),
	)...)

	resp, err := pkghttp.Do[refreshResponse](ctx, a.client, req)
	if err != nil {
		return auth.RefreshResponse{}, err
	}

	return auth.RefreshResponse{
		Token:        resp.Token,
		RefreshToken: resp.RefreshToken,
	}, nil
}

func sessionCallOptions() []pkghttp.RequestOption {
	return []pkghttp.RequestOption{
		pkghttp.WithAuth(false),
		pkghttp.WithAutoRefreshToken(false),
		pkghttp.WithoutRetry(),
	}
}

func (u userDTO) toUserInfo() auth.UserInfo {
	return auth.UserInfo{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Avatar:        u.Avatar,
		Permissions:   u.Permissions,
		Roles:         u.Roles,
		LastLoginTime: u.LastLoginTime,
	}
}
