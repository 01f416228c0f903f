package http

import (
	"context"
	"errors"
)

const refreshFlightKey = "refresh"

// recoverAuth replays a request rejected with 401 once, after the token is refreshed.
// Concurrent 401s share a single refresh.
func (c *Client) recoverAuth(ctx context.Context, failure *Error) (*Response, *Error) {
	if !c.canRecoverAuth(failure) {
		return nil, failure
	}

	_, err := c.refreshToken(ctx)
	if err != nil {
		c.logger.WithError(err).Warn(ctx, "token refresh after 401 failed")
		if ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
			c.logout(ctx)
		}
		return nil, failure
	}

	replay := failure.Request.clone()
	replay.isTokenRetry = true
	replay.skipRetry = true
	c.injectAuth(replay)

	replay, err = c.runRequestHooks(ctx, replay)
	if err != nil {
		hookFailure := asError(replay, err)
		hookFailure.fromRequestHook = true
		return nil, hookFailure
	}

	return c.dispatch(ctx, replay)
}

// logout drops a token that could not be renewed, e.g. when no refresh token is held.
func (c *Client) logout(ctx context.Context) {
	if _, ok := c.authenticator.Token(); !ok {
		return
	}

	c.authenticator.Logout(context.WithoutCancel(ctx))
}

func (c *Client) refreshToken(ctx context.Context) (string, error) {
	resultChan := c.refreshGroup.DoChan(refreshFlightKey, func() (any, error) {
		return c.authenticator.RefreshToken(context.WithoutCancel(ctx))
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
