package env_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-app-shell/pkg/env"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "SESSION_REDIS_KEY", env.Key("session", "redisKey"))
	assert.Equal(t, "API_BASE_URL", env.Key("", "apiBaseUrl"))
}

func TestParse(t *testing.T) {
	t.Setenv("APP_TIMEOUT", "15s")
	t.Setenv("APP_RETRIES", "3")
	t.Setenv("APP_BROKEN", "three")

	timeout, err := env.Parse[time.Duration]("APP_TIMEOUT")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, timeout)

	retries, err := env.Parse[int]("APP_RETRIES")
	require.NoError(t, err)
	assert.Equal(t, 3, retries)

	_, err = env.Parse[int]("APP_BROKEN")
	assert.Error(t, err)

	_, err = env.Parse[string]("APP_MISSING")
	assert.Error(t, err)
}

func TestParseOptionalAndDefault(t *testing.T) {
	t.Setenv("APP_EMPTY", "")
	t.Setenv("APP_FLAG", "true")

	v, err := env.ParseOptional[bool]("APP_EMPTY")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = env.ParseOptional[bool]("APP_FLAG")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	s, err := env.ParseDefault("APP_MISSING_STRING", "memory")
	require.NoError(t, err)
	assert.Equal(t, "memory", s)
}

func TestParseList(t *testing.T) {
	t.Setenv("APP_STATUSES", "500, 502,,503")

	list, err := env.ParseList[int]("APP_STATUSES", ",")
	require.NoError(t, err)
	assert.Equal(t, []int{500, 502, 503}, list)
}
