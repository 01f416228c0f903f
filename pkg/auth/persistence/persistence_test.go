package persistence_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
	"github.com/klwxsrx/go-app-shell/pkg/auth/persistence"
)

func testState() auth.State {
	loginTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return auth.State{
		Token:        "t1",
		RefreshToken: "r1",
		User: &auth.UserInfo{
			ID:          "42",
			Name:        "john",
			Email:       "john@example.com",
			Permissions: []string{"read"},
		},
		LastLoginTime: &loginTime,
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		persistence func(t *testing.T) auth.Persistence
	}{
		{
			name: "memory",
			persistence: func(*testing.T) auth.Persistence {
				return persistence.NewMemory()
			},
		},
		{
			name: "file",
			persistence: func(t *testing.T) auth.Persistence {
				return persistence.NewFile(filepath.Join(t.TempDir(), "session", "state.json"))
			},
		},
		{
			name: "redis",
			persistence: func(t *testing.T) auth.Persistence {
				mr := miniredis.RunT(t)
				client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = client.Close() })
				return persistence.NewRedis(client, "app:session", 0)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			p := tt.persistence(t)

			loaded, err := p.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, loaded)

			require.NoError(t, p.Save(ctx, testState()))
			loaded, err = p.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, testState(), *loaded)

			require.NoError(t, p.Save(ctx, auth.State{}))
			loaded, err = p.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.True(t, loaded.IsEmpty())

			require.NoError(t, p.Clear(ctx))
			require.NoError(t, p.Clear(ctx))
			loaded, err = p.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestMemory_Load_DoesNotAliasSavedState(t *testing.T) {
	ctx := context.Background()
	p := persistence.NewMemory()

	state := testState()
	require.NoError(t, p.Save(ctx, state))
	state.User.Permissions[0] = "admin"

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"read"}, loaded.User.Permissions)
}

func TestFile_Load_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":7,"state":{"token":"t1"}}`), 0o600))

	_, err := persistence.NewFile(path).Load(context.Background())
	assert.ErrorIs(t, err, persistence.ErrUnsupportedVersion)
}

func TestFile_Load_AcceptsNumericUserID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"state":{"token":"t1","user":{"id":42,"name":"john"}}}`), 0o600))

	loaded, err := persistence.NewFile(path).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded.User)
	assert.Equal(t, auth.UserID("42"), loaded.User.ID)
}

func TestFile_Save_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	p := persistence.NewFile(filepath.Join(dir, "state.json"))

	require.NoError(t, p.Save(context.Background(), testState()))
	require.NoError(t, p.Save(context.Background(), auth.State{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())

	info, err := entries[0].Info()
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRedis_Save_AppliesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := persistence.NewRedis(client, "app:session", time.Hour)
	require.NoError(t, p.Save(context.Background(), testState()))
	assert.Equal(t, time.Hour, mr.TTL("app:session"))

	mr.FastForward(2 * time.Hour)
	loaded, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedis_Load_ReturnsErrorOnBrokenPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("app:session", "{broken"))

	_, err := persistence.NewRedis(client, "app:session", 0).Load(context.Background())
	assert.Error(t, err)
}
