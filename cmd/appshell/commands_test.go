package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/go-app-shell/pkg/auth"
)

func TestReadPassword(t *testing.T) {
	password, err := readPassword(strings.NewReader("s3cret\r\n"), true)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", password)

	password, err = readPassword(strings.NewReader("no-newline"), true)
	require.NoError(t, err)
	assert.Equal(t, "no-newline", password)

	t.Setenv("APPSHELL_PASSWORD", "from-env")
	password, err = readPassword(strings.NewReader(""), false)
	require.NoError(t, err)
	assert.Equal(t, "from-env", password)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		user     auth.UserInfo
		expected string
	}{
		{user: auth.UserInfo{ID: "1", Name: "John", Email: "john@example.com"}, expected: "John"},
		{user: auth.UserInfo{ID: "1", Email: "john@example.com"}, expected: "john@example.com"},
		{user: auth.UserInfo{ID: "1"}, expected: "1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, displayName(tt.user))
	}
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, auth.State{})
	assert.Equal(t, "Not logged in\n", out.String())

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	out.Reset()
	printStatus(&out, auth.State{
		Token:        token,
		RefreshToken: "r1",
		User:         &auth.UserInfo{ID: "42", Name: "John", Roles: []string{"admin", "editor"}},
	})
	assert.Contains(t, out.String(), "John (42)")
	assert.Contains(t, out.String(), "admin, editor")
	assert.Contains(t, out.String(), "expires at")
	assert.Contains(t, out.String(), "Refreshable: true")
}

func TestPrintBody(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printBody(&out, []byte(`{"id":1}`)))
	assert.Equal(t, "{\n  \"id\": 1\n}\n", out.String())

	out.Reset()
	require.NoError(t, printBody(&out, []byte("plain")))
	assert.Equal(t, "plain\n", out.String())
}
