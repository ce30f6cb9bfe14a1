package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBind_Missing(t *testing.T) {
	for _, token := range []string{"", "   ", "\n"} {
		_, err := Bind(token)
		assert.ErrorIs(t, err, ErrMissingCredential)
	}
}

func TestBind_GitEnv(t *testing.T) {
	ctx, err := Bind(" ghp_abc ")
	require.NoError(t, err)
	assert.Equal(t, "ghp_abc", ctx.Token())

	env := ctx.GitEnv()
	require.Len(t, env, 3)
	assert.Equal(t, "GIT_CONFIG_COUNT=1", env[0])
	assert.Equal(t, "GIT_CONFIG_KEY_0=http.https://github.com/.extraheader", env[1])

	value := strings.TrimPrefix(env[2], "GIT_CONFIG_VALUE_0=Authorization: Basic ")
	decoded, err := base64.StdEncoding.DecodeString(value)
	require.NoError(t, err)
	assert.Equal(t, "x-access-token:ghp_abc", string(decoded))
}

func TestContext_WithHost(t *testing.T) {
	ctx, err := Bind("tok")
	require.NoError(t, err)
	env := ctx.WithHost("https://ghe.example.com").GitEnv()
	assert.Equal(t, "GIT_CONFIG_KEY_0=http.https://ghe.example.com/.extraheader", env[1])
}

func TestContext_StringRedacts(t *testing.T) {
	ctx, err := Bind("super-secret-token")
	require.NoError(t, err)
	assert.NotContains(t, ctx.String(), "super-secret-token")
	assert.NotContains(t, (*Context)(nil).String(), "token=")
}

func TestContext_NilGitEnv(t *testing.T) {
	var ctx *Context
	assert.Nil(t, ctx.GitEnv())
}

func TestContext_ForRemote(t *testing.T) {
	ctx, err := Bind("tok")
	require.NoError(t, err)

	tests := []struct {
		remote string
		want   string
	}{
		{"https://github.com/{owner}/{repo}.git", "http.https://github.com/.extraheader"},
		{"https://ghe.example.com/{owner}/{repo}.git", "http.https://ghe.example.com/.extraheader"},
		{"http://git.internal:8080/{owner}/{repo}", "http.http://git.internal:8080/.extraheader"},
		{"/srv/git/{owner}/{repo}.git", "http.https://github.com/.extraheader"},
		{"git@github.com:{owner}/{repo}.git", "http.https://github.com/.extraheader"},
	}
	for _, tt := range tests {
		env := ctx.ForRemote(tt.remote).GitEnv()
		assert.Equal(t, "GIT_CONFIG_KEY_0="+tt.want, env[1], tt.remote)
	}
}
