// Package auth binds the GitHub access token into an explicit authentication
// context shared by the git transport and the GitHub API client.
package auth

import (
	"encoding/base64"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// ErrMissingCredential is returned when no access token was supplied.
var ErrMissingCredential = errors.New("missing credential: GITHUB_TOKEN is not set")

// DefaultHost is the URL prefix the token is scoped to.
const DefaultHost = "https://github.com/"

// Context carries the bound token for the lifetime of the process.
// It is created once by Bind and passed by reference to every consumer.
type Context struct {
	token string
	host  string
}

// Bind validates the token and returns the authentication context.
// The token is not verified against the remote; an invalid token surfaces
// as a transport failure during synchronization.
func Bind(token string) (*Context, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingCredential
	}
	return &Context{token: token, host: DefaultHost}, nil
}

// WithHost scopes the credential to another URL prefix (GitHub Enterprise).
func (c *Context) WithHost(host string) *Context {
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return &Context{token: c.token, host: host}
}

// ForRemote scopes the credential to the scheme and host of an HTTP(S)
// remote URL template such as "https://ghe.example.com/{owner}/{repo}.git".
// Remotes without an HTTP host (local paths, ssh) keep the current scope.
func (c *Context) ForRemote(remoteURL string) *Context {
	u, err := url.Parse(remoteURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return c
	}
	return c.WithHost(u.Scheme + "://" + u.Host + "/")
}

// Token returns the raw access token for API clients.
func (c *Context) Token() string {
	return c.token
}

// GitEnv returns environment entries that make git send the token as an
// HTTP authorization header for requests under the bound host. Passing the
// credential through GIT_CONFIG_* keeps it out of argv and remote URLs.
func (c *Context) GitEnv() []string {
	if c == nil {
		return nil
	}
	basic := base64.StdEncoding.EncodeToString([]byte("x-access-token:" + c.token))
	return []string{
		"GIT_CONFIG_COUNT=1",
		"GIT_CONFIG_KEY_0=http." + c.host + ".extraheader",
		"GIT_CONFIG_VALUE_0=Authorization: Basic " + basic,
	}
}

// String redacts the token.
func (c *Context) String() string {
	if c == nil {
		return "auth.Context(nil)"
	}
	return "auth.Context(" + c.host + ", token=" + strconv.Itoa(len(c.token)) + " chars)"
}
