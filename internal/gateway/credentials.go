package gateway

import (
	"context"
	"net/http"
)

// SessionCookieName is the backend's session cookie, forwarded as-is.
const SessionCookieName = "session"

// Credentials is what the visitor presented to us and what we present upstream.
type Credentials struct {
	BearerToken string
	Session     string
}

func (c Credentials) Authenticated() bool {
	return c.BearerToken != "" || c.Session != ""
}

type credentialsKey struct{}

func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

func CredentialsFrom(ctx context.Context) Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(Credentials)
	return creds
}

func (c Credentials) apply(req *http.Request) {
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	if c.Session != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.Session})
	}
}
