package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/hellOoSaksit/PixelShop/internal/gateway"
	"github.com/sirupsen/logrus"
)

const (
	VisitorCookieName     = "visitor_id"
	AccessTokenCookieName = "accessToken"

	visitorCookieMaxAge = 365 * 24 * 60 * 60
	maxVisitorIDLength  = 64
)

type visitorKey struct{}

// VisitorMiddleware identifies the browser by a long-lived cookie, issuing one on first contact.
func VisitorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		visitorID := ""
		if c, err := r.Cookie(VisitorCookieName); err == nil && validVisitorID(c.Value) {
			visitorID = c.Value
		}
		if visitorID == "" {
			visitorID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     VisitorCookieName,
				Value:    visitorID,
				Path:     "/",
				MaxAge:   visitorCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), visitorKey{}, visitorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validVisitorID(v string) bool {
	if v == "" || len(v) > maxVisitorIDLength {
		return false
	}
	for _, c := range v {
		if !(c == '-' || c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}

func getVisitorID(ctx context.Context) string {
	if visitorID, ok := ctx.Value(visitorKey{}).(string); ok {
		return visitorID
	}
	return ""
}

// AuthMiddleware picks up the credentials issued by the backend. It does not
// validate them: the API gateway does that when they are forwarded.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds gateway.Credentials
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			creds.BearerToken = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if creds.BearerToken == "" {
			if c, err := r.Cookie(AccessTokenCookieName); err == nil {
				creds.BearerToken = c.Value
			}
		}
		if c, err := r.Cookie(gateway.SessionCookieName); err == nil {
			creds.Session = c.Value
		}

		next.ServeHTTP(w, r.WithContext(gateway.WithCredentials(r.Context(), creds)))
	})
}

func isAuthenticated(ctx context.Context) bool {
	return gateway.CredentialsFrom(ctx).Authenticated()
}

// RequestLogger logs one structured line per request.
func RequestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			entry := withContext(log, r.Context()).WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			})
			if visitorID := getVisitorID(r.Context()); visitorID != "" {
				entry = entry.WithField("visitor_id", visitorID)
			}
			switch {
			case status >= 500:
				entry.Error("request completed")
			case status >= 400:
				entry.Warn("request completed")
			default:
				entry.Info("request completed")
			}
		})
	}
}

type contextLogger interface {
	WithContext(ctx context.Context) *logrus.Entry
}

// withContext attaches ctx so the logger's trace hook can pick up span ids.
func withContext(log logrus.FieldLogger, ctx context.Context) logrus.FieldLogger {
	if cl, ok := log.(contextLogger); ok {
		return cl.WithContext(ctx)
	}
	return log
}
