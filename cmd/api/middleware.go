package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"bloom/internal/identity"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey string

const identityCtx ctxKey = "identity"

const (
	sessionHeader    = "X-Session-ID"
	maxSessionLength = 64
)

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 || creds[0] != app.config.Auth.BasicUser {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(app.config.Auth.BasicPassHash), []byte(creds[1])); err != nil {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IdentityMiddleware resolves who is calling. A valid Bearer token makes
// the caller a user or an admin; without one the caller is a guest keyed
// by X-Session-ID. A missing session id is issued and echoed back.
func (app *application) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := strings.TrimSpace(r.Header.Get(sessionHeader))
		if session == "" || len(session) > maxSessionLength {
			session = uuid.NewString()
		}
		w.Header().Set(sessionHeader, session)

		id := identity.Guest(session)

		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				app.unauthorizedErrorResponse(w, r, errors.New("authorization header is malformed"))
				return
			}

			claims, err := app.authenticator.ParseClaims(parts[1])
			if err != nil {
				app.unauthorizedErrorResponse(w, r, err)
				return
			}
			if claims.IsAdmin() {
				id = identity.Admin(session)
			} else {
				id = identity.User(claims.UserID, session)
			}
		}

		ctx := context.WithValue(r.Context(), identityCtx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !getIdentityFromContext(r).IsAdmin() {
			app.forbiddenResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.RateLimiter.Enabled {
			key := r.RemoteAddr
			if host, _, err := net.SplitHostPort(key); err == nil {
				key = host
			}
			if allow, retryAfter := app.rateLimiter.Allow(key); !allow {
				app.rateLimitExceededResponse(w, r, retryAfter.String())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func getIdentityFromContext(r *http.Request) identity.Identity {
	id, _ := r.Context().Value(identityCtx).(identity.Identity)
	return id
}
