// Package middleware holds the HTTP middleware shared by the UI handlers.
package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

type contextKey string

const csrfTokenKey contextKey = "csrf_token"

const cookieName = "csrf_token"

// Token returns the CSRF token bound to the request, or the empty string
// outside the CSRF middleware.
func Token(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey).(string)
	return token
}

func newToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CSRF issues a per-browser token cookie and rejects state-changing requests
// that do not echo it back, either in the csrf_token form field or in the
// X-CSRF-Token header. Handlers read the token for their templates via Token.
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			token = cookie.Value
		} else {
			token = newToken()
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			sent := r.FormValue(cookieName)
			if sent == "" {
				sent = r.Header.Get("X-CSRF-Token")
			}
			if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfTokenKey, token)))
	})
}
