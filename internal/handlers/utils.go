package handlers

import (
	"net/http"
	"strings"

	"github.com/jason-s-yu/ageofchess/internal/auth"
)

const authCookie = "auth_token"

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == cookieName {
			return value
		}
	}
	return ""
}

// bearerToken finds the session token in the Authorization header, the auth cookie or the
// "token" query parameter, in that order. Browsers cannot set headers on websocket
// upgrades, hence the query fallback.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if t := extractCookieToken(r.Header.Get("Cookie"), authCookie); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

// identify authenticates the caller. It returns (nil, nil) for anonymous requests and an
// error only for a token that is present but invalid.
func identify(r *http.Request) (*auth.Identity, error) {
	tok := bearerToken(r)
	if tok == "" {
		return nil, nil
	}
	id, err := auth.AuthenticateJWT(tok)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
