package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAuthCookiesIncludeCSRFToken(t *testing.T) {
	h := &Handler{
		AccessCookieName:  "warung_access",
		RefreshCookieName: "warung_refresh",
		CSRFCookieName:    "X-CSRF-Token",
	}

	rec := httptest.NewRecorder()
	h.setAuthCookies(rec, LoginResult{
		AccessToken:   "access",
		RefreshToken:  "refresh",
		AccessExpiry:  time.Now().Add(time.Hour),
		RefreshExpiry: time.Now().Add(24 * time.Hour),
	})

	byName := map[string]bool{}
	var csrfHTTPOnly bool
	var csrfValue string
	for _, c := range rec.Result().Cookies() {
		byName[c.Name] = true
		if c.Name == "X-CSRF-Token" {
			csrfHTTPOnly = c.HttpOnly
			csrfValue = c.Value
		}
	}
	require.True(t, byName["warung_access"])
	require.True(t, byName["warung_refresh"])
	require.True(t, byName["X-CSRF-Token"])
	// The client script must be able to read the token to echo it back.
	require.False(t, csrfHTTPOnly)
	require.NotEmpty(t, csrfValue)

	rec2 := httptest.NewRecorder()
	h.clearAuthCookies(rec2)
	cleared := map[string]int{}
	for _, c := range rec2.Result().Cookies() {
		cleared[c.Name] = c.MaxAge
	}
	require.Equal(t, -1, cleared["X-CSRF-Token"])
}
