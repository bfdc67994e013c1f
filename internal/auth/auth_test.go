package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	ts := NewTokenService("s3cret", "romvault", time.Hour)

	tok, exp, err := ts.Sign("discord-bot")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "discord-bot", claims.Subject)
	assert.Equal(t, "romvault", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejects(t *testing.T) {
	ts := NewTokenService("s3cret", "romvault", time.Hour)

	other := NewTokenService("different", "romvault", time.Hour)
	wrongKey, _, err := other.Sign("x")
	require.NoError(t, err)

	wrongIssuer, _, err := NewTokenService("s3cret", "someone-else", time.Hour).Sign("x")
	require.NoError(t, err)

	expired := NewTokenService("s3cret", "romvault", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Sign("x")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: "romvault"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"expired":      old,
		"alg none":     none,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ts.Parse(tok)
			assert.Error(t, err)
		})
	}
}

func TestSignWithoutSecret(t *testing.T) {
	_, _, err := NewTokenService("", "romvault", time.Hour).Sign("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func setupRouter(ts TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", Middleware(ts), func(c *gin.Context) {
		sub := ""
		if cl := ClaimsFrom(c); cl != nil {
			sub = cl.Subject
		}
		c.String(http.StatusOK, sub)
	})
	return r
}

func TestMiddleware(t *testing.T) {
	ts := NewTokenService("s3cret", "romvault", time.Hour)
	good, _, err := ts.Sign("operator")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + good, http.StatusOK, "operator"},
		{"lowercase scheme", "bearer " + good, http.StatusOK, "operator"},
	}
	r := setupRouter(ts)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestMiddlewareOpenWithoutSecret(t *testing.T) {
	r := setupRouter(NewTokenService("", "", time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
