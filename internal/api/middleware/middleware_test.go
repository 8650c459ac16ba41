package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseToken(t *testing.T) {
	auth := NewAuthenticator(testSecret, false)
	valid := signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(time.Hour).Unix()})

	userID, err := auth.ParseToken(valid)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	userID, err = auth.ParseToken("Bearer " + valid)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenRejects(t *testing.T) {
	auth := NewAuthenticator(testSecret, false)

	cases := map[string]string{
		"wrong secret": signToken(t, "other", jwt.MapClaims{"sub": "user-1"}),
		"expired":      signToken(t, testSecret, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no subject":   signToken(t, testSecret, jwt.MapClaims{"name": "x"}),
		"garbage":      "not-a-jwt",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ParseToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}

	_, err := auth.ParseToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestParseTokenBypass(t *testing.T) {
	auth := NewAuthenticator("", true)

	userID, err := auth.ParseToken("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	userID, err = auth.ParseToken("")
	require.NoError(t, err)
	_, err = uuid.Parse(userID)
	assert.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	auth := NewAuthenticator(testSecret, false)
	var seen string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		status int
		userID string
	}{
		{name: "valid", header: "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "user-9"}), status: http.StatusNoContent, userID: "user-9"},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.userID, seen)
			if tc.status == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestMiddlewareBypassWithoutHeader(t *testing.T) {
	auth := NewAuthenticator("", true)
	var seen string
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, seen)
}

func TestCORSHandler(t *testing.T) {
	handler := CORSHandler([]string{"https://allowed.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodOptions, "/api/games", nil)
	req.Header.Set("Origin", "https://allowed.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://allowed.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/games", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
