package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginServer(t *testing.T, status int, body string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/User/Authentication", r.URL.Path)

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "user@example.com", creds["email"])
		assert.Equal(t, "pass", creds["password"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestResolveToken_StaticTokenSkipsLogin(t *testing.T) {
	var calls atomic.Int32
	server := loginServer(t, http.StatusOK, `{"accessToken": "from-login"}`, &calls)

	token, source, err := ResolveToken(context.Background(), server.URL, Options{
		StaticToken: "static-token",
		Email:       "user@example.com",
		Password:    "pass",
	})

	require.NoError(t, err)
	assert.Equal(t, "static-token", token)
	assert.Equal(t, SourceStatic, source)
	assert.Equal(t, int32(0), calls.Load())
}

func TestResolveToken_LoginOnce(t *testing.T) {
	var calls atomic.Int32
	server := loginServer(t, http.StatusOK, `{"accessToken": "from-login"}`, &calls)

	token, source, err := ResolveToken(context.Background(), server.URL, Options{
		StaticToken: "   ",
		Email:       "user@example.com",
		Password:    "pass",
	})

	require.NoError(t, err)
	assert.Equal(t, "from-login", token)
	assert.Equal(t, SourceLogin, source)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolveToken_EmptyAccessToken(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty string", body: `{"accessToken": ""}`},
		{name: "whitespace", body: `{"accessToken": "  "}`},
		{name: "missing field", body: `{"token": "abc"}`},
		{name: "not json", body: `ok`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := loginServer(t, http.StatusOK, tt.body, &calls)

			_, _, err := ResolveToken(context.Background(), server.URL, Options{
				Email:    "user@example.com",
				Password: "pass",
			})

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestResolveToken_LoginRejected(t *testing.T) {
	var calls atomic.Int32
	server := loginServer(t, http.StatusUnauthorized, `{"msg": "Invalid credentials"}`, &calls)

	_, _, err := ResolveToken(context.Background(), server.URL, Options{
		Email:    "user@example.com",
		Password: "pass",
	})

	var authErr *AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, authErr.Body, "Invalid credentials")
	assert.Contains(t, err.Error(), "401")
}

func TestResolveToken_MissingCredentials(t *testing.T) {
	_, _, err := ResolveToken(context.Background(), "http://127.0.0.1:1", Options{Email: "user@example.com"})

	var cfgErr *ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestResolveToken_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, _, err := ResolveToken(context.Background(), url, Options{
		Email:    "user@example.com",
		Password: "pass",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "login request")
}
