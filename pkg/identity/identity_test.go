package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler func(method string, body map[string]interface{}) (int, interface{})) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		status, resp := handler(r.URL.Path[1:], body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-key", "http://localhost", time.Second)
}

func errorBody(message string) map[string]interface{} {
	return map[string]interface{}{"error": map[string]interface{}{"code": 400, "message": message}}
}

func TestSignIn(t *testing.T) {
	client := newTestServer(t, func(method string, body map[string]interface{}) (int, interface{}) {
		switch method {
		case "accounts:signInWithPassword":
			if body["password"] != "secret1" {
				return http.StatusBadRequest, errorBody("INVALID_LOGIN_CREDENTIALS")
			}
			return http.StatusOK, map[string]string{
				"localId": "uid-1", "email": body["email"].(string), "displayName": "Ann", "idToken": "tok-1",
			}
		case "accounts:lookup":
			assert.Equal(t, "tok-1", body["idToken"])
			return http.StatusOK, map[string]interface{}{"users": []map[string]interface{}{{"emailVerified": true}}}
		}
		return http.StatusNotFound, errorBody("UNKNOWN")
	})

	user, err := client.SignIn(context.Background(), "ann@campus.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", user.UID)
	assert.Equal(t, "Ann", user.DisplayName)
	assert.True(t, user.EmailVerified)

	_, err = client.SignIn(context.Background(), "ann@campus.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInLookupFailure(t *testing.T) {
	client := newTestServer(t, func(method string, _ map[string]interface{}) (int, interface{}) {
		if method == "accounts:signInWithPassword" {
			return http.StatusOK, map[string]string{"localId": "uid-1", "email": "ann@campus.com", "idToken": "tok-1"}
		}
		return http.StatusInternalServerError, errorBody("INTERNAL")
	})

	_, err := client.SignIn(context.Background(), "ann@campus.com", "secret1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSignUpSetsDisplayName(t *testing.T) {
	var calls []string
	client := newTestServer(t, func(method string, body map[string]interface{}) (int, interface{}) {
		calls = append(calls, method)
		switch method {
		case "accounts:signUp":
			return http.StatusOK, map[string]string{"localId": "uid-2", "email": "bo@campus.com", "idToken": "tok"}
		case "accounts:update":
			assert.Equal(t, "tok", body["idToken"])
			assert.Equal(t, "Bo", body["displayName"])
			return http.StatusOK, map[string]string{}
		}
		return http.StatusNotFound, errorBody("UNKNOWN")
	})

	user, err := client.SignUp(context.Background(), "bo@campus.com", "secret1", "Bo")
	require.NoError(t, err)
	assert.Equal(t, "Bo", user.DisplayName)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, []string{"accounts:signUp", "accounts:update"}, calls)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    error
	}{
		{"EMAIL_EXISTS", ErrEmailExists},
		{"WEAK_PASSWORD : Password should be at least 6 characters", ErrWeakPassword},
		{"INVALID_PASSWORD", ErrInvalidCredentials},
		{"EMAIL_NOT_FOUND", ErrInvalidCredentials},
		{"QUOTA_EXCEEDED", ErrUnavailable},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, classify(http.StatusBadRequest, tt.message), tt.want, tt.message)
	}
}

func TestUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "k", "", 200*time.Millisecond)
	_, err := client.SignIn(context.Background(), "a@b.c", "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}
