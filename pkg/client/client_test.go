package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artem13815/authflow/pkg/client"
)

type fakeAPI struct {
	mu        sync.Mutex
	authHeads []string
	token     string
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	user := map[string]any{"id": "u-1", "username": "alice", "email": "alice@example.com"}

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] == "taken@example.com" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "User with this email already exists"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "User registered successfully", "token": "reg-token", "user": user})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Login successful", "token": f.token, "user": user})
	})
	mux.HandleFunc("GET /api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Token is not valid"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token is valid", "user": user})
	})
	mux.HandleFunc("GET /api/auth/profile", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "No token, authorization denied"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
	})
	return mux
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeads = append(f.authHeads, r.Header.Get("Authorization"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newClient(t *testing.T) (*client.Client, *client.MemoryStore, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{token: "jwt-abc"}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	store := client.NewMemoryStore()
	return client.New(srv.URL+"/api/auth", store), store, api
}

func TestClient_RegisterDoesNotPersistSession(t *testing.T) {
	c, _, _ := newClient(t)

	resp, err := c.Register(context.Background(), "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "reg-token", resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.False(t, c.IsAuthenticated())
}

func TestClient_RegisterDuplicateReturnsServerMessage(t *testing.T) {
	c, _, _ := newClient(t)

	_, err := c.Register(context.Background(), "bob", "taken@example.com", "secret1")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "User with this email already exists", apiErr.Message)
}

func TestClient_LoginPersistsSessionAndAttachesBearer(t *testing.T) {
	c, store, api := newClient(t)

	resp, err := c.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Login successful", resp.Message)

	token, _ := store.Get(client.KeyToken)
	assert.Equal(t, "jwt-abc", token)
	assert.True(t, c.IsAuthenticated())
	require.NotNil(t, c.CurrentUser())
	assert.Equal(t, "alice@example.com", c.CurrentUser().Email)

	_, err = c.Profile(context.Background())
	require.NoError(t, err)
	verify, err := c.VerifyToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Token is valid", verify.Message)

	assert.Equal(t, []string{"Bearer jwt-abc", "Bearer jwt-abc"}, api.authHeads)
}

func TestClient_LoginFailureLeavesSessionEmpty(t *testing.T) {
	c, _, _ := newClient(t)

	_, err := c.Login(context.Background(), "alice@example.com", "nope")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.False(t, c.IsAuthenticated())
	assert.Nil(t, c.CurrentUser())
}

func TestClient_VerifyFailureClearsSession(t *testing.T) {
	c, store, _ := newClient(t)
	require.NoError(t, store.Set(client.KeyToken, "stale"))
	require.NoError(t, store.Set(client.KeyUser, `{"id":"u-1","username":"alice"}`))

	_, err := c.VerifyToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Token is not valid", err.Error())
	assert.False(t, c.IsAuthenticated())
	assert.Nil(t, c.CurrentUser())
}

func TestClient_ProfileWithoutTokenSendsNoHeader(t *testing.T) {
	c, _, api := newClient(t)

	_, err := c.Profile(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No token, authorization denied", err.Error())
	assert.Equal(t, []string{""}, api.authHeads)
}

func TestClient_UnreachableServerUsesDefaultMessages(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c := client.New(url+"/api/auth", nil)

	cases := []struct {
		name string
		call func() error
		want string
	}{
		{"register", func() error {
			_, err := c.Register(context.Background(), "alice", "a@example.com", "secret1")
			return err
		}, "Registration failed"},
		{"login", func() error {
			_, err := c.Login(context.Background(), "a@example.com", "secret1")
			return err
		}, "Login failed"},
		{"verify", func() error {
			_, err := c.VerifyToken(context.Background())
			return err
		}, "Token verification failed"},
		{"profile", func() error {
			_, err := c.Profile(context.Background())
			return err
		}, "Failed to fetch profile"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestClient_NonJSONErrorBodyUsesDefaultMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	t.Cleanup(srv.Close)
	c := client.New(srv.URL, nil)

	_, err := c.Profile(context.Background())
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Failed to fetch profile", apiErr.Message)
}

func TestClient_CanceledContext(t *testing.T) {
	c, _, _ := newClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Login(ctx, "alice@example.com", "secret1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Login failed", err.Error())
}

func TestClient_CurrentUserIgnoresCorruptValue(t *testing.T) {
	store := client.NewMemoryStore()
	require.NoError(t, store.Set(client.KeyUser, "{not json"))
	c := client.New("", store)

	assert.Nil(t, c.CurrentUser())
}

func TestClient_Logout(t *testing.T) {
	c, _, _ := newClient(t)
	_, err := c.Login(context.Background(), "alice@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, c.Logout())
	assert.False(t, c.IsAuthenticated())
	assert.Nil(t, c.CurrentUser())
}
