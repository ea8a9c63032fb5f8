package panel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(config.PanelConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		Cookies: `{"session": "abc"}`,
	})
	require.NoError(t, err)
	return client
}

func TestClientEnvelopeDecoding(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		cookie, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "abc", cookie.Value)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": {"users": [{"uuid": "u1", "username": "alice"}]}}`))
	})

	users, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
}

func TestClientMissingResponseKey(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// 2xx但没有response键，按畸形响应处理
		w.Write([]byte(`{"users": []}`))
	})

	_, err := client.ListUsers(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
}

func TestClientNon2xxIsTransportError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := client.ListUsers(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}

func TestClientMalformedJSON(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})

	_, err := client.ListUsers(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
}

func TestClientMissingUsersField(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response": {}}`))
	})

	_, err := client.ListUsers(context.Background())
	require.ErrorIs(t, err, ErrMalformed)
}

func TestClientLoopbackHeaders(t *testing.T) {
	t.Parallel()

	var gotProto, gotFor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProto = r.Header.Get("X-Forwarded-Proto")
		gotFor = r.Header.Get("X-Forwarded-For")
		w.Write([]byte(`{"response": {}}`))
	}))
	defer srv.Close()

	client, err := New(config.PanelConfig{
		BaseURL: srv.URL,
		Token:   "test-token",
		IsLocal: true,
	})
	require.NoError(t, err)

	require.NoError(t, client.RestartAllNodes(context.Background()))
	assert.Equal(t, "https", gotProto)
	assert.Equal(t, "127.0.0.1", gotFor)
}

func TestClientActionEndpoints(t *testing.T) {
	t.Parallel()

	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"response": {}}`))
	})

	require.NoError(t, client.EnableNode(context.Background(), "n1"))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/nodes/n1/actions/enable", gotPath)

	require.NoError(t, client.DeleteUser(context.Background(), "u1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/users/u1", gotPath)

	require.NoError(t, client.ResetUserTraffic(context.Background(), "u1"))
	assert.Equal(t, "/api/users/u1/actions/reset-traffic", gotPath)
}
