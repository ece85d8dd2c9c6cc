package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/push"
	"github.com/roach88/coursenotify/internal/store"
	"github.com/roach88/coursenotify/internal/testutil"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	alice = domain.User{ID: 1, Login: "alice", Name: "Alice"}
	bob   = domain.User{ID: 2, Login: "bob", Name: "Bob"}
)

type testEnv struct {
	store  *store.Store
	hub    *push.Hub
	server *Server
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("n")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	hub := push.NewHub()
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &testEnv{
		store:  st,
		hub:    hub,
		server: New(st, hub, testSecret, WithLogger(discard)),
	}
}

func tokenFor(t *testing.T, u domain.User) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, u.ID, u.Login, time.Hour)
	require.NoError(t, err)
	return tok
}

func doRequest(h http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func saveUpload(t *testing.T, st *store.Store, to domain.User, title string) {
	t.Helper()
	f := notification.NewFactory(func() time.Time { return testutil.Epoch })
	n, err := f.FileSubmissionSuccessful(&domain.Exercise{ID: 1, Title: title, Course: &domain.Course{ID: 1, Title: "C"}}, to)
	require.NoError(t, err)
	_, err = st.SaveNotification(context.Background(), &n)
	require.NoError(t, err)
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t)
	w := doRequest(env.server.Handler(), http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestJWTAuth_Rejects(t *testing.T) {
	env := setupTestServer(t)
	h := env.server.Handler()

	expired, err := GenerateToken(testSecret, alice.ID, alice.Login, -time.Minute)
	require.NoError(t, err)
	wrongSecret, err := GenerateToken("other", alice.ID, alice.Login, time.Hour)
	require.NoError(t, err)
	noUser, err := GenerateToken(testSecret, 0, "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"no user", "Bearer " + noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestListNotifications_OwnNewestFirst(t *testing.T) {
	env := setupTestServer(t)
	saveUpload(t, env.store, alice, "First")
	saveUpload(t, env.store, bob, "Other")
	saveUpload(t, env.store, alice, "Second")

	w := doRequest(env.server.Handler(), http.MethodGet, "/api/v1/notifications", tokenFor(t, alice), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []notificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "n-0003", got[0].ID)
	assert.Equal(t, "n-0001", got[1].ID)
	assert.Equal(t, string(notification.TypeFileSubmissionSuccessful), got[0].Type)
	assert.Contains(t, got[0].Text, "Second")
	assert.Equal(t, "2024-01-15T09:00:00Z", got[0].CreatedAt)
}

func TestListNotifications_IncludesOwnTutorialGroups(t *testing.T) {
	env := setupTestServer(t)
	f := notification.NewFactory(func() time.Time { return testutil.Epoch })
	course := &domain.Course{ID: 1, Title: "C"}
	for _, g := range []*domain.TutorialGroup{{ID: 5, Title: "Mine", Course: course}, {ID: 6, Title: "Other", Course: course}} {
		n, err := f.TutorialGroupBroadcast(notification.TypeTutorialGroupUpdated, g, "moved")
		require.NoError(t, err)
		_, err = env.store.SaveNotification(context.Background(), &n)
		require.NoError(t, err)
	}
	saveUpload(t, env.store, alice, "Own")

	tok, err := GenerateToken(testSecret, alice.ID, alice.Login, time.Hour, 5)
	require.NoError(t, err)
	w := doRequest(env.server.Handler(), http.MethodGet, "/api/v1/notifications", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got []notificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, string(notification.TypeFileSubmissionSuccessful), got[0].Type)
	assert.Equal(t, string(notification.TypeTutorialGroupUpdated), got[1].Type)
	assert.Equal(t, int64(5), got[1].Group)

	// without the group claim only the own record is listed
	w = doRequest(env.server.Handler(), http.MethodGet, "/api/v1/notifications", tokenFor(t, alice), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestJWTAuth_QueryToken(t *testing.T) {
	env := setupTestServer(t)
	saveUpload(t, env.store, alice, "First")

	w := doRequest(env.server.Handler(), http.MethodGet, "/api/v1/notifications?access_token="+tokenFor(t, alice), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []notificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	w = doRequest(env.server.Handler(), http.MethodGet, "/api/v1/notifications?access_token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListNotifications_Limit(t *testing.T) {
	env := setupTestServer(t)
	saveUpload(t, env.store, alice, "First")
	saveUpload(t, env.store, alice, "Second")
	h := env.server.Handler()
	tok := tokenFor(t, alice)

	w := doRequest(h, http.MethodGet, "/api/v1/notifications?limit=1", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []notificationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)

	w = doRequest(h, http.MethodGet, "/api/v1/notifications?limit=abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotifications_EmptyIsArray(t *testing.T) {
	env := setupTestServer(t)
	w := doRequest(env.server.Handler(), http.MethodGet, "/api/v1/notifications", tokenFor(t, bob), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestSettings_GetDefaultsThenPut(t *testing.T) {
	env := setupTestServer(t)
	h := env.server.Handler()
	tok := tokenFor(t, alice)
	key := notification.CategoryTutorialGroupDeleteUpdate.Key()

	w := doRequest(h, http.MethodGet, "/api/v1/notification-settings", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var before []settingBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &before))
	require.Len(t, before, len(notification.Categories()))
	for _, s := range before {
		assert.False(t, s.Stored)
		if s.Category == key {
			assert.True(t, s.WebApp)
			assert.False(t, s.Email)
		}
	}

	body := []byte(`[{"category":"` + key + `","webapp":false,"email":true}]`)
	w = doRequest(h, http.MethodPut, "/api/v1/notification-settings", tok, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(h, http.MethodGet, "/api/v1/notification-settings", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var after []settingBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &after))
	found := false
	for _, s := range after {
		if s.Category == key {
			found = true
			assert.True(t, s.Stored)
			assert.False(t, s.WebApp)
			assert.True(t, s.Email)
		}
	}
	assert.True(t, found)

	st, ok, err := env.store.Setting(context.Background(), alice.ID, notification.CategoryTutorialGroupDeleteUpdate)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, st.Email)

	// bob is unaffected
	_, ok, err = env.store.Setting(context.Background(), bob.ID, notification.CategoryTutorialGroupDeleteUpdate)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettings_PutRejects(t *testing.T) {
	env := setupTestServer(t)
	h := env.server.Handler()
	tok := tokenFor(t, alice)

	w := doRequest(h, http.MethodPut, "/api/v1/notification-settings", tok, []byte(`{"not":"a list"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(h, http.MethodPut, "/api/v1/notification-settings", tok,
		[]byte(`[{"category":"notification.nope","webapp":true}]`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	settings, err := env.store.ListSettings(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestStream_RelaysPushes(t *testing.T) {
	env := setupTestServer(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, alice))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	topic := dispatch.UserTopic(alice.ID)
	require.Eventually(t, func() bool { return env.hub.Subscribers(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	f := notification.NewFactory(func() time.Time { return testutil.Epoch })
	n, err := f.FileSubmissionSuccessful(&domain.Exercise{ID: 1, Title: "Live"}, alice)
	require.NoError(t, err)
	n.ID = "n-live"
	require.NoError(t, env.hub.Publish(context.Background(), topic, n))

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}
	assert.Equal(t, "notification", event)

	var got notificationResponse
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, "n-live", got.ID)

	cancel()
	require.Eventually(t, func() bool { return env.hub.Subscribers(topic) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_RelaysPushes(t *testing.T) {
	env := setupTestServer(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/notifications/ws"
	header := http.Header{"Authorization": []string{"Bearer " + tokenFor(t, alice)}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()

	topic := dispatch.UserTopic(alice.ID)
	require.Eventually(t, func() bool { return env.hub.Subscribers(topic) == 1 }, 2*time.Second, 10*time.Millisecond)

	f := notification.NewFactory(func() time.Time { return testutil.Epoch })
	n, err := f.FileSubmissionSuccessful(&domain.Exercise{ID: 1, Title: "Live"}, alice)
	require.NoError(t, err)
	n.ID = "n-ws"
	require.NoError(t, env.hub.Publish(context.Background(), topic, n))
	// another user's topic must not reach alice
	require.NoError(t, env.hub.Publish(context.Background(), dispatch.UserTopic(bob.ID), n))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "/topic/user/1/notifications", msg.Destination)
	assert.Equal(t, "n-ws", msg.Notification.ID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.hub.Subscribers(topic) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_QueryTokenAndRejection(t *testing.T) {
	env := setupTestServer(t)
	ts := httptest.NewServer(env.server.Handler())
	defer ts.Close()
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/notifications/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, resp, err := websocket.DefaultDialer.Dial(base+"?access_token="+tokenFor(t, bob), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	topic := dispatch.UserTopic(bob.ID)
	assert.Eventually(t, func() bool { return env.hub.Subscribers(topic) == 1 }, 2*time.Second, 10*time.Millisecond)
}
