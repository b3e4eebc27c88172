package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/campus_lostfound/config"
	"github.com/LilVoxy/campus_lostfound/contacts"
	"github.com/LilVoxy/campus_lostfound/processor"
	"github.com/LilVoxy/campus_lostfound/realtime"
)

var now = time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)

// countingLoader отдает одного собеседника и считает проходы
type countingLoader struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) Load(_ context.Context, viewer string) ([]contacts.Preview, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return []contacts.Preview{{
		UserID:      "U2",
		FullName:    "jane",
		Email:       "jane@campus.edu",
		LastContact: now.Add(-time.Hour),
	}}, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type testEnv struct {
	hub     *realtime.Hub
	manager *Manager
	loader  *countingLoader
	server  *httptest.Server
	stop    context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	hub := realtime.NewHub(16, log)
	go hub.Run(ctx)

	cfg := config.Default().WebSocket
	loader := &countingLoader{}
	manager := NewManager(cfg, []string{"*"}, loader, hub, log)
	manager.now = func() time.Time { return now }

	managerCtx, stopManager := context.WithCancel(ctx)
	go manager.Run(managerCtx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		manager.ServeContacts(w, r, "U1")
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return &testEnv{hub: hub, manager: manager, loader: loader, server: server, stop: stopManager}
}

func (e *testEnv) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/contacts" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil читает сообщения, пока не встретится нужный тип
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, cond func([]byte) bool) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind == websocket.BinaryMessage {
			data, err = processor.DecompressMessage(data)
			require.NoError(t, err)
		}
		var head ClientMessage
		require.NoError(t, json.Unmarshal(data, &head))
		if head.Type == msgType && (cond == nil || cond(data)) {
			return data
		}
	}
}

func contactsWithSeq(seq uint64) func([]byte) bool {
	return func(data []byte) bool {
		var msg ContactsMessage
		return json.Unmarshal(data, &msg) == nil && msg.Seq >= seq && !msg.Loading
	}
}

func TestContactsStreamLifecycle(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "")

	var first ContactsMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeContacts, nil), &first))
	if first.Seq == 0 {
		assert.True(t, first.Loading)
		assert.NotNil(t, first.Rows)
	}

	var loaded ContactsMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeContacts, contactsWithSeq(1)), &loaded))
	require.Len(t, loaded.Rows, 1)
	assert.Equal(t, "U2", loaded.Rows[0].UserID)
	assert.Equal(t, "J", loaded.Rows[0].Initial)
	assert.Equal(t, "11:00 AM", loaded.Rows[0].TimeLabel)
	assert.Empty(t, loaded.Error)

	// новая попытка связи с участием пользователя запускает проход
	env.hub.Publish(realtime.Event{
		Table: realtime.TableContactAttempts,
		Type:  realtime.Insert,
		Row:   map[string]string{"contacted_by": "U3", "posted_user_id": "U1"},
	})
	readUntil(t, conn, TypeContacts, contactsWithSeq(2))

	// ручное обновление
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypeRefresh}))
	readUntil(t, conn, TypeContacts, contactsWithSeq(3))

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: TypePing}))
	readUntil(t, conn, TypePong, nil)

	env.hub.Publish(realtime.Event{
		Table: realtime.TableItems,
		Type:  realtime.Delete,
		Row:   map[string]string{"id": "item-1"},
	})
	var changed ItemsChangedMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeItemsChanged, nil), &changed))
	assert.Equal(t, "DELETE", changed.Event)
	assert.Equal(t, "item-1", changed.ItemID)

	env.manager.RefreshAll()
	readUntil(t, conn, TypeContacts, contactsWithSeq(4))

	assert.True(t, env.manager.Status("U1").Online)
	assert.Equal(t, 1, env.manager.ConnectionCount())

	conn.Close()
	require.Eventually(t, func() bool { return env.manager.ConnectionCount() == 0 }, 3*time.Second, 10*time.Millisecond)
	assert.False(t, env.manager.Status("U1").Online)
}

func TestSnappyEncoding(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "?encoding=snappy&tz=UTC")

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)

	payload, err := processor.DecompressMessage(data)
	require.NoError(t, err)
	var msg ContactsMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	assert.Equal(t, TypeContacts, msg.Type)

	// сжатые кадры от клиента тоже принимаются
	ping, err := json.Marshal(ClientMessage{Type: TypePing})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, processor.CompressMessage(ping)))
	readUntil(t, conn, TypePong, nil)
}

func TestUnknownEncodingRejected(t *testing.T) {
	env := newTestEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/contacts?encoding=gzip"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestManagerStopClosesConnections(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t, "")
	readUntil(t, conn, TypeContacts, contactsWithSeq(1))
	calls := env.loader.count()

	env.stop()

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure) || strings.Contains(err.Error(), "close"), err.Error())
			break
		}
	}

	// после остановки события не запускают проходов
	env.hub.Publish(realtime.Event{
		Table: realtime.TableContactAttempts,
		Type:  realtime.Insert,
		Row:   map[string]string{"posted_user_id": "U1"},
	})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, calls, env.loader.count())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://campus.app"})

	r := httptest.NewRequest(http.MethodGet, "/ws/contacts", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://campus.app")
	assert.True(t, check(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(r))
}
