package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resume_rewards/internal/domain"
	"resume_rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	hub := NewHub()
	hub.Publish(uuid.New(), domain.LedgerEvent{Type: domain.EventBalanceChanged})
}

func TestPublishDoesNotBlockOnFullBuffer(t *testing.T) {
	hub := NewHub()
	c := &Client{AccountID: uuid.New(), Send: make(chan []byte, 1), Hub: hub}
	hub.Register(c)
	defer hub.Unregister(c)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			hub.Publish(c.AccountID, domain.LedgerEvent{Type: domain.EventBalanceChanged, Balance: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
	assert.Len(t, c.Send, 1)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c := &Client{AccountID: uuid.New(), Send: make(chan []byte, 1), Hub: hub}
	hub.Register(c)
	assert.Equal(t, 1, hub.Count(c.AccountID))

	hub.Unregister(c)
	hub.Unregister(c)
	assert.Equal(t, 0, hub.Count(c.AccountID))
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed(nil, "https://x.example"))
	assert.True(t, originAllowed([]string{"*"}, "https://x.example"))
	assert.True(t, originAllowed([]string{"https://x.example"}, "https://x.example"))
	assert.False(t, originAllowed([]string{"https://x.example"}, "https://evil.example"))
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var m Message
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestLiveFeed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("ws-test-secret")

	hub := NewHub()
	r := gin.New()
	r.GET("/ws", HandleWS(hub, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)

	accountID := uuid.New()
	token, err := service.GenerateJWT(accountID, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, MsgReady, readMessage(t, conn).Type)
	require.Eventually(t, func() bool { return hub.Count(accountID) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": MsgPing}))
	assert.Equal(t, MsgPong, readMessage(t, conn).Type)

	hub.Publish(accountID, domain.LedgerEvent{Type: domain.EventBalanceChanged, AccountID: accountID, Balance: 125, Level: domain.LevelSilver})
	m := readMessage(t, conn)
	assert.Equal(t, MsgEvent, m.Type)
	require.NotNil(t, m.Event)
	assert.Equal(t, int64(125), m.Event.Balance)

	// other accounts see nothing
	hub.Publish(uuid.New(), domain.LedgerEvent{Type: domain.EventBalanceChanged})

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count(accountID) == 0 }, 2*time.Second, 10*time.Millisecond)
}
