package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/localdeals_server/internal/pkg/pubsub"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// dial 建立一对真实连接，返回服务端注册的 Client 和客户端连接
func dial(t *testing.T, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()

	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(&Client{UserID: userID, Conn: conn})
		close(registered)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("client not registered")
	}
	return conn
}

func TestHub_Empty(t *testing.T) {
	hub := NewHub()

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.IsOnline(123))
	assert.NoError(t, hub.SendToUser(123, &Message{Type: "test"}))
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	c1 := &Client{UserID: 1}
	c2 := &Client{UserID: 1}

	hub.Register(c1)
	hub.Register(c2)
	assert.True(t, hub.IsOnline(1))
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.Unregister(c1)
	assert.True(t, hub.IsOnline(1))

	hub.Unregister(c2)
	assert.False(t, hub.IsOnline(1))
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_DeliverRedemption(t *testing.T) {
	hub := NewHub()
	customer := dial(t, hub, 10)
	merchant := dial(t, hub, 20)

	hub.DeliverRedemption(&pubsub.RedemptionMessage{
		Type:         "redemption",
		Kind:         "redemption_requested",
		RedemptionID: 3,
		CustomerID:   10,
		MerchantID:   20,
	})

	for _, conn := range []*websocket.Conn{customer, merchant} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got struct {
			Type string                    `json:"type"`
			Data pubsub.RedemptionMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, "redemption", got.Type)
		assert.Equal(t, int64(3), got.Data.RedemptionID)
	}
}
