package websocket

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// startHub arranca el hub y un servidor en memoria que registra cada
// conexión en la partida indicada por ?gameId=.
func startHub(t *testing.T) (*Hub, func(gameID string) *websocket.Conn) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.FastHTTPUpgrader{
		CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
	}
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: func(ctx *fasthttp.RequestCtx) {
		gameID := string(ctx.QueryArgs().Peek("gameId"))
		err := upgrader.Upgrade(ctx, func(ws *websocket.Conn) {
			hub.Register(gameID, ws)
			defer hub.Unregister(gameID, ws)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		})
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
		}
	}}
	go server.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	dialer := websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) { return ln.Dial() },
	}
	dial := func(gameID string) *websocket.Conn {
		conn, _, err := dialer.Dial("ws://pop.test/ws?gameId="+gameID, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		require.Eventually(t, func() bool { return hub.ClientCount(gameID) > 0 }, 2*time.Second, 10*time.Millisecond)
		return conn
	}
	return hub, dial
}

func TestHubNotifyRoutesByGame(t *testing.T) {
	hub, dial := startHub(t)
	first := dial("g1")
	second := dial("g2")

	hub.Notify(context.Background(), []string{
		models.GameKey("g1"),
		models.TimerKey("g1"),
		models.GameKey("g3"),
	})

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := first.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string              `json:"type"`
		Data StateChangedMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "stateChanged", msg.Type)
	assert.Equal(t, "g1", msg.Data.GameID)
	assert.Equal(t, []string{models.GameKey("g1"), models.TimerKey("g1")}, msg.Data.Keys)

	second.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = second.ReadMessage()
	assert.Error(t, err, "other games are not notified")
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, dial := startHub(t)
	conn := dial("g1")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount("g1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubNotifySkipsGamesWithoutClients(t *testing.T) {
	hub := NewHub()
	hub.Notify(context.Background(), []string{models.GameKey("g1"), models.RealtimeKey("g1", "q1")})
	assert.Empty(t, hub.broadcast)
}

func TestHubSendToTargetsOneConnection(t *testing.T) {
	hub, dial := startHub(t)
	first := dial("g1")
	second := dial("g1")
	require.Eventually(t, func() bool { return hub.ClientCount("g1") == 2 }, 2*time.Second, 10*time.Millisecond)

	// El servidor solo conoce su extremo: se envía a todos los registrados
	// de g1 y se comprueba que únicamente uno lo recibe.
	hub.mutex.RLock()
	var target *websocket.Conn
	for conn := range hub.clients["g1"] {
		target = conn
		break
	}
	hub.mutex.RUnlock()
	hub.SendTo("g1", target, "gameState", map[string]string{"game": "g1"})

	received := 0
	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		if _, data, err := conn.ReadMessage(); err == nil {
			assert.Contains(t, string(data), `"type":"gameState"`)
			received++
		}
	}
	assert.Equal(t, 1, received)
}
