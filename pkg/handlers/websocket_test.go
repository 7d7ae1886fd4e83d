package handlers

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/jmettler27/Pop-sub001/pkg/models"
	"github.com/jmettler27/Pop-sub001/pkg/services"
	"github.com/jmettler27/Pop-sub001/pkg/store"
	websocketHub "github.com/jmettler27/Pop-sub001/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// Conexiones nuevas mientras el hub difunde sin parar: cada pantalla recibe
// el estado inicial y todas las tramas llegan enteras.
func TestWebSocketConnectDuringBroadcast(t *testing.T) {
	engine := services.NewEngine(store.NewExecutor(store.NewMemoryBackend(), store.DefaultMaxRetries))
	hub := websocketHub.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	game, err := engine.Game.CreateGame(ctx, "Noche de quiz")
	require.NoError(t, err)
	gc := NewGameControlHandler(engine, hub)

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: gc.HandleWebSocket}
	go server.Serve(ln)
	t.Cleanup(func() { ln.Close() })

	stop := make(chan struct{})
	var flood sync.WaitGroup
	flood.Add(1)
	go func() {
		defer flood.Done()
		for {
			select {
			case <-stop:
				return
			default:
				hub.BroadcastMessage(game.ID, "stateChanged", websocketHub.StateChangedMessage{
					GameID: game.ID,
					Keys:   []string{models.GameKey(game.ID)},
				})
				time.Sleep(time.Millisecond)
			}
		}
	}()

	dialer := websocket.Dialer{
		NetDial: func(network, addr string) (net.Conn, error) { return ln.Dial() },
	}

	const clients = 8
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, _, err := dialer.Dial("ws://pop.test/ws?gameId="+game.ID, nil)
			if !assert.NoError(t, err) {
				return
			}
			defer conn.Close()

			conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			for {
				_, data, err := conn.ReadMessage()
				if !assert.NoError(t, err, "frames must not interleave") {
					return
				}
				var msg struct {
					Type string              `json:"type"`
					Data models.GameSnapshot `json:"data"`
				}
				if !assert.NoError(t, json.Unmarshal(data, &msg)) {
					return
				}
				if msg.Type == "gameState" {
					assert.Equal(t, game.ID, msg.Data.Game.ID)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(stop)
	flood.Wait()
}
